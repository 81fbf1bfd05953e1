// Package llmstxt builds the llms.txt index of a rendered Quarto blog.
//
// Posts are discovered as posts/*/index.md under the output directory. Their
// metadata comes from the matching source document's front matter, with the
// rendered page and the directory name as fallbacks, and the list is written
// newest first.
package llmstxt

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/jingkaihe/quarto-postrender/pkg/frontmatter"
	"github.com/jingkaihe/quarto-postrender/pkg/fsutil"
	"github.com/jingkaihe/quarto-postrender/pkg/logger"
	"github.com/jingkaihe/quarto-postrender/pkg/site"
	"github.com/pkg/errors"
)

const (
	// DefaultPostsDir is the posts directory name, both in the sources and in the output.
	DefaultPostsDir = "posts"
	// DefaultOutputFile is written at the root of the output directory.
	DefaultOutputFile = "llms.txt"
	// RenderedIndex is the markdown twin Quarto renders next to each post page.
	RenderedIndex = "index.md"
)

var (
	// ErrNoPostsDir is returned when the output tree has no posts directory.
	ErrNoPostsDir = errors.New("posts output directory not found")
	// ErrNoPosts is returned when the posts directory holds no rendered index.md.
	ErrNoPosts = errors.New("no rendered .md files found in posts directory")
)

// Generator discovers posts and writes the index.
type Generator struct {
	outputDir  string
	sourceDir  string
	postsDir   string
	outputFile string
	site       site.Config
	lookups    []SourceLookup
	dryRun     bool
}

// Option configures a Generator
type Option func(*Generator) error

// WithSourceDir sets the project source root that holds the post sources.
func WithSourceDir(dir string) Option {
	return func(g *Generator) error {
		g.sourceDir = dir
		return nil
	}
}

// WithPostsDir sets the posts directory name, relative to both roots.
func WithPostsDir(dir string) Option {
	return func(g *Generator) error {
		if dir == "" {
			return errors.New("posts directory must not be empty")
		}
		g.postsDir = dir
		return nil
	}
}

// WithOutputFile sets the generated file name, relative to the output directory.
func WithOutputFile(name string) Option {
	return func(g *Generator) error {
		if name == "" {
			return errors.New("output file must not be empty")
		}
		g.outputFile = name
		return nil
	}
}

// WithSite sets the site metadata used for the header and post URLs.
func WithSite(cfg site.Config) Option {
	return func(g *Generator) error {
		g.site = cfg
		return nil
	}
}

// WithSourceLookups replaces the source document lookup order.
func WithSourceLookups(lookups ...SourceLookup) Option {
	return func(g *Generator) error {
		g.lookups = lookups
		return nil
	}
}

// WithDryRun renders the index without writing it.
func WithDryRun(dryRun bool) Option {
	return func(g *Generator) error {
		g.dryRun = dryRun
		return nil
	}
}

// NewGenerator creates a Generator for the rendered tree at outputDir.
func NewGenerator(outputDir string, opts ...Option) (*Generator, error) {
	if outputDir == "" {
		return nil, errors.New("output directory is required")
	}

	g := &Generator{
		outputDir:  outputDir,
		sourceDir:  ".",
		postsDir:   DefaultPostsDir,
		outputFile: DefaultOutputFile,
		site:       site.Config{Title: site.DefaultTitle},
		lookups:    DefaultSourceLookups(),
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// PostsOutputDir is the directory scanned for rendered posts.
func (g *Generator) PostsOutputDir() string {
	return filepath.Join(g.outputDir, g.postsDir)
}

// OutputPath is where the index is written.
func (g *Generator) OutputPath() string {
	return filepath.Join(g.outputDir, g.outputFile)
}

// Discover returns the rendered index.md of every immediate posts
// subdirectory, sorted by path.
func (g *Generator) Discover(ctx context.Context) ([]string, error) {
	postsDir := g.PostsOutputDir()

	info, err := os.Stat(postsDir)
	if err != nil || !info.IsDir() {
		return nil, ErrNoPostsDir
	}

	matches, err := doublestar.Glob(os.DirFS(postsDir), "*/"+RenderedIndex, doublestar.WithFilesOnly())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to scan %s", postsDir)
	}
	if len(matches) == 0 {
		return nil, ErrNoPosts
	}

	paths := make([]string, 0, len(matches))
	for _, m := range matches {
		paths = append(paths, filepath.Join(postsDir, filepath.FromSlash(m)))
	}
	sort.Strings(paths)

	logger.G(ctx).WithField("count", len(paths)).Debug("discovered rendered posts")
	return paths, nil
}

// ResolveMetadata builds the Post for a rendered index.md. It never fails; every
// missing piece falls back to a derived value.
func (g *Generator) ResolveMetadata(ctx context.Context, mdPath string) Post {
	dir := filepath.Base(filepath.Dir(mdPath))
	log := logger.G(ctx).WithField("post", dir)

	post := Post{Dir: dir, Path: mdPath}

	meta := frontmatter.Metadata{}
	sourceDir := filepath.Join(g.sourceDir, g.postsDir, dir)
	if info, err := os.Stat(sourceDir); err == nil && info.IsDir() {
		if name, ok := findSource(os.DirFS(sourceDir), g.lookups); ok {
			post.Source = filepath.Join(sourceDir, filepath.FromSlash(name))
			meta = frontmatter.FromFile(ctx, post.Source)
			log.WithField("source", post.Source).Debug("resolved post source")
		}
	}
	if post.Source == "" {
		log.Debug("no source document found, using rendered page")
	}

	if title, ok := meta.String("title"); ok && title != "" {
		post.Title = singleLine(title)
	} else {
		post.Title = g.titleFromRendered(ctx, mdPath, dir)
	}

	for _, key := range []string{"subtitle", "description"} {
		if desc, ok := meta.String(key); ok && singleLine(desc) != "" {
			post.Description = singleLine(desc)
			break
		}
	}

	if meta.Has("date") {
		if raw, ok := meta.String("date"); ok {
			post.RawDate = raw
		}
		post.Date = ParseDate(meta["date"])
		if !post.HasDate() {
			log.WithField("date", meta["date"]).Debug("unrecognised date format")
		}
	} else if raw, ok := DateFromDir(dir); ok {
		post.RawDate = raw
		post.Date = ParseDate(raw)
	}

	post.URL = g.postURL(mdPath)
	return post
}

func (g *Generator) titleFromRendered(ctx context.Context, mdPath, dir string) string {
	data, err := fsutil.ReadFile(mdPath)
	if err != nil {
		logger.G(ctx).WithError(err).Warn("cannot read rendered post, using directory name as title")
		return dir
	}
	if title, ok := firstHeading(data); ok {
		return singleLine(title)
	}
	return dir
}

func (g *Generator) postURL(mdPath string) string {
	rel, err := filepath.Rel(g.outputDir, mdPath)
	if err != nil {
		rel = filepath.Join(g.postsDir, filepath.Base(filepath.Dir(mdPath)), RenderedIndex)
	}
	return g.site.URL + "/" + filepath.ToSlash(rel)
}

// Result is the outcome of a generation run.
type Result struct {
	Path    string
	Posts   []Post
	Content string
	// Written is false in dry-run mode.
	Written bool
}

// Generate discovers, resolves, sorts and renders the posts, then writes the
// index unless running dry. ErrNoPostsDir and ErrNoPosts mean nothing was written.
func (g *Generator) Generate(ctx context.Context) (*Result, error) {
	paths, err := g.Discover(ctx)
	if err != nil {
		return nil, err
	}

	posts := make([]Post, 0, len(paths))
	for _, p := range paths {
		posts = append(posts, g.ResolveMetadata(ctx, p))
	}
	SortPosts(posts)

	result := &Result{
		Path:    g.OutputPath(),
		Posts:   posts,
		Content: Render(posts, g.site),
	}

	if g.dryRun {
		logger.G(ctx).Debug("dry run, not writing index")
		return result, nil
	}

	if err := fsutil.WriteFile(result.Path, []byte(result.Content), fsutil.DefaultFileMode); err != nil {
		return result, err
	}
	result.Written = true
	return result, nil
}

// Render produces the llms.txt document.
func Render(posts []Post, cfg site.Config) string {
	title := cfg.Title
	if title == "" {
		title = site.DefaultTitle
	}

	var b bytes.Buffer
	b.WriteString("# " + title + "\n\n")
	if desc := singleLine(cfg.Description); desc != "" {
		b.WriteString("> " + desc + "\n\n")
	}
	b.WriteString("## Posts\n\n")

	for _, p := range posts {
		b.WriteString("- [" + p.Title + "](" + p.URL + ")")
		if p.Description != "" {
			b.WriteString(": " + p.Description)
		}
		b.WriteString("\n")
	}

	return b.String()
}
