package canonical

import (
	"context"
	"net/url"

	"github.com/aymanbagabas/go-udiff"
	"github.com/gobwas/glob"
	"github.com/jingkaihe/quarto-postrender/pkg/fsutil"
	"github.com/jingkaihe/quarto-postrender/pkg/logger"
	"github.com/jingkaihe/quarto-postrender/pkg/sitemap"
	"github.com/pkg/errors"
)

// Action records what happened to a single page.
type Action int

const (
	// ActionInserted means a canonical tag was added (or would be, in a dry run).
	ActionInserted Action = iota
	// ActionAlreadyTagged means the page already had a canonical link.
	ActionAlreadyTagged
	// ActionNoHead means the page has no closing head marker to insert before.
	ActionNoHead
	// ActionExcluded means the URL path matched an exclude pattern.
	ActionExcluded
)

func (a Action) String() string {
	switch a {
	case ActionInserted:
		return "inserted"
	case ActionAlreadyTagged:
		return "already-tagged"
	case ActionNoHead:
		return "no-head"
	case ActionExcluded:
		return "excluded"
	default:
		return "unknown"
	}
}

// PageResult describes the outcome for one sitemap URL.
type PageResult struct {
	URL       string
	Path      string
	Canonical string
	Action    Action
	// Diff holds the unified diff of the change in dry-run mode.
	Diff string
}

// Report collects page results in sitemap order.
type Report struct {
	Pages []PageResult
}

// Count returns how many pages ended with the given action.
func (r *Report) Count(action Action) int {
	n := 0
	for _, p := range r.Pages {
		if p.Action == action {
			n++
		}
	}
	return n
}

// Injector applies canonical tags to the pages listed in a sitemap.
type Injector struct {
	outputDir  string
	stripIndex bool
	dryRun     bool
	exclude    []glob.Glob
}

// Option configures an Injector
type Option func(*Injector) error

// WithStripIndex enables the normalized variant that drops a trailing index.html.
func WithStripIndex(strip bool) Option {
	return func(i *Injector) error {
		i.stripIndex = strip
		return nil
	}
}

// WithDryRun computes diffs instead of writing files.
func WithDryRun(dryRun bool) Option {
	return func(i *Injector) error {
		i.dryRun = dryRun
		return nil
	}
}

// WithExclude skips URLs whose path matches any of the glob patterns.
// "*" stays within one path segment, "**" spans segments.
func WithExclude(patterns ...string) Option {
	return func(i *Injector) error {
		for _, p := range patterns {
			g, err := glob.Compile(p, '/')
			if err != nil {
				return errors.Wrapf(err, "invalid exclude pattern %q", p)
			}
			i.exclude = append(i.exclude, g)
		}
		return nil
	}
}

// NewInjector creates an Injector rooted at outputDir.
func NewInjector(outputDir string, opts ...Option) (*Injector, error) {
	if outputDir == "" {
		return nil, errors.New("output directory is required")
	}

	i := &Injector{outputDir: outputDir}
	for _, opt := range opts {
		if err := opt(i); err != nil {
			return nil, err
		}
	}
	return i, nil
}

// Run processes entries in order. The first missing page or write failure
// aborts the batch; pages handled before it stay modified and are included in
// the returned report alongside the error.
func (i *Injector) Run(ctx context.Context, entries []sitemap.Entry) (*Report, error) {
	report := &Report{Pages: make([]PageResult, 0, len(entries))}

	for _, entry := range entries {
		result, err := i.processEntry(ctx, entry.String())
		if err != nil {
			return report, err
		}
		report.Pages = append(report.Pages, result)
	}

	return report, nil
}

func (i *Injector) excluded(raw string) bool {
	if len(i.exclude) == 0 {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	for _, g := range i.exclude {
		if g.Match(u.Path) {
			return true
		}
	}
	return false
}

func (i *Injector) processEntry(ctx context.Context, raw string) (PageResult, error) {
	log := logger.G(ctx).WithField("url", raw)

	target, err := TargetPath(i.outputDir, raw)
	if err != nil {
		return PageResult{}, err
	}

	result := PageResult{
		URL:       raw,
		Path:      target,
		Canonical: CanonicalURL(raw, i.stripIndex),
	}
	log = log.WithField("path", target)

	if i.excluded(raw) {
		log.Info("url matches an exclude pattern, skipping")
		result.Action = ActionExcluded
		return result, nil
	}

	data, err := fsutil.ReadFile(target)
	if err != nil {
		return result, errors.Wrapf(err, "page for %s", raw)
	}
	content := string(data)

	if HasCanonical(content) {
		log.Debug("page already contains a canonical tag, skipping")
		result.Action = ActionAlreadyTagged
		return result, nil
	}

	updated, ok := Inject(content, Tag(result.Canonical))
	if !ok {
		log.Debugf("page has no %s marker, skipping", HeadClose)
		result.Action = ActionNoHead
		return result, nil
	}
	result.Action = ActionInserted

	if i.dryRun {
		result.Diff = udiff.Unified(target, target, content, updated)
		log.Debug("dry run, not writing page")
		return result, nil
	}

	if err := fsutil.ReplaceFile(target, []byte(updated)); err != nil {
		return result, err
	}
	log.WithField("canonical", result.Canonical).Debug("canonical tag inserted")

	return result, nil
}
