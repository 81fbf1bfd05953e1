package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/jingkaihe/quarto-postrender/pkg/llmstxt"
	"github.com/jingkaihe/quarto-postrender/pkg/logger"
	"github.com/jingkaihe/quarto-postrender/pkg/presenter"
	"github.com/jingkaihe/quarto-postrender/pkg/site"
	"github.com/jingkaihe/quarto-postrender/pkg/telemetry"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/attribute"
)

// LlmsTxtConfig holds configuration for the llms-txt command
type LlmsTxtConfig struct {
	OutputDir  string
	SourceDir  string
	PostsDir   string
	SiteConfig string
	OutputFile string
	DryRun     bool
}

// NewLlmsTxtConfig creates a new LlmsTxtConfig with default values
func NewLlmsTxtConfig() *LlmsTxtConfig {
	return &LlmsTxtConfig{
		OutputDir:  defaultOutputDir,
		SourceDir:  ".",
		PostsDir:   llmstxt.DefaultPostsDir,
		SiteConfig: "",
		OutputFile: llmstxt.DefaultOutputFile,
		DryRun:     false,
	}
}

// SiteConfigPaths lists the project files to read, in order.
func (c *LlmsTxtConfig) SiteConfigPaths() []string {
	if c.SiteConfig != "" {
		return []string{c.SiteConfig}
	}
	return site.DefaultPaths(c.SourceDir)
}

// Validate reports every invalid setting at once.
func (c *LlmsTxtConfig) Validate() error {
	var result *multierror.Error

	if strings.TrimSpace(c.OutputDir) == "" {
		result = multierror.Append(result, errors.New("output directory must not be empty"))
	}
	if strings.TrimSpace(c.SourceDir) == "" {
		result = multierror.Append(result, errors.New("source directory must not be empty"))
	}
	if strings.TrimSpace(c.PostsDir) == "" {
		result = multierror.Append(result, errors.New("posts directory must not be empty"))
	} else if filepath.IsAbs(c.PostsDir) {
		result = multierror.Append(result, errors.Errorf("posts directory %q must be relative", c.PostsDir))
	}
	if strings.TrimSpace(c.OutputFile) == "" {
		result = multierror.Append(result, errors.New("output file must not be empty"))
	} else if filepath.IsAbs(c.OutputFile) {
		result = multierror.Append(result, errors.Errorf("output file %q must be relative to the output directory", c.OutputFile))
	}

	return result.ErrorOrNil()
}

var llmsTxtCmd = &cobra.Command{
	Use:   "llms-txt",
	Short: "Generate llms.txt from the rendered posts",
	Long: `Scan posts/*/index.md in the output directory and write llms.txt at its
root, listing every post newest first with a link to its markdown rendering.

Titles, dates and descriptions come from the front matter of the post source
(index.qmd, index.ipynb, index.md, or any .qmd/.ipynb in the post directory).
Missing titles fall back to the first heading of the rendered page and then to
the directory name; missing dates to a YYYY-MM-DD directory prefix.

Example:
  postrender llms-txt
  postrender llms-txt --output-dir _site --dry-run`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runLlmsTxt(cmd.Context(), getLlmsTxtConfigFromViper())
	},
}

func init() {
	defaults := NewLlmsTxtConfig()
	flags := llmsTxtCmd.Flags()
	flags.String("source-dir", defaults.SourceDir, "Quarto project root holding the post sources")
	flags.String("posts-dir", defaults.PostsDir, "Posts directory name in both the sources and the output")
	flags.String("site-config", defaults.SiteConfig, "Project file to read website metadata from (default: _quarto.yml, then _quarto.yaml)")
	flags.String("output-file", defaults.OutputFile, "Generated file name, relative to the output directory")
	flags.Bool("dry-run", defaults.DryRun, "Print the generated file instead of writing it")

	_ = viper.BindPFlag("llms_txt.source_dir", flags.Lookup("source-dir"))
	_ = viper.BindPFlag("llms_txt.posts_dir", flags.Lookup("posts-dir"))
	_ = viper.BindPFlag("llms_txt.site_config", flags.Lookup("site-config"))
	_ = viper.BindPFlag("llms_txt.output_file", flags.Lookup("output-file"))
	_ = viper.BindPFlag("llms_txt.dry_run", flags.Lookup("dry-run"))
}

// getLlmsTxtConfigFromViper builds the configuration from flags, environment
// and the config file, in that order of precedence.
func getLlmsTxtConfigFromViper() *LlmsTxtConfig {
	config := NewLlmsTxtConfig()

	if v := viper.GetString("output_dir"); v != "" {
		config.OutputDir = v
	}
	if v := viper.GetString("llms_txt.source_dir"); v != "" {
		config.SourceDir = v
	}
	if v := viper.GetString("llms_txt.posts_dir"); v != "" {
		config.PostsDir = v
	}
	config.SiteConfig = viper.GetString("llms_txt.site_config")
	if v := viper.GetString("llms_txt.output_file"); v != "" {
		config.OutputFile = v
	}
	config.DryRun = viper.GetBool("llms_txt.dry_run")

	return config
}

func runLlmsTxt(ctx context.Context, config *LlmsTxtConfig) error {
	if err := config.Validate(); err != nil {
		return errors.Wrap(err, "invalid llms-txt configuration")
	}

	attrs := []attribute.KeyValue{
		attribute.String("output_dir", config.OutputDir),
		attribute.String("source_dir", config.SourceDir),
		attribute.Bool("dry_run", config.DryRun),
	}

	return telemetry.WithSpan(ctx, "postrender.llms_txt", func(ctx context.Context) error {
		siteConfig := site.Load(ctx, config.SiteConfigPaths()...)
		logger.G(ctx).WithField("site_title", siteConfig.Title).Debug("loaded site config")

		gen, err := llmstxt.NewGenerator(config.OutputDir,
			llmstxt.WithSourceDir(config.SourceDir),
			llmstxt.WithPostsDir(config.PostsDir),
			llmstxt.WithOutputFile(config.OutputFile),
			llmstxt.WithSite(siteConfig),
			llmstxt.WithDryRun(config.DryRun),
		)
		if err != nil {
			return err
		}

		result, err := gen.Generate(ctx)
		switch {
		case errors.Is(err, llmstxt.ErrNoPostsDir):
			presenter.Info(fmt.Sprintf("Posts output directory not found: %s", gen.PostsOutputDir()))
			return nil
		case errors.Is(err, llmstxt.ErrNoPosts):
			presenter.Info("No rendered .md files found in posts directory")
			return nil
		case err != nil:
			return errors.Wrap(err, "failed to generate llms.txt")
		}

		telemetry.SetAttributes(ctx, attribute.Int("posts.count", len(result.Posts)))

		if config.DryRun {
			presenter.Section(result.Path)
			presenter.Info(strings.TrimRight(result.Content, "\n"))
			return nil
		}
		presenter.Success(fmt.Sprintf("Generated %s (%d posts)", result.Path, len(result.Posts)))
		return nil
	}, attrs...)
}
