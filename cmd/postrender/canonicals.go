package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/jingkaihe/quarto-postrender/pkg/canonical"
	"github.com/jingkaihe/quarto-postrender/pkg/logger"
	"github.com/jingkaihe/quarto-postrender/pkg/presenter"
	"github.com/jingkaihe/quarto-postrender/pkg/sitemap"
	"github.com/jingkaihe/quarto-postrender/pkg/telemetry"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/attribute"
)

// CanonicalsConfig holds configuration for the canonicals command
type CanonicalsConfig struct {
	OutputDir  string
	Sitemap    string
	StripIndex bool
	Exclude    []string
	DryRun     bool
}

// NewCanonicalsConfig creates a new CanonicalsConfig with default values
func NewCanonicalsConfig() *CanonicalsConfig {
	return &CanonicalsConfig{
		OutputDir:  defaultOutputDir,
		Sitemap:    "sitemap.xml",
		StripIndex: false,
		Exclude:    []string{},
		DryRun:     false,
	}
}

// SitemapPath resolves the sitemap location. Relative paths are taken from the
// output directory.
func (c *CanonicalsConfig) SitemapPath() string {
	if filepath.IsAbs(c.Sitemap) {
		return c.Sitemap
	}
	return filepath.Join(c.OutputDir, c.Sitemap)
}

// Validate reports every invalid setting at once.
func (c *CanonicalsConfig) Validate() error {
	var result *multierror.Error

	if strings.TrimSpace(c.OutputDir) == "" {
		result = multierror.Append(result, errors.New("output directory must not be empty"))
	}
	if strings.TrimSpace(c.Sitemap) == "" {
		result = multierror.Append(result, errors.New("sitemap path must not be empty"))
	}
	for i, pattern := range c.Exclude {
		if strings.TrimSpace(pattern) == "" {
			result = multierror.Append(result, errors.Errorf("exclude pattern %d is empty", i+1))
		}
	}

	return result.ErrorOrNil()
}

var canonicalsCmd = &cobra.Command{
	Use:   "canonicals",
	Short: "Add canonical link tags to every page in the sitemap",
	Long: `Read sitemap.xml from the output directory and insert a
<link rel="canonical"> tag before </head> in each listed page.

Pages that already contain a canonical link are skipped, so running the command
again over the same output is a no-op. A sitemap URL whose page does not exist
aborts the run.

Example:
  postrender canonicals
  postrender canonicals --strip-index
  postrender canonicals --exclude '/drafts/**' --dry-run`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runCanonicals(cmd.Context(), getCanonicalsConfigFromViper())
	},
}

func init() {
	defaults := NewCanonicalsConfig()
	flags := canonicalsCmd.Flags()
	flags.String("sitemap", defaults.Sitemap, "Sitemap file, relative to the output directory")
	flags.Bool("strip-index", defaults.StripIndex, "Publish .../index.html pages under their directory URL")
	flags.StringSlice("exclude", defaults.Exclude, "Glob over URL paths to leave untouched (repeatable)")
	flags.Bool("dry-run", defaults.DryRun, "Show the changes as a diff without writing any file")

	_ = viper.BindPFlag("canonicals.sitemap", flags.Lookup("sitemap"))
	_ = viper.BindPFlag("canonicals.strip_index", flags.Lookup("strip-index"))
	_ = viper.BindPFlag("canonicals.exclude", flags.Lookup("exclude"))
	_ = viper.BindPFlag("canonicals.dry_run", flags.Lookup("dry-run"))
}

// getCanonicalsConfigFromViper builds the configuration from flags, environment
// and the config file, in that order of precedence.
func getCanonicalsConfigFromViper() *CanonicalsConfig {
	config := NewCanonicalsConfig()

	if v := viper.GetString("output_dir"); v != "" {
		config.OutputDir = v
	}
	if v := viper.GetString("canonicals.sitemap"); v != "" {
		config.Sitemap = v
	}
	config.StripIndex = viper.GetBool("canonicals.strip_index")
	config.Exclude = viper.GetStringSlice("canonicals.exclude")
	config.DryRun = viper.GetBool("canonicals.dry_run")

	return config
}

func runCanonicals(ctx context.Context, config *CanonicalsConfig) error {
	if err := config.Validate(); err != nil {
		return errors.Wrap(err, "invalid canonicals configuration")
	}

	attrs := []attribute.KeyValue{
		attribute.String("output_dir", config.OutputDir),
		attribute.Bool("strip_index", config.StripIndex),
		attribute.Bool("dry_run", config.DryRun),
	}

	return telemetry.WithSpan(ctx, "postrender.canonicals", func(ctx context.Context) error {
		log := logger.G(ctx).WithField("sitemap", config.SitemapPath())

		entries, err := sitemap.ParseFile(ctx, config.SitemapPath())
		if err != nil {
			return err
		}
		log.WithField("urls", len(entries)).Debug("parsed sitemap")
		telemetry.SetAttributes(ctx, attribute.Int("sitemap.urls", len(entries)))

		injector, err := canonical.NewInjector(config.OutputDir,
			canonical.WithStripIndex(config.StripIndex),
			canonical.WithDryRun(config.DryRun),
			canonical.WithExclude(config.Exclude...),
		)
		if err != nil {
			return err
		}

		report, err := injector.Run(ctx, entries)
		presentCanonicalsPages(report, config.DryRun)
		if err != nil {
			return errors.Wrap(err, "canonical tag injection aborted")
		}
		presentCanonicalsSummary(report, config.DryRun)

		telemetry.SetAttributes(ctx,
			attribute.Int("pages.inserted", report.Count(canonical.ActionInserted)),
			attribute.Int("pages.skipped", len(report.Pages)-report.Count(canonical.ActionInserted)),
		)
		return nil
	}, attrs...)
}

func presentCanonicalsPages(report *canonical.Report, dryRun bool) {
	if report == nil {
		return
	}

	for _, page := range report.Pages {
		switch page.Action {
		case canonical.ActionInserted:
			if dryRun {
				presenter.Diff(page.Diff)
			} else {
				presenter.Info(fmt.Sprintf("%s adding canonical tag.", page.Path))
			}
		case canonical.ActionAlreadyTagged:
			presenter.Warning(fmt.Sprintf("%s already contains canonical tag. Skipping this file.", page.Path))
		case canonical.ActionNoHead:
			presenter.Warning(fmt.Sprintf("%s has no %s. Skipping this file.", page.Path, canonical.HeadClose))
		case canonical.ActionExcluded:
		}
	}
}

func presentCanonicalsSummary(report *canonical.Report, dryRun bool) {
	inserted := report.Count(canonical.ActionInserted)
	if dryRun {
		presenter.Success(fmt.Sprintf("Dry run: %d of %d pages would get a canonical tag", inserted, len(report.Pages)))
		return
	}
	presenter.Success(fmt.Sprintf("Added canonical tags to %d of %d pages", inserted, len(report.Pages)))
}
