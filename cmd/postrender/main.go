package main

import (
	"context"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/jingkaihe/quarto-postrender/pkg/logger"
	"github.com/jingkaihe/quarto-postrender/pkg/presenter"
	"github.com/jingkaihe/quarto-postrender/pkg/version"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultOutputDir = "docs"

func init() {
	initConfig(viper.GetViper())
}

// initConfig sets up env and config file lookup. Flags bound later take
// precedence over both.
func initConfig(v *viper.Viper) {
	v.SetEnvPrefix("POSTRENDER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	// Quarto exports the project output directory to post-render scripts.
	_ = v.BindEnv("output_dir", "POSTRENDER_OUTPUT_DIR", "QUARTO_PROJECT_OUTPUT_DIR")

	v.SetDefault("output_dir", defaultOutputDir)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "fmt")

	v.SetConfigName("postrender")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// The config file is optional.
	_ = v.ReadInConfig()
}

var rootCmd = &cobra.Command{
	Use:   "postrender",
	Short: "Post-render hooks for Quarto websites",
	Long: `postrender post-processes a rendered Quarto website.

Run without a subcommand it injects canonical link tags into every page listed
in the sitemap and then regenerates llms.txt, which makes it suitable as a
project post-render hook:

  project:
    post-render:
      - postrender`,
	Version:           version.Get().Short(),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupRun,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runAll(cmd.Context(), getCanonicalsConfigFromViper(), getLlmsTxtConfigFromViper())
	},
}

// runAll runs both post-render steps. A failed canonicals run does not stop
// llms.txt generation; the errors of both steps are returned together.
func runAll(ctx context.Context, canonicals *CanonicalsConfig, llmsTxt *LlmsTxtConfig) error {
	var result *multierror.Error
	if err := runCanonicals(ctx, canonicals); err != nil {
		result = multierror.Append(result, err)
	}
	if err := runLlmsTxt(ctx, llmsTxt); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("output-dir", defaultOutputDir, "Rendered site directory (defaults to $QUARTO_PROJECT_OUTPUT_DIR, then docs)")
	flags.String("log-level", "info", "Log level (panic, fatal, error, warn, info, debug, trace)")
	flags.String("log-format", "fmt", "Log format (fmt, json)")
	flags.BoolP("quiet", "q", false, "Suppress informational output")

	_ = viper.BindPFlag("output_dir", flags.Lookup("output-dir"))
	_ = viper.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("log_format", flags.Lookup("log-format"))
	_ = viper.BindPFlag("quiet", flags.Lookup("quiet"))

	rootCmd.AddCommand(withTracing(canonicalsCmd))
	rootCmd.AddCommand(withTracing(llmsTxtCmd))
	rootCmd.AddCommand(versionCmd)
	withTracing(rootCmd)
}

// setupRun configures logging and output for every command.
func setupRun(cmd *cobra.Command, _ []string) error {
	logger.SetLogOutput(os.Stderr)
	logger.SetLogFormat(viper.GetString("log_format"))
	if err := logger.SetLogLevel(viper.GetString("log_level")); err != nil {
		return errors.Wrapf(err, "invalid log level %q", viper.GetString("log_level"))
	}
	presenter.SetQuiet(viper.GetBool("quiet"))

	ctx, _ := logger.WithRunID(cmd.Context())
	cmd.SetContext(ctx)

	shutdown, err := initTracing(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to initialize tracing")
	}
	tracingShutdown = shutdown

	logger.G(ctx).WithField("command", cmd.CommandPath()).Debug("starting run")
	return nil
}

// tracingShutdown flushes spans once the command has finished.
var tracingShutdown = func(context.Context) error { return nil }

func main() {
	ctx := context.Background()

	err := rootCmd.ExecuteContext(ctx)
	if shutdownErr := tracingShutdown(ctx); shutdownErr != nil {
		logger.G(ctx).WithError(shutdownErr).Warn("failed to flush traces")
	}
	if err != nil {
		presenter.Error(err, "postrender failed")
		os.Exit(1)
	}
}
