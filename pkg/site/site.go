// Package site loads the website metadata declared in a Quarto project file.
package site

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/jingkaihe/quarto-postrender/pkg/logger"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// DefaultTitle is used when the project declares no site title.
const DefaultTitle = "My Site"

// ProjectFiles are the Quarto project file names, in lookup order.
var ProjectFiles = []string{"_quarto.yml", "_quarto.yaml"}

// Config is the subset of the `website` section this tool cares about.
type Config struct {
	Title       string `mapstructure:"title"`
	Description string `mapstructure:"description"`
	URL         string `mapstructure:"site-url"`
}

// DefaultPaths returns the project file candidates inside sourceDir.
func DefaultPaths(sourceDir string) []string {
	paths := make([]string, 0, len(ProjectFiles))
	for _, name := range ProjectFiles {
		paths = append(paths, filepath.Join(sourceDir, name))
	}
	return paths
}

// Load reads the first existing file among paths. It never fails: a missing,
// unreadable or malformed project file yields the default configuration.
func Load(ctx context.Context, paths ...string) Config {
	log := logger.G(ctx)

	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			log.WithField("path", p).Debug("project file not found")
			continue
		}

		cfg, err := loadFile(p)
		if err != nil {
			log.WithError(err).WithField("path", p).Warn("ignoring unreadable project file")
			return normalize(Config{})
		}
		log.WithField("path", p).Debug("loaded site config")
		return normalize(cfg)
	}

	return normalize(Config{})
}

func loadFile(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return Config{}, errors.Wrapf(err, "failed to parse %s", path)
	}

	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(v.GetStringMap("website")); err != nil {
		return Config{}, errors.Wrapf(err, "invalid website section in %s", path)
	}
	return cfg, nil
}

func normalize(cfg Config) Config {
	cfg.Title = strings.TrimSpace(cfg.Title)
	if cfg.Title == "" {
		cfg.Title = DefaultTitle
	}
	cfg.URL = strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	return cfg
}
