// Package config loads deskmark settings from an optional YAML file and
// DESKMARK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/nikbrunner/deskmark/internal/geometry"
	"github.com/nikbrunner/deskmark/internal/storage"
	"github.com/nikbrunner/deskmark/internal/validate"
)

// Config holds application configuration.
type Config struct {
	Storage  StorageConfig
	Canvas   geometry.Size
	Layout   geometry.Layout
	Validate ValidateConfig
	Recent   RecentConfig
}

type StorageConfig struct {
	Backend storage.Backend
	Path    string
}

type ValidateConfig struct {
	Timeout        time.Duration
	Concurrency    int
	ExcludeDomains []string
}

type RecentConfig struct {
	Path string
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	layout := geometry.DefaultLayout()

	v.SetDefault("storage.backend", string(storage.BackendAuto))
	v.SetDefault("storage.path", "")
	v.SetDefault("canvas.width", 1280)
	v.SetDefault("canvas.height", 800)
	v.SetDefault("layout.item_width", layout.Item.Width)
	v.SetDefault("layout.item_height", layout.Item.Height)
	v.SetDefault("layout.spacing", layout.Spacing)
	v.SetDefault("layout.top_margin", layout.TopMargin)
	v.SetDefault("layout.ring_step", layout.RingStep)
	v.SetDefault("layout.angle_step", layout.AngleStep)
	v.SetDefault("layout.max_radius", layout.MaxRadius)
	v.SetDefault("validate.timeout", validate.DefaultTimeout)
	v.SetDefault("validate.concurrency", validate.DefaultConcurrency)
	v.SetDefault("validate.exclude_domains", []string{"github.com", "gitlab.com"})
	v.SetDefault("recent.path", "")
}

// DefaultPath returns ~/.config/deskmark/config.yaml.
func DefaultPath() (string, error) {
	dir, err := storage.DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the config file at path, or the default location when path is
// empty. A missing default file is not an error; a missing explicit file is.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix("DESKMARK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		dir, err := storage.DefaultDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper builds a Config from v and checks it.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Storage: StorageConfig{
			Backend: storage.Backend(strings.ToLower(v.GetString("storage.backend"))),
			Path:    expandHome(v.GetString("storage.path")),
		},
		Canvas: geometry.Size{
			Width:  v.GetFloat64("canvas.width"),
			Height: v.GetFloat64("canvas.height"),
		},
		Layout: geometry.Layout{
			Item: geometry.Size{
				Width:  v.GetFloat64("layout.item_width"),
				Height: v.GetFloat64("layout.item_height"),
			},
			Spacing:   v.GetFloat64("layout.spacing"),
			TopMargin: v.GetFloat64("layout.top_margin"),
			RingStep:  v.GetFloat64("layout.ring_step"),
			AngleStep: v.GetFloat64("layout.angle_step"),
			MaxRadius: v.GetFloat64("layout.max_radius"),
		},
		Validate: ValidateConfig{
			Timeout:        v.GetDuration("validate.timeout"),
			Concurrency:    v.GetInt("validate.concurrency"),
			ExcludeDomains: v.GetStringSlice("validate.exclude_domains"),
		},
		Recent: RecentConfig{
			Path: expandHome(v.GetString("recent.path")),
		},
	}

	if err := cfg.check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) check() error {
	switch c.Storage.Backend {
	case storage.BackendAuto, storage.BackendJSON, storage.BackendSQLite:
	default:
		return fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend)
	}
	if c.Layout.Item.Width <= 0 || c.Layout.Item.Height <= 0 {
		return errors.New("layout: item size must be positive")
	}
	if c.Canvas.Width < c.Layout.Item.Width || c.Canvas.Height < c.Layout.TopMargin+c.Layout.Item.Height {
		return errors.New("canvas: too small to hold a single item")
	}
	if c.Validate.Concurrency < 1 {
		return errors.New("validate.concurrency must be at least 1")
	}
	return nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
