// Package config loads blogsync configuration from a YAML file plus
// BLOGSYNC_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// GitHub identifies the remote content repository.
type GitHub struct {
	Owner  string `mapstructure:"owner"`
	Repo   string `mapstructure:"repo"`
	Branch string `mapstructure:"branch"`
	Token  string `mapstructure:"token"`
	// BaseURL overrides the public API host, for GitHub Enterprise.
	BaseURL string `mapstructure:"base_url"`
}

// Sync tunes the orchestrator.
type Sync struct {
	// RemoteRoot is the repository path holding article files.
	RemoteRoot string `mapstructure:"remote_root"`
	// ContentDir is the local working copy of the article tree.
	ContentDir string `mapstructure:"content_dir"`
	// Workers bounds concurrent article reads during from-remote.
	Workers int `mapstructure:"workers"`
	// BackupCommand is argv for external-backup mode.
	BackupCommand []string `mapstructure:"backup_command"`
}

// Dedupe tunes the duplicate detector.
type Dedupe struct {
	TitleThreshold   float64 `mapstructure:"title_threshold"`
	ContentThreshold float64 `mapstructure:"content_threshold"`
	MinContentLength int     `mapstructure:"min_content_length"`
}

// Daemon tunes the file watcher.
type Daemon struct {
	DebounceInterval time.Duration `mapstructure:"debounce_interval"`
}

// Log configures file logging.
type Log struct {
	// File is the log path; empty logs to stderr only.
	File string `mapstructure:"file"`
	// MaxSizeMB rotates the file once it grows past this size.
	MaxSizeMB  int `mapstructure:"max_size_mb"`
	MaxBackups int `mapstructure:"max_backups"`
	MaxAgeDays int `mapstructure:"max_age_days"`
}

// Config is the full blogsync configuration.
type Config struct {
	// MirrorPath is the SQLite file, or a libsql:// URL for a hosted
	// Turso database.
	MirrorPath string `mapstructure:"mirror_path"`
	// DashboardPort is where blogsync serve listens.
	DashboardPort int `mapstructure:"dashboard_port"`

	GitHub GitHub `mapstructure:"github"`
	Sync   Sync   `mapstructure:"sync"`
	Dedupe Dedupe `mapstructure:"dedupe"`
	Daemon Daemon `mapstructure:"daemon"`
	Log    Log    `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mirror_path", ".blogsync/mirror.db")
	v.SetDefault("dashboard_port", 8080)
	v.SetDefault("github.branch", "")
	v.SetDefault("sync.remote_root", "content/posts")
	v.SetDefault("sync.content_dir", "content")
	v.SetDefault("sync.workers", 4)
	v.SetDefault("dedupe.title_threshold", 0.8)
	v.SetDefault("dedupe.content_threshold", 0.8)
	v.SetDefault("dedupe.min_content_length", 200)
	v.SetDefault("daemon.debounce_interval", 200*time.Millisecond)
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
}

// Load reads configuration from path (or the default search locations
// when path is empty) and applies BLOGSYNC_* environment overrides.
// A missing config file is not an error; defaults and environment
// still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BLOGSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("blogsync")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/blogsync")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the rest of the program would choke
// on later.
func (c *Config) Validate() error {
	if c.MirrorPath == "" {
		return fmt.Errorf("mirror_path is required")
	}
	if c.Sync.Workers <= 0 {
		return fmt.Errorf("sync.workers must be positive (got %d)", c.Sync.Workers)
	}
	if c.Dedupe.TitleThreshold <= 0 || c.Dedupe.TitleThreshold > 1 {
		return fmt.Errorf("dedupe.title_threshold must be in (0, 1] (got %v)", c.Dedupe.TitleThreshold)
	}
	if c.Dedupe.ContentThreshold <= 0 || c.Dedupe.ContentThreshold > 1 {
		return fmt.Errorf("dedupe.content_threshold must be in (0, 1] (got %v)", c.Dedupe.ContentThreshold)
	}
	if c.Daemon.DebounceInterval <= 0 {
		return fmt.Errorf("daemon.debounce_interval must be positive")
	}
	return nil
}

// HasGitHub reports whether a remote repository is configured.
func (c *Config) HasGitHub() bool {
	return c.GitHub.Owner != "" && c.GitHub.Repo != ""
}
