package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blogsync.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MirrorPath != ".blogsync/mirror.db" {
		t.Errorf("MirrorPath = %q", cfg.MirrorPath)
	}
	if cfg.Sync.Workers != 4 {
		t.Errorf("Workers = %d", cfg.Sync.Workers)
	}
	if cfg.Dedupe.TitleThreshold != 0.8 {
		t.Errorf("TitleThreshold = %v", cfg.Dedupe.TitleThreshold)
	}
	if cfg.Daemon.DebounceInterval != 200*time.Millisecond {
		t.Errorf("DebounceInterval = %v", cfg.Daemon.DebounceInterval)
	}
}

func TestLoadFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
mirror_path: /tmp/test-mirror.db
dashboard_port: 9090
github:
  owner: kaiwen
  repo: blog
  token: ghp_test
sync:
  remote_root: posts
  workers: 8
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MirrorPath != "/tmp/test-mirror.db" {
		t.Errorf("MirrorPath = %q", cfg.MirrorPath)
	}
	if cfg.DashboardPort != 9090 {
		t.Errorf("DashboardPort = %d", cfg.DashboardPort)
	}
	if !cfg.HasGitHub() || cfg.GitHub.Owner != "kaiwen" {
		t.Errorf("GitHub = %+v", cfg.GitHub)
	}
	if cfg.Sync.RemoteRoot != "posts" || cfg.Sync.Workers != 8 {
		t.Errorf("Sync = %+v", cfg.Sync)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("BLOGSYNC_GITHUB_TOKEN", "from-env")
	t.Setenv("BLOGSYNC_SYNC_WORKERS", "2")

	cfg, err := Load(writeConfig(t, "github:\n  token: from-file\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GitHub.Token != "from-env" {
		t.Errorf("Token = %q, want env to win", cfg.GitHub.Token)
	}
	if cfg.Sync.Workers != 2 {
		t.Errorf("Workers = %d, want 2", cfg.Sync.Workers)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MirrorPath == "" {
		t.Error("defaults not applied")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty mirror path", func(c *Config) { c.MirrorPath = "" }},
		{"zero workers", func(c *Config) { c.Sync.Workers = 0 }},
		{"threshold above one", func(c *Config) { c.Dedupe.TitleThreshold = 1.5 }},
		{"zero threshold", func(c *Config) { c.Dedupe.ContentThreshold = 0 }},
		{"zero debounce", func(c *Config) { c.Daemon.DebounceInterval = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, "{}\n"))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
