package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kaiwen/blogsync/internal/config"
	"github.com/kaiwen/blogsync/internal/dedupe"
	"github.com/kaiwen/blogsync/internal/logging"
	"github.com/kaiwen/blogsync/internal/mirror"
	"github.com/kaiwen/blogsync/internal/repo"
	"github.com/kaiwen/blogsync/internal/slug"
	"github.com/kaiwen/blogsync/internal/syncer"
)

// app bundles the wired collaborators behind every command.
type app struct {
	cfg   *config.Config
	sink  *logging.Sink
	store *mirror.Store
	local *repo.LocalClient
	orch  *syncer.Orchestrator
}

// loadApp builds the full application from configuration. Commands
// call this in their Run funcs and exit on error.
func loadApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	sink, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	store, err := mirror.Open(cfg.MirrorPath)
	if err != nil {
		sink.Close()
		return nil, fmt.Errorf("failed to open mirror: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		sink.Close()
		return nil, fmt.Errorf("failed to migrate mirror schema: %w", err)
	}

	local, err := repo.NewLocalClient(cfg.Sync.ContentDir)
	if err != nil {
		store.Close()
		sink.Close()
		return nil, err
	}

	// Without a configured GitHub repository the local tree doubles as
	// the remote, which keeps single-machine setups working.
	var remote repo.Client = local
	if cfg.HasGitHub() {
		remote, err = repo.NewGitHubClient(repo.GitHubConfig{
			Owner:   cfg.GitHub.Owner,
			Repo:    cfg.GitHub.Repo,
			Branch:  cfg.GitHub.Branch,
			Token:   cfg.GitHub.Token,
			BaseURL: cfg.GitHub.BaseURL,
		})
		if err != nil {
			store.Close()
			sink.Close()
			return nil, err
		}
	}

	orch, err := syncer.New(syncer.Config{
		Store:      store,
		Remote:     remote,
		Local:      local,
		Resolver:   &slug.Resolver{},
		Logger:     sink.Logger("sync"),
		RemoteRoot: cfg.Sync.RemoteRoot,
		Workers:    cfg.Sync.Workers,
		DedupeOpts: dedupe.Options{
			TitleThreshold:   cfg.Dedupe.TitleThreshold,
			ContentThreshold: cfg.Dedupe.ContentThreshold,
			MinContentLength: cfg.Dedupe.MinContentLength,
		},
		BackupCommand: cfg.Sync.BackupCommand,
	})
	if err != nil {
		store.Close()
		sink.Close()
		return nil, err
	}

	return &app{cfg: cfg, sink: sink, store: store, local: local, orch: orch}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close mirror: %v\n", err)
	}
	a.sink.Close()
}

// mustLoadApp is the command-entry wrapper: load or exit.
func mustLoadApp(ctx context.Context) *app {
	a, err := loadApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return a
}
