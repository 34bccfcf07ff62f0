package syncer

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kaiwen/blogsync/internal/dedupe"
	"github.com/kaiwen/blogsync/internal/mirror"
	"github.com/kaiwen/blogsync/internal/repo"
	"github.com/kaiwen/blogsync/internal/slug"
)

// Direction selects which way content flows in a run.
type Direction string

const (
	DirectionToRemote      Direction = "to-remote"
	DirectionFromRemote    Direction = "from-remote"
	DirectionBidirectional Direction = "bidirectional"
	DirectionToLocal       Direction = "to-local"
	DirectionFromLocal     Direction = "from-local"
)

// ParseDirection validates a direction string from CLI or HTTP input.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case DirectionToRemote, DirectionFromRemote, DirectionBidirectional,
		DirectionToLocal, DirectionFromLocal:
		return d, nil
	}
	return "", fmt.Errorf("unknown sync direction %q", s)
}

// Mode selects extra behavior layered on top of the direction.
type Mode string

const (
	ModeStandard Mode = "standard"
	// ModeEnhanced runs the duplicate detector with merge side effects
	// after the directional sync.
	ModeEnhanced Mode = "enhanced"
	// ModeExternalBackup shells out to a configured backup command
	// instead of touching the queue or the content repository.
	ModeExternalBackup Mode = "external-backup"
)

// ParseMode validates a mode string from CLI or HTTP input.
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return ModeStandard, nil
	}
	switch m := Mode(s); m {
	case ModeStandard, ModeEnhanced, ModeExternalBackup:
		return m, nil
	}
	return "", fmt.Errorf("unknown sync mode %q", s)
}

// Orchestrator drives sync runs between the content repository, the
// local content directory, and the relational mirror. One orchestrator
// serves the whole process; its guard rejects overlapping runs.
type Orchestrator struct {
	store    *mirror.Store
	remote   repo.Client
	local    *repo.LocalClient
	resolver *slug.Resolver
	logger   *log.Logger

	// remoteRoot is the repository path that holds article files,
	// e.g. content/posts.
	remoteRoot string
	workers    int
	dedupeOpts dedupe.Options
	backupCmd  []string

	guard Guard
	// writeMu serializes mirror write transactions during concurrent
	// ingest; reads from the content repository stay parallel.
	writeMu sync.Mutex
}

// Config carries the collaborators an Orchestrator needs. Store and
// Remote are required; Local is only needed for the to-local and
// from-local directions.
type Config struct {
	Store      *mirror.Store
	Remote     repo.Client
	Local      *repo.LocalClient
	Resolver   *slug.Resolver
	Logger     *log.Logger
	RemoteRoot string
	Workers    int
	DedupeOpts dedupe.Options
	// BackupCommand is argv for external-backup mode.
	BackupCommand []string
}

const defaultWorkers = 4

// New builds an Orchestrator from cfg.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("syncer: mirror store is required")
	}
	if cfg.Remote == nil {
		return nil, fmt.Errorf("syncer: content repository client is required")
	}
	if cfg.Resolver == nil {
		cfg.Resolver = &slug.Resolver{}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	return &Orchestrator{
		store:      cfg.Store,
		remote:     cfg.Remote,
		local:      cfg.Local,
		resolver:   cfg.Resolver,
		logger:     cfg.Logger,
		remoteRoot: cfg.RemoteRoot,
		workers:    cfg.Workers,
		dedupeOpts: cfg.DedupeOpts,
		backupCmd:  cfg.BackupCommand,
	}, nil
}

func (o *Orchestrator) logf(format string, args ...interface{}) {
	if o.logger != nil {
		o.logger.Printf(format, args...)
	}
}

// Run executes one sync run. The only error it returns is
// ErrSyncInProgress; every other failure is folded into the Result so
// callers always get a well-formed outcome.
func (o *Orchestrator) Run(ctx context.Context, direction Direction, mode Mode) (*Result, error) {
	if !o.guard.TryAcquire() {
		return nil, ErrSyncInProgress
	}
	defer o.guard.Release()

	start := time.Now()
	o.logf("sync run started: direction=%s mode=%s", direction, mode)

	if err := o.store.SetSyncInProgress(ctx, true); err != nil {
		return failure(fmt.Errorf("failed to mark sync in progress: %w", err)), nil
	}
	defer func() {
		// Clears the persisted flag even when the run failed;
		// RecordSyncCompleted below already did both on success.
		if err := o.store.SetSyncInProgress(context.WithoutCancel(ctx), false); err != nil {
			o.logf("failed to clear sync-in-progress flag: %v", err)
		}
	}()

	// Stale reads from a previous run must not leak into this one.
	o.remote.InvalidateCache()

	result := o.dispatch(ctx, direction, mode)

	if result.Success {
		if err := o.store.RecordSyncCompleted(ctx, time.Now().UTC()); err != nil {
			o.logf("failed to record sync completion: %v", err)
		}
	}

	o.logf("sync run finished in %s: success=%t processed=%d errors=%d",
		time.Since(start).Round(time.Millisecond), result.Success, result.Processed, result.Errors)
	return result, nil
}

func (o *Orchestrator) dispatch(ctx context.Context, direction Direction, mode Mode) *Result {
	if mode == ModeExternalBackup {
		return o.runBackup(ctx)
	}

	var result *Result
	switch direction {
	case DirectionFromRemote:
		result = o.syncFromRepo(ctx, o.remote, o.remoteRoot, "")
	case DirectionToRemote:
		result = o.syncToRemote(ctx)
	case DirectionBidirectional:
		result = o.syncBidirectional(ctx)
	case DirectionFromLocal:
		if o.local == nil {
			return failure(fmt.Errorf("local content directory not configured"))
		}
		result = o.syncFromRepo(ctx, o.local, "", o.remoteRoot)
	case DirectionToLocal:
		if o.local == nil {
			return failure(fmt.Errorf("local content directory not configured"))
		}
		result = o.syncToLocal(ctx)
	default:
		return failure(fmt.Errorf("unknown sync direction %q", direction))
	}

	if mode == ModeEnhanced && result.Success {
		o.runDedupePass(ctx, result)
	}
	return result
}

func (o *Orchestrator) syncBidirectional(ctx context.Context) *Result {
	fromRemote := o.syncFromRepo(ctx, o.remote, o.remoteRoot, "")
	toRemote := o.syncToRemote(ctx)

	combined := &Result{
		Success:    fromRemote.Success && toRemote.Success,
		FromRemote: fromRemote.stats(),
		ToRemote:   toRemote.stats(),
	}
	combined.merge(fromRemote)
	combined.merge(toRemote)
	return combined
}

// Maintenance runs fn while holding the run guard, so slug-hygiene and
// duplicate-merge passes cannot interleave with a directional sync.
// Returns ErrSyncInProgress without calling fn when a run is active.
func (o *Orchestrator) Maintenance(fn func() error) error {
	if !o.guard.TryAcquire() {
		return ErrSyncInProgress
	}
	defer o.guard.Release()
	return fn()
}

// StatusInfo is the operational view served to dashboards.
type StatusInfo struct {
	Status                string     `json:"status"`
	LastSyncTimestamp     *time.Time `json:"lastSyncTimestamp"`
	PendingOperationCount int        `json:"pendingOperationCount"`
}

// Status reports whether a run is active, when the last one completed,
// and how much queued work is waiting.
func (o *Orchestrator) Status(ctx context.Context) (*StatusInfo, error) {
	info := &StatusInfo{Status: "idle"}
	if o.guard.Active() {
		info.Status = "syncing"
	}

	st, err := o.store.LoadSyncStatus(ctx)
	if err != nil {
		return nil, err
	}
	info.LastSyncTimestamp = st.LastSyncTime

	pending, err := o.store.PendingCount(ctx)
	if err != nil {
		return nil, err
	}
	info.PendingOperationCount = pending
	return info, nil
}
