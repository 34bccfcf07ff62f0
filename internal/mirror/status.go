package mirror

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SyncStatus is the persisted single-row sync_status record. The
// in_progress flag is a best-effort mirror of the orchestrator's run
// guard so other processes (the dashboard, the CLI) can read it; the
// guard itself is the authority within a process.
type SyncStatus struct {
	LastSyncTime   *time.Time
	SyncInProgress bool
}

// LoadSyncStatus reads the sync_status row.
func (s *Store) LoadSyncStatus(ctx context.Context) (*SyncStatus, error) {
	var last sql.NullString
	var inProgress int
	err := s.conn.QueryRowContext(ctx,
		`SELECT last_sync_time, sync_in_progress FROM sync_status WHERE id = 1`).
		Scan(&last, &inProgress)
	if err != nil {
		return nil, fmt.Errorf("failed to load sync status: %w", err)
	}
	return &SyncStatus{
		LastSyncTime:   nullStringToTime(last),
		SyncInProgress: inProgress != 0,
	}, nil
}

// SetSyncInProgress flips the persisted in-progress flag.
func (s *Store) SetSyncInProgress(ctx context.Context, inProgress bool) error {
	_, err := s.conn.ExecContext(ctx,
		`UPDATE sync_status SET sync_in_progress = ? WHERE id = 1`, boolToInt(inProgress))
	if err != nil {
		return fmt.Errorf("failed to set sync_in_progress: %w", err)
	}
	return nil
}

// RecordSyncCompleted stores the completion time and clears the
// in-progress flag in one statement.
func (s *Store) RecordSyncCompleted(ctx context.Context, at time.Time) error {
	ts := at.UTC()
	_, err := s.conn.ExecContext(ctx,
		`UPDATE sync_status SET last_sync_time = ?, sync_in_progress = 0 WHERE id = 1`,
		timeToNullString(&ts))
	if err != nil {
		return fmt.Errorf("failed to record sync completion: %w", err)
	}
	return nil
}
