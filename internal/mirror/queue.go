package mirror

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Queue item status values. Transitions: pending -> processing ->
// {success | error}. Errored items are not re-enqueued automatically;
// the orchestrator decides per run.
const (
	QueueStatusPending    = "pending"
	QueueStatusProcessing = "processing"
	QueueStatusSuccess    = "success"
	QueueStatusError      = "error"
)

// Queue operation kinds.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// QueueItem is one pending mutation bound for the content repository.
// Target is a slug for create/update and a repository path for delete
// (the post is already gone from the mirror by then).
type QueueItem struct {
	ID          string
	Operation   string
	Target      string
	Status      string
	ErrorDetail string
	Recoverable bool
	CreatedAt   time.Time
}

// Enqueue persists a pending operation immediately so a crash cannot
// lose queued work. Duplicate enqueues for the same target are allowed.
// Returns the item id.
func (s *Store) Enqueue(ctx context.Context, operation, target string) (string, error) {
	switch operation {
	case OpCreate, OpUpdate, OpDelete:
	default:
		return "", fmt.Errorf("unknown queue operation %q", operation)
	}

	id := uuid.NewString()
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO sync_queue (id, operation, target, status, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		id, operation, target, QueueStatusPending, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("failed to enqueue %s %s: %w", operation, target, err)
	}
	return id, nil
}

// SetQueueStatus records the outcome of processing an item.
func (s *Store) SetQueueStatus(ctx context.Context, id, status, errorDetail string, recoverable bool) error {
	res, err := s.conn.ExecContext(ctx, `
		UPDATE sync_queue SET status = ?, error_detail = ?, recoverable = ?
		WHERE id = ?`,
		status, errorDetail, boolToInt(recoverable), id)
	if err != nil {
		return fmt.Errorf("failed to update queue item %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("queue item %s not found", id)
	}
	return nil
}

// ListPending returns pending items in FIFO order by enqueue time.
func (s *Store) ListPending(ctx context.Context) ([]QueueItem, error) {
	return s.listQueue(ctx, `WHERE status = ?`, QueueStatusPending)
}

// ListQueue returns every queue item, newest last. Retained items serve
// as an audit trail until pruned.
func (s *Store) ListQueue(ctx context.Context) ([]QueueItem, error) {
	return s.listQueue(ctx, "")
}

func (s *Store) listQueue(ctx context.Context, where string, args ...interface{}) ([]QueueItem, error) {
	query := `SELECT id, operation, target, status, error_detail, recoverable, created_at
	          FROM sync_queue ` + where + ` ORDER BY created_at ASC, id ASC`

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue: %w", err)
	}
	defer rows.Close()

	var out []QueueItem
	for rows.Next() {
		var item QueueItem
		var recoverable int
		var createdAt string
		if err := rows.Scan(&item.ID, &item.Operation, &item.Target, &item.Status,
			&item.ErrorDetail, &recoverable, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan queue item: %w", err)
		}
		item.Recoverable = recoverable != 0
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			item.CreatedAt = ts
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// GetQueueItem retrieves a single item by id.
func (s *Store) GetQueueItem(ctx context.Context, id string) (*QueueItem, error) {
	var item QueueItem
	var recoverable int
	var createdAt string
	err := s.conn.QueryRowContext(ctx, `
		SELECT id, operation, target, status, error_detail, recoverable, created_at
		FROM sync_queue WHERE id = ?`, id).
		Scan(&item.ID, &item.Operation, &item.Target, &item.Status,
			&item.ErrorDetail, &recoverable, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("queue item %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get queue item %s: %w", id, err)
	}
	item.Recoverable = recoverable != 0
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		item.CreatedAt = ts
	}
	return &item, nil
}

// PendingCount returns the number of items still waiting.
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	var n int
	err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sync_queue WHERE status = ?`, QueueStatusPending).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending items: %w", err)
	}
	return n, nil
}

// PruneQueue deletes completed and errored items older than the cutoff.
// Pending and processing items are never pruned. Returns the number of
// rows removed.
func (s *Store) PruneQueue(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.conn.ExecContext(ctx, `
		DELETE FROM sync_queue
		WHERE status IN (?, ?) AND created_at < ?`,
		QueueStatusSuccess, QueueStatusError, olderThan.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("failed to prune queue: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read pruned count: %w", err)
	}
	return n, nil
}
