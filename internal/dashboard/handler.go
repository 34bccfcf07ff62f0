package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/kaiwen/blogsync/internal/syncer"
)

// SyncService is the slice of the sync orchestrator the dashboard
// exposes over HTTP. *syncer.Orchestrator satisfies it.
type SyncService interface {
	Run(ctx context.Context, direction syncer.Direction, mode syncer.Mode) (*syncer.Result, error)
	Status(ctx context.Context) (*syncer.StatusInfo, error)
}

// triggerRequest is the POST /api/sync body. Both fields are optional:
// the default run is a standard from-remote pull.
type triggerRequest struct {
	Direction string `json:"direction"`
	Mode      string `json:"mode"`
}

// handleSyncStatus serves GET /api/sync/status.
func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	info, err := s.sync.Status(r.Context())
	if err != nil {
		s.logger.Printf("Status query failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load sync status")
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// handleSyncTrigger serves POST /api/sync. The run executes on the
// request and its result is the response body; a run already in
// progress answers 409 without touching any state or emitting events.
func (s *Server) handleSyncTrigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Direction == "" {
		req.Direction = string(syncer.DirectionFromRemote)
	}

	direction, err := syncer.ParseDirection(req.Direction)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	mode, err := syncer.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The run executes synchronously, so events are emitted only once
	// the guard has admitted it. A rejected trigger must not leave an
	// orphan sync_started with no matching sync_complete.
	start := time.Now()
	result, err := s.sync.Run(r.Context(), direction, mode)
	if errors.Is(err, syncer.ErrSyncInProgress) {
		writeError(w, http.StatusConflict, "sync already in progress")
		return
	}
	if err != nil {
		s.logger.Printf("Sync run failed: %v", err)
		writeError(w, http.StatusInternalServerError, "sync run failed")
		return
	}

	s.broadcastEvent(MessageTypeSyncStarted, SyncStartedData{
		Direction: string(direction),
		Mode:      string(mode),
	})
	s.broadcastEvent(MessageTypeSyncComplete, SyncCompleteData{
		Direction: string(direction),
		Mode:      string(mode),
		Success:   result.Success,
		Processed: result.Processed,
		Errors:    result.Errors,
		Duration:  time.Since(start),
	})

	if info, err := s.sync.Status(r.Context()); err == nil {
		s.broadcastEvent(MessageTypeQueueUpdate, QueueUpdateData{
			PendingCount: info.PendingOperationCount,
		})
	}

	writeJSON(w, http.StatusOK, result)
}

// broadcastEvent marshals data into a dashboard message and queues it.
func (s *Server) broadcastEvent(msgType MessageType, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		s.logger.Printf("Failed to marshal %s event: %v", msgType, err)
		return
	}
	s.Broadcast(Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Data:      payload,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
