// Package progress implements the Progress/Event Sink of spec §4.8: a
// ports.ProgressSink that keeps the last event of each job plus an
// optional Broadcaster (the HTTP websocket hub wires itself in via
// SetBroadcaster).
package progress

import (
	"log/slog"
	"sync"

	"subtrans/internal/domain"
)

// Broadcaster is implemented by anything that wants a copy of every
// event fanned out as it happens (the websocket hub).
type Broadcaster interface {
	BroadcastProgress(domain.ProgressEvent)
	BroadcastWarning(domain.WarningEvent)
	BroadcastError(domain.ErrorEvent)
}

// Hub is a ports.ProgressSink implementation that keeps the most
// recent event per job (for late subscribers / HTTP polling) and
// forwards every event to an optional Broadcaster.
type Hub struct {
	logger *slog.Logger

	mu      sync.RWMutex
	last    map[domain.JobID]domain.ProgressEvent
	bcaster Broadcaster
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger: logger,
		last:   make(map[domain.JobID]domain.ProgressEvent),
	}
}

// SetBroadcaster wires a Broadcaster after construction (the HTTP
// server creates its websocket hub after the Hub itself, to avoid an
// import cycle between internal/progress and internal/api/http).
func (h *Hub) SetBroadcaster(b Broadcaster) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bcaster = b
}

func (h *Hub) Progress(evt domain.ProgressEvent) {
	h.mu.Lock()
	h.last[evt.JobID] = evt
	b := h.bcaster
	h.mu.Unlock()

	h.logger.Debug("job progress",
		slog.String("jobId", string(evt.JobID)),
		slog.String("stage", string(evt.Stage)),
		slog.Int("percent", evt.Percent),
	)
	if b != nil {
		b.BroadcastProgress(evt)
	}
}

func (h *Hub) Warning(evt domain.WarningEvent) {
	h.mu.RLock()
	b := h.bcaster
	h.mu.RUnlock()

	h.logger.Warn("job warning", slog.String("jobId", string(evt.JobID)), slog.String("detail", evt.Detail))
	if b != nil {
		b.BroadcastWarning(evt)
	}
}

func (h *Hub) Error(evt domain.ErrorEvent) {
	h.mu.RLock()
	b := h.bcaster
	h.mu.RUnlock()

	h.logger.Error("job error",
		slog.String("jobId", string(evt.JobID)),
		slog.String("kind", evt.Kind),
		slog.String("detail", evt.Detail),
	)
	if b != nil {
		b.BroadcastError(evt)
	}
}

// Last returns the most recently reported progress event for a job,
// used by the HTTP job-status endpoint for clients that connect after
// the event was emitted (the websocket stream only carries live
// updates, not history).
func (h *Hub) Last(jobID domain.JobID) (domain.ProgressEvent, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	evt, ok := h.last[jobID]
	return evt, ok
}

// Forget drops a completed job's cached progress snapshot.
func (h *Hub) Forget(jobID domain.JobID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.last, jobID)
}
