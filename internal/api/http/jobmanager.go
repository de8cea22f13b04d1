package apihttp

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"subtrans/internal/domain"
	"subtrans/internal/history"
	"subtrans/internal/journal"
	"subtrans/internal/orchestrator"
	"subtrans/internal/progress"
)

// jobManager tracks in-flight jobs so the HTTP layer can cancel them
// and answer status queries, bridging the orchestrator's blocking
// Run call with the request/response shape of the API.
type jobManager struct {
	orch    *orchestrator.Orchestrator
	hub     *progress.Hub
	journal *journal.Journal
	history *history.Store

	mu      sync.Mutex
	cancels map[domain.JobID]context.CancelFunc
}

func newJobManager(orch *orchestrator.Orchestrator, hub *progress.Hub, j *journal.Journal, h *history.Store) *jobManager {
	return &jobManager{
		orch:    orch,
		hub:     hub,
		journal: j,
		history: h,
		cancels: make(map[domain.JobID]context.CancelFunc),
	}
}

// start assigns a job ID up front (so it can be tracked for cancellation
// and returned to the caller before the pipeline finishes), then runs
// Run on a detached goroutine. Run itself blocks for the whole
// pipeline, so callers get the ID back immediately and poll status via
// the progress hub / history store.
func (m *jobManager) start(parent context.Context, req orchestrator.JobRequest) domain.JobID {
	req.JobID = domain.JobID(uuid.NewString())

	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	m.track(req.JobID, cancel)

	go func() {
		defer cancel()
		job, err := m.orch.Run(ctx, req)
		if job != nil {
			m.untrack(job.ID)
			if m.history != nil {
				_ = m.history.Record(context.Background(), job)
			}
			if m.hub != nil {
				m.hub.Forget(job.ID)
			}
		} else {
			m.untrack(req.JobID)
		}
		_ = err // already journaled by the orchestrator; nothing more to do here
	}()

	return req.JobID
}

func (m *jobManager) track(id domain.JobID, cancel context.CancelFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancels[id] = cancel
}

func (m *jobManager) untrack(id domain.JobID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cancels, id)
}

// cancelJob requests cancellation of a running job. It reports whether the
// job was found among currently-tracked jobs.
func (m *jobManager) cancelJob(id domain.JobID) bool {
	m.mu.Lock()
	cancel, ok := m.cancels[id]
	m.mu.Unlock()
	if !ok {
		return false
	}
	cancel()
	return true
}
