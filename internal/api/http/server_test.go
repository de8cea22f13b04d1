package apihttp

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"subtrans/internal/backend"
	"subtrans/internal/cache"
	"subtrans/internal/domain"
	"subtrans/internal/journal"
	"subtrans/internal/orchestrator"
	"subtrans/internal/progress"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	store, err := cache.NewStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("cache.NewStore: %v", err)
	}

	cfg := orchestrator.DefaultConfig()
	cfg.InterBatchPacing = 0
	orch := orchestrator.New(store, nil, nil, nil, nil, nil, cfg)

	reg, err := backend.NewRegistry(map[string]domain.ProviderConfig{
		"mymemory": {},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	hub := progress.NewHub(nil)
	j := journal.New(10)

	return NewServer(orch, reg, hub, j)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestCreateJobRejectsMissingFields(t *testing.T) {
	s := newTestServer(t)
	body, _ := json.Marshal(createJobRequest{})
	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateJobRejectsUnconfiguredBackend(t *testing.T) {
	s := newTestServer(t)
	body, _ := json.Marshal(createJobRequest{
		SourceURI:      "movie.srt",
		TargetLanguage: "fr",
		Backends:       []string{"deepl"},
	})
	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestJobStatusUnknownID(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/jobs/does-not-exist", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestCancelUnknownJob(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodDelete, "/jobs/does-not-exist", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestJournalEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.journal.Record("auth", "bad key", nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/journal", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var recs []domain.ErrorRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &recs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("len(recs) = %d, want 1", len(recs))
	}

	req = httptest.NewRequest(http.MethodGet, "/journal/export", nil)
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d, want 200", rec.Code)
	}
}

func TestHistoryEndpointWithoutStore(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/history", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestCreateJobAccepted(t *testing.T) {
	s := newTestServer(t)
	body, _ := json.Marshal(createJobRequest{
		SourceURI:      "movie.srt",
		TargetLanguage: "fr",
		Backends:       []string{"mymemory"},
	})
	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}

	var resp createJobResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.JobID == "" {
		t.Fatal("expected non-empty jobId")
	}

	// The job runs asynchronously against a non-existent local file, so
	// it fails quickly; just give it a moment to finish so the
	// goroutine doesn't leak past the test.
	time.Sleep(50 * time.Millisecond)
}
