package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ornabd/ornabot/internal/aicontext"
	"github.com/ornabd/ornabot/internal/alert"
	"github.com/ornabd/ornabot/internal/cache"
	"github.com/ornabd/ornabot/internal/scheduler"
	"github.com/ornabd/ornabot/internal/session"
	"github.com/ornabd/ornabot/internal/store"
)

type noopReporter struct{}

func (noopReporter) BuildAlert(o *store.Order) string { return "" }

func (noopReporter) BuildReport(ctx context.Context) (string, error) { return "", nil }

func newTestServer(t *testing.T) *Server {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	log := zap.NewNop()
	ctxCache := cache.New(5 * time.Minute)
	sessions := session.NewStore(map[int64]bool{1: true}, 10)
	builder := aicontext.New(st, nil, ctxCache, false, log)

	sched, err := scheduler.New(scheduler.Config{
		OrderPollEvery: time.Minute,
		ReportHour:     21,
	}, nil, st, noopReporter{}, alert.Multi{}, log)
	if err != nil {
		t.Fatalf("building scheduler: %v", err)
	}

	s := &Server{
		store:     st,
		cache:     ctxCache,
		builder:   builder,
		sessions:  sessions,
		scheduler: sched,
		log:       log,
		startedAt: time.Now(),
	}
	s.router = s.buildRouter()
	return s
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestStatusEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}
	var resp statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding status: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q", resp.Status)
	}
}

func TestSessionsEndpointCarriesNoText(t *testing.T) {
	s := newTestServer(t)
	s.sessions.AppendExchange(1, "secret question", "secret answer")

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "secret question") || strings.Contains(body, "secret answer") {
		t.Error("session summaries leaked message text")
	}

	var summaries []session.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &summaries); err != nil {
		t.Fatalf("decoding summaries: %v", err)
	}
	if len(summaries) != 1 || summaries[0].UserID != 1 {
		t.Errorf("summaries = %+v", summaries)
	}
}

func TestCacheInvalidateEndpoint(t *testing.T) {
	s := newTestServer(t)
	if _, err := s.builder.Build(context.Background(), session.RoleAdmin); err != nil {
		t.Fatalf("priming cache: %v", err)
	}
	if s.cache.Stats().Entries != 1 {
		t.Fatal("cache not primed")
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/cache/invalidate", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}
	if s.cache.Stats().Entries != 0 {
		t.Error("cache still has entries after invalidate")
	}
}
