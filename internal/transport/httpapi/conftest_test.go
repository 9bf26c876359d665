package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/grounder/internal/domain"
	healthuc "github.com/kailas-cloud/grounder/internal/usecase/health"
)

type mockSearcher struct {
	results    []domain.SearchResult
	err        error
	hybridErr  error
	lastQuery  string
	lastOpts   domain.SearchOptions
	hybridCall bool
}

func (m *mockSearcher) Search(
	_ context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	m.lastQuery = query
	m.lastOpts = opts
	return m.results, m.err
}

func (m *mockSearcher) HybridSearch(
	_ context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	m.hybridCall = true
	m.lastQuery = query
	m.lastOpts = opts
	if m.hybridErr != nil {
		return nil, m.hybridErr
	}
	return m.results, m.err
}

type mockSessions struct {
	chunks             []domain.ContentChunk
	lastSessionID      string
	lastProjectID      string
	lastQuery          string
	recordedConfidence float64
	confidenceRecorded bool
	invalidatedSession string
	invalidatedProject string
	invalidateProjectN int
}

func (m *mockSessions) GetSessionContext(
	_ context.Context, sessionID, projectID, query string,
) []domain.ContentChunk {
	m.lastSessionID = sessionID
	m.lastProjectID = projectID
	m.lastQuery = query
	return m.chunks
}

func (m *mockSessions) RecordConfidence(sessionID string, confidence float64) {
	m.lastSessionID = sessionID
	m.recordedConfidence = confidence
	m.confidenceRecorded = true
}

func (m *mockSessions) InvalidateSession(_ context.Context, sessionID string) {
	m.invalidatedSession = sessionID
}

func (m *mockSessions) InvalidateProject(_ context.Context, projectID string) int {
	m.invalidatedProject = projectID
	return m.invalidateProjectN
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type fixture struct {
	search   *mockSearcher
	sessions *mockSessions
	pinger   *stubPinger
	router   *chi.Mux
}

func newFixture() *fixture {
	f := &fixture{
		search:   &mockSearcher{},
		sessions: &mockSessions{},
		pinger:   &stubPinger{},
	}
	srv := NewServer(f.search, f.sessions, healthuc.New(f.pinger, nil), zap.NewNop())
	f.router = chi.NewRouter()
	srv.Routes(f.router)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, http.NoBody)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, r)
	return rr
}
