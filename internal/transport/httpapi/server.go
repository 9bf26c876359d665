package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/grounder/internal/domain"
	formatuc "github.com/kailas-cloud/grounder/internal/usecase/format"
	healthuc "github.com/kailas-cloud/grounder/internal/usecase/health"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Searcher is the retrieval surface the transport depends on.
type Searcher interface {
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)
	HybridSearch(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)
}

// SessionCache is the conversation-context surface the transport depends on.
type SessionCache interface {
	GetSessionContext(ctx context.Context, sessionID, projectID, query string) []domain.ContentChunk
	RecordConfidence(sessionID string, confidence float64)
	InvalidateSession(ctx context.Context, sessionID string)
	InvalidateProject(ctx context.Context, projectID string) int
}

// Server exposes the retrieval engine over HTTP.
type Server struct {
	search        Searcher
	sessions      SessionCache
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search Searcher, sessions SessionCache, health *healthuc.Service, logger *zap.Logger) *Server {
	s := &Server{
		search:   search,
		sessions: sessions,
		health:   health,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrMissingScope, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrProjectNotFound, http.StatusNotFound, codeProjectNotFound),
		sentinelHandler(domain.ErrSessionNotFound, http.StatusNotFound, codeSessionNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProviderError),
	}
	return s
}

// Routes mounts every endpoint on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/v1/search", s.PostSearch)
	r.Post("/v1/search/hybrid", s.PostHybridSearch)
	r.Post("/v1/context", s.PostContext)
	r.Post("/v1/context/confidence", s.PostConfidence)
	r.Delete("/v1/context/{sessionID}", s.DeleteContext)
	r.Delete("/v1/projects/{projectID}/caches", s.DeleteProjectCaches)
	r.Get("/health", s.GetHealth)
	r.Get("/metrics", s.Metrics)
}

type searchRequest struct {
	Query           string  `json:"query"`
	TenantID        string  `json:"tenant_id"`
	Limit           int     `json:"limit,omitempty"`
	Threshold       float64 `json:"threshold,omitempty"`
	IncludeDisabled bool    `json:"include_disabled,omitempty"`
}

type searchResultDTO struct {
	ID       string            `json:"id"`
	Source   string            `json:"source"`
	Title    string            `json:"title,omitempty"`
	Content  string            `json:"content"`
	Score    float64           `json:"score"`
	URL      string            `json:"url,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type searchResponse struct {
	Results []searchResultDTO `json:"results"`
	Total   int               `json:"total"`
	Context string            `json:"context"`
}

// PostSearch handles POST /v1/search: the breadth-first multi-source search
// backing the chat-answer flow.
func (s *Server) PostSearch(w http.ResponseWriter, r *http.Request) {
	s.runSearch(w, r, s.search.Search)
}

// PostHybridSearch handles POST /v1/search/hybrid: weighted fusion of the
// semantic and lexical chunk rankings.
func (s *Server) PostHybridSearch(w http.ResponseWriter, r *http.Request) {
	s.runSearch(w, r, s.search.HybridSearch)
}

func (s *Server) runSearch(
	w http.ResponseWriter, r *http.Request,
	run func(context.Context, string, domain.SearchOptions) ([]domain.SearchResult, error),
) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	// Blank queries and missing tenant scope come back as domain sentinels
	// and map to 400 through the handler chain.
	results, err := run(r.Context(), req.Query, domain.SearchOptions{
		TenantID:        req.TenantID,
		Limit:           req.Limit,
		Threshold:       req.Threshold,
		IncludeDisabled: req.IncludeDisabled,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Results: resultsToDTO(results),
		Total:   len(results),
		Context: formatuc.Context(results),
	})
}

type contextRequest struct {
	SessionID string `json:"session_id,omitempty"`
	ProjectID string `json:"project_id"`
	Query     string `json:"query,omitempty"`
}

type chunkDTO struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Content    string `json:"content"`
}

type contextResponse struct {
	SessionID string     `json:"session_id"`
	Chunks    []chunkDTO `json:"chunks"`
	Total     int        `json:"total"`
}

// PostContext handles POST /v1/context: resolves the cached project context
// for a conversation session, loading it on first use. A missing session ID
// starts a new session.
func (s *Server) PostContext(w http.ResponseWriter, r *http.Request) {
	var req contextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	// A known session can recover its project from the durable descriptor,
	// so project_id is only mandatory for brand-new sessions.
	if req.ProjectID == "" && req.SessionID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "Project ID is required for a new session")
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	chunks := s.sessions.GetSessionContext(r.Context(), req.SessionID, req.ProjectID, req.Query)

	dto := make([]chunkDTO, 0, len(chunks))
	for _, c := range chunks {
		dto = append(dto, chunkDTO{ID: c.ID, DocumentID: c.DocumentID, Content: c.Content})
	}
	writeJSON(w, http.StatusOK, contextResponse{
		SessionID: req.SessionID,
		Chunks:    dto,
		Total:     len(dto),
	})
}

type confidenceRequest struct {
	SessionID  string  `json:"session_id"`
	Confidence float64 `json:"confidence"`
}

// PostConfidence handles POST /v1/context/confidence: reports the answer
// confidence of the latest assistant turn so the cache can retire sessions
// whose context stopped helping.
func (s *Server) PostConfidence(w http.ResponseWriter, r *http.Request) {
	var req confidenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "Session ID is required")
		return
	}
	if req.Confidence < 0 || req.Confidence > 1 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "Confidence must be within [0,1]")
		return
	}

	s.sessions.RecordConfidence(req.SessionID, req.Confidence)
	w.WriteHeader(http.StatusNoContent)
}

// DeleteContext handles DELETE /v1/context/{sessionID}.
func (s *Server) DeleteContext(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "Session ID is required")
		return
	}
	s.sessions.InvalidateSession(r.Context(), sessionID)
	w.WriteHeader(http.StatusNoContent)
}

type invalidateResponse struct {
	Invalidated int `json:"invalidated"`
}

// DeleteProjectCaches handles DELETE /v1/projects/{projectID}/caches: drops
// every session entry caching the project, typically after its documents
// changed.
func (s *Server) DeleteProjectCaches(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	if projectID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "Project ID is required")
		return
	}
	n := s.sessions.InvalidateProject(r.Context(), projectID)
	writeJSON(w, http.StatusOK, invalidateResponse{Invalidated: n})
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for name, result := range report.Checks {
		checks[name] = string(result)
	}
	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics, serving Prometheus metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func resultsToDTO(results []domain.SearchResult) []searchResultDTO {
	out := make([]searchResultDTO, 0, len(results))
	for _, r := range results {
		out = append(out, searchResultDTO{
			ID:       r.ID,
			Source:   string(r.Source),
			Title:    r.Title,
			Content:  r.Content,
			Score:    r.Score,
			URL:      r.URL,
			Metadata: r.Metadata,
		})
	}
	return out
}

type errorCode string

const (
	codeBadRequest             errorCode = "bad_request"
	codeValidationFailed       errorCode = "validation_failed"
	codeNotFound               errorCode = "not_found"
	codeProjectNotFound        errorCode = "project_not_found"
	codeSessionNotFound        errorCode = "session_not_found"
	codeEmbeddingProviderError errorCode = "embedding_provider_error"
	codeInternalError          errorCode = "internal_error"
)

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// safeDomainMessage returns a client-facing message for err: the sentinel's
// own text when err wraps a known sentinel, a generic message otherwise.
// Wrapped internals (store addresses, provider payloads) never leak out.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrMissingScope,
		domain.ErrInvalidQuery,
		domain.ErrProjectNotFound,
		domain.ErrSessionNotFound,
		domain.ErrNotFound,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
