// Package chi exposes the knowledge base over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/knowbase-io/knowbase/internal/domain"
	"github.com/knowbase-io/knowbase/internal/metrics"
	ingestuc "github.com/knowbase-io/knowbase/internal/usecase/ingest"
	knowledgeuc "github.com/knowbase-io/knowbase/internal/usecase/knowledge"
	queryuc "github.com/knowbase-io/knowbase/internal/usecase/query"
	retrievaluc "github.com/knowbase-io/knowbase/internal/usecase/retrieval"
)

// identityHeader carries the caller identity for rate limiting and
// admin gating. Requests without it count as anonymous.
const (
	identityHeader    = "X-Identity"
	anonymousIdentity = "anonymous"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server routes HTTP requests to the pipeline services.
type Server struct {
	query         *queryuc.Service
	retrieval     *retrievaluc.Service
	knowledge     *knowledgeuc.Service
	ingest        *ingestuc.Service
	apiKeys       []string
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	query *queryuc.Service,
	retrieval *retrievaluc.Service,
	knowledge *knowledgeuc.Service,
	ingest *ingestuc.Service,
	apiKeys []string,
	logger *zap.Logger,
) *Server {
	s := &Server{
		query:     query,
		retrieval: retrieval,
		knowledge: knowledge,
		ingest:    ingest,
		apiKeys:   apiKeys,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, "rate_limited"),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, "document_not_found"),
		sentinelHandler(domain.ErrForbidden, http.StatusForbidden, "forbidden"),
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, "validation_failed"),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, "embedding_provider_error"),
		sentinelHandler(domain.ErrGenerationProviderError, http.StatusBadGateway, "generation_provider_error"),
	}
	return s
}

// Router assembles the chi router with the full middleware stack.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(jsonRecoverer(s.logger))
	r.Use(wideEventMiddleware(s.logger))
	r.Use(metrics.Middleware())
	r.Use(BearerAuthMiddleware(s.apiKeys))

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/query", s.HandleQuery)
		r.Post("/retrieve", s.HandleRetrieve)
		r.Post("/documents", s.AddDocument)
		r.Post("/documents/batch", s.AddDocumentsBatch)
		r.Get("/documents", s.ListDocuments)
		r.Delete("/documents/{id}", s.DeleteDocument)
		r.Post("/uploads", s.HandleUpload)
	})

	return r
}

type queryRequest struct {
	Query string `json:"query"`
}

type queryResponse struct {
	Answer     string   `json:"answer"`
	Confidence float64  `json:"confidence"`
	Sources    []string `json:"sources,omitempty"`
	Outcome    string   `json:"outcome"`
	DurationMs int64    `json:"duration_ms"`
}

// HandleQuery handles POST /v1/query.
func (s *Server) HandleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	resp, err := s.query.HandleQuery(r.Context(), identityFrom(r), req.Query)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Answer:     resp.Answer,
		Confidence: resp.Confidence,
		Sources:    resp.Sources,
		Outcome:    resp.Outcome,
		DurationMs: resp.Duration.Milliseconds(),
	})
}

type retrieveResponse struct {
	Documents  []docResponse `json:"documents"`
	Context    string        `json:"context"`
	Confidence float64       `json:"confidence"`
}

// HandleRetrieve handles POST /v1/retrieve. It exposes the retrieval stage
// alone, without answer generation.
func (s *Server) HandleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "query is required")
		return
	}

	result, err := s.retrieval.RetrieveContext(r.Context(), req.Query)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	docs := make([]docResponse, len(result.Documents))
	for i, d := range result.Documents {
		docs[i] = toDocResponse(d, true)
	}

	writeJSON(w, http.StatusOK, retrieveResponse{
		Documents:  docs,
		Context:    result.Context,
		Confidence: result.Confidence,
	})
}

type addDocumentRequest struct {
	Content  string          `json:"content"`
	Metadata domain.Metadata `json:"metadata"`
}

// AddDocument handles POST /v1/documents.
func (s *Server) AddDocument(w http.ResponseWriter, r *http.Request) {
	var req addDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	doc, err := s.knowledge.AddDocument(r.Context(), req.Content, req.Metadata)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toDocResponse(doc, false))
}

type batchAddRequest struct {
	Contents []string        `json:"contents"`
	Metadata domain.Metadata `json:"metadata"`
}

type batchResultItem struct {
	ID    string `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}

type batchAddResponse struct {
	Items     []batchResultItem `json:"items"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
}

// AddDocumentsBatch handles POST /v1/documents/batch.
func (s *Server) AddDocumentsBatch(w http.ResponseWriter, r *http.Request) {
	var req batchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if len(req.Contents) == 0 {
		writeError(w, http.StatusBadRequest, "validation_failed", "contents must not be empty")
		return
	}

	results := s.knowledge.AddDocuments(r.Context(), req.Contents, req.Metadata)

	resp := batchAddResponse{Items: make([]batchResultItem, len(results))}
	for i, res := range results {
		if res.Err != nil {
			resp.Items[i] = batchResultItem{Error: safeDomainMessage(res.Err)}
			resp.Failed++
			continue
		}
		resp.Items[i] = batchResultItem{ID: res.ID}
		resp.Succeeded++
	}

	writeJSON(w, http.StatusOK, resp)
}

// DeleteDocument handles DELETE /v1/documents/{id}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.knowledge.DeleteDocument(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type listDocumentsResponse struct {
	Items []docResponse `json:"items"`
	Total int           `json:"total"`
}

// ListDocuments handles GET /v1/documents with exact-match metadata filters.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.MetadataFilter{
		Source:     q.Get("source"),
		Type:       q.Get("type"),
		Status:     q.Get("status"),
		UploadedBy: q.Get("uploaded_by"),
		FileType:   q.Get("file_type"),
	}

	docs, err := s.knowledge.SearchByMetadata(r.Context(), filter)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]docResponse, len(docs))
	for i, d := range docs {
		items[i] = toDocResponse(d, false)
	}

	writeJSON(w, http.StatusOK, listDocumentsResponse{Items: items, Total: len(items)})
}

type uploadResponse struct {
	Message  string `json:"message"`
	Accepted bool   `json:"accepted"`
	DocID    string `json:"doc_id,omitempty"`
}

// HandleUpload handles POST /v1/uploads.
func (s *Server) HandleUpload(w http.ResponseWriter, r *http.Request) {
	var file domain.FileUpload
	if err := json.NewDecoder(r.Body).Decode(&file); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	resp := s.ingest.HandleUpload(r.Context(), identityFrom(r), file)

	status := http.StatusOK
	if resp.Accepted {
		status = http.StatusCreated
	}
	writeJSON(w, status, uploadResponse{
		Message:  resp.Message,
		Accepted: resp.Accepted,
		DocID:    resp.DocID,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

type docResponse struct {
	ID         string          `json:"id"`
	Content    string          `json:"content"`
	Metadata   domain.Metadata `json:"metadata"`
	CreatedAt  string          `json:"created_at,omitempty"`
	Similarity float64         `json:"similarity,omitempty"`
}

// toDocResponse maps a domain document to the wire shape. Embeddings never
// leave the service; similarity appears only on retrieval results.
func toDocResponse(d domain.Document, withScore bool) docResponse {
	resp := docResponse{
		ID:       d.ID,
		Content:  d.Content,
		Metadata: d.Metadata,
	}
	if !d.CreatedAt.IsZero() {
		resp.CreatedAt = d.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	if withScore {
		resp.Similarity = d.Similarity
	}
	return resp
}

func identityFrom(r *http.Request) string {
	if id := r.Header.Get(identityHeader); id != "" {
		return id
	}
	return anonymousIdentity
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrValidation,
		domain.ErrForbidden,
		domain.ErrRateLimited,
		domain.ErrEmbeddingProviderError,
		domain.ErrGenerationProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
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
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}

// jsonRecoverer converts panics into JSON 500 responses.
func jsonRecoverer(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("panic", rec))
					writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
