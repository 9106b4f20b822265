// Package chi exposes the search and ingestion pipelines over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	cehttp "github.com/cloudevents/sdk-go/v2/protocol/http"
	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/photodex/internal/domain"
	dombatch "github.com/kailas-cloud/photodex/internal/domain/batch"
	"github.com/kailas-cloud/photodex/internal/domain/notification"
	"github.com/kailas-cloud/photodex/internal/logger"
	"github.com/kailas-cloud/photodex/internal/transport/events"
	healthuc "github.com/kailas-cloud/photodex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/photodex/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/photodex/internal/usecase/search"
)

// maxBodyBytes bounds ingestion request bodies.
const maxBodyBytes = 1 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server holds the HTTP handlers.
type Server struct {
	search        *searchuc.Service
	ingest        *ingestuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	ingest *ingestuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search: search,
		ingest: ingest,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrMissingQuery, http.StatusBadRequest, "Missing query parameter"),
		sentinelHandler(domain.ErrPhotoNotFound, http.StatusNotFound, "Photo not found"),
		sentinelHandler(domain.ErrInvalidRecord, http.StatusBadRequest, "Invalid record"),
		sentinelHandler(domain.ErrIndexQueryFailure, http.StatusInternalServerError, "Search failed"),
	}
	return s
}

// Mount registers the routes on r. Ingestion routes require a bearer key when apiKeys
// is non-empty; search, lookup, health and metrics stay open.
func (s *Server) Mount(r chi.Router, apiKeys []string) {
	r.Get("/search", s.SearchPhotos)
	r.Get("/v1/search", s.SearchPhotos)
	r.Get("/v1/photos/*", s.GetPhoto)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiKeys))
		r.Post("/v1/ingest", s.IngestRecords)
		r.Post("/v1/events", s.IngestEvent)
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

type searchResultItem struct {
	URL    string   `json:"url"`
	Labels []string `json:"labels"`
}

type searchResponse struct {
	Results  []searchResultItem `json:"results"`
	Count    int                `json:"count"`
	Query    string             `json:"query"`
	Keywords []string           `json:"keywords"`
}

type photoResponse struct {
	URL       string    `json:"url"`
	Bucket    string    `json:"bucket"`
	Key       string    `json:"key"`
	Labels    []string  `json:"labels"`
	CreatedAt time.Time `json:"created_at"`
}

type ingestResponse struct {
	Status    string `json:"status"`
	Processed int    `json:"processed"`
	Failed    int    `json:"failed"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// SearchPhotos handles GET /search?q=...
func (s *Server) SearchPhotos(w http.ResponseWriter, r *http.Request) {
	var q *string
	if err := runtime.BindQueryParameter("form", true, false, "q", r.URL.Query(), &q); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query parameter")
		return
	}
	raw := ""
	if q != nil {
		raw = *q
	}

	out, err := s.search.Search(r.Context(), raw)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]searchResultItem, len(out.Results))
	for i, res := range out.Results {
		labels := res.Hit.Labels()
		if labels == nil {
			labels = []string{}
		}
		items[i] = searchResultItem{URL: res.Link.URL, Labels: labels}
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Results:  items,
		Count:    len(items),
		Query:    out.Query,
		Keywords: out.Keywords,
	})
}

// GetPhoto handles GET /v1/photos/{key}. The key may contain slashes.
func (s *Server) GetPhoto(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	// chi routes on the raw path when the request carries escapes.
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(key)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid object key")
			return
		}
		key = unescaped
	}

	p, err := s.search.Lookup(r.Context(), key)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	labels := p.Document.Labels()
	if labels == nil {
		labels = []string{}
	}
	writeJSON(w, http.StatusOK, photoResponse{
		URL:       p.Link.URL,
		Bucket:    p.Document.Bucket(),
		Key:       p.Document.ObjectKey(),
		Labels:    labels,
		CreatedAt: p.Document.CreatedAt(),
	})
}

// IngestRecords handles POST /v1/ingest with a native or S3-style notification batch.
func (s *Server) IngestRecords(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	batch, err := events.DecodeBatch(body)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	for _, rej := range batch.Rejected {
		s.log(r).Warn("Record rejected",
			zap.Int("index", rej.Index),
			zap.String("bucket", rej.Bucket),
			zap.String("key", rej.Key),
			zap.Error(rej.Err),
		)
	}

	s.runBatch(w, r, batch.Records, len(batch.Rejected))
}

// IngestEvent handles POST /v1/events with a GCS object CloudEvent (binary or structured).
func (s *Server) IngestEvent(w http.ResponseWriter, r *http.Request) {
	e, err := cehttp.NewEventFromHTTPRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid cloud event")
		return
	}

	rec, err := events.FromCloudEvent(e)
	if errors.Is(err, events.ErrUnsupportedEvent) {
		s.log(r).Info("Ignoring event",
			zap.String("type", e.Type()),
			zap.String("id", e.ID()),
		)
		writeJSON(w, http.StatusOK, ingestResponse{Status: "ignored"})
		return
	}
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	s.runBatch(w, r, []notification.Record{rec}, 0)
}

// runBatch always answers 200 once the body was understood; rejected counts records
// refused before ingestion.
func (s *Server) runBatch(w http.ResponseWriter, r *http.Request, records []notification.Record, rejected int) {
	summary := dombatch.Summarize(s.ingest.HandleBatch(r.Context(), records))
	writeJSON(w, http.StatusOK, ingestResponse{
		Status:    "accepted",
		Processed: summary.Processed,
		Failed:    summary.Failed + rejected,
	})
}

// HealthCheck handles GET /health. Only an unreachable database yields 503.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// The client sees msg, never the wrapped chain.
func sentinelHandler(sentinel error, status int, msg string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, msg)
		return true
	}
}

// log returns the per-request logger set by WideEvent, or the server logger.
func (s *Server) log(r *http.Request) *zap.Logger {
	return logger.FromContextOr(r.Context(), s.logger)
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := s.log(r)
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("Request failed", zap.Error(err))
			return
		}
	}
	log.Error("Internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}
