package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"docflow/internal/api"
	"docflow/internal/document"
	"docflow/internal/logging"
)

// Error codes carried in JSON error bodies.
const (
	CodeDocumentNotFound = "DOCUMENT_NOT_FOUND"
	CodeValidation       = "VALIDATION_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeInternal         = "INTERNAL_ERROR"
)

const (
	correlationHeader = "X-Correlation-ID"
	maxBodyBytes      = 1 << 20
	bannerText        = "docflow document service"
)

type apiServer struct {
	bind    string
	logger  *slog.Logger
	service *api.DocumentService
	schemas *requestSchemas

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(bind string, svc *api.DocumentService, logger *slog.Logger) (*apiServer, error) {
	schemas, err := compileRequestSchemas(svc.MaxBatchIDs())
	if err != nil {
		return nil, fmt.Errorf("api schemas: %w", err)
	}
	srv := &apiServer{
		bind:    strings.TrimSpace(bind),
		logger:  logging.NewComponentLogger(logger, "api-server"),
		service: svc,
		schemas: schemas,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.correlate)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusNotFound, CodeNotFound, "resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed")
	})

	r.Get("/", s.handleBanner)
	r.Get("/api", s.handleBanner)
	r.Get("/api/stats", s.handleStats)
	r.Route("/api/documents", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Get("/", s.handleList)
		r.Get("/search", s.handleSearch)
		r.Post("/submit", s.handleSubmit)
		r.Post("/approve", s.handleApprove)
		r.Post("/concurrent-approve-test", s.handleConcurrentApprove)
		r.Get("/{id}", s.handleGet)
	})
	return r
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// correlate attaches a correlation id to the request context and response.
func (s *apiServer) correlate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(correlationHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(correlationHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.WithCorrelationID(r.Context(), id)))
	})
}

func (s *apiServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		began := time.Now()
		next.ServeHTTP(ww, r)
		logging.WithContext(r.Context(), s.logger).Debug("http request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", ww.Status()),
			logging.Int("bytes", ww.BytesWritten()),
			logging.Duration("elapsed", time.Since(began)),
		)
	})
}

func (s *apiServer) handleBanner(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, bannerText+"\n")
}

func (s *apiServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req api.CreateRequest
	if !s.readBody(w, r, s.schemas.create, &req) {
		return
	}
	doc, err := s.service.Create(r.Context(), req.Author, req.Title, req.Initiator)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.FromDocument(doc))
}

func (s *apiServer) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusUnprocessableEntity, CodeValidation, "id must be a positive integer")
		return
	}
	doc, history, err := s.service.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromDocumentWithHistory(doc, history))
}

func (s *apiServer) handleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	ids, err := parseIDList(query["ids"])
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, CodeValidation, err.Error())
		return
	}
	page, err := parsePage(query.Get("page"), query.Get("size"))
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, CodeValidation, err.Error())
		return
	}
	result, err := s.service.GetByIDs(r.Context(), ids, page)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromPage(result))
}

func (s *apiServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter, err := parseSearchFilter(query.Get("status"), query.Get("author"), query.Get("dateFrom"), query.Get("dateTo"))
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, CodeValidation, err.Error())
		return
	}
	page, err := parsePage(query.Get("page"), query.Get("size"))
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, CodeValidation, err.Error())
		return
	}
	result, err := s.service.Search(r.Context(), filter, page)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromPage(result))
}

func (s *apiServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req api.BatchRequest
	if !s.readBody(w, r, s.schemas.batch, &req) {
		return
	}
	ctx := logging.WithActor(r.Context(), req.Initiator)
	result, err := s.service.SubmitBatch(ctx, req.IDs, req.Initiator)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromResult(result))
}

func (s *apiServer) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req api.BatchRequest
	if !s.readBody(w, r, s.schemas.batch, &req) {
		return
	}
	ctx := logging.WithActor(r.Context(), req.Initiator)
	result, err := s.service.ApproveBatch(ctx, req.IDs, req.Initiator)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromResult(result))
}

func (s *apiServer) handleConcurrentApprove(w http.ResponseWriter, r *http.Request) {
	var req api.RaceRequest
	if !s.readBody(w, r, s.schemas.race, &req) {
		return
	}
	report, err := s.service.ConcurrentApprove(r.Context(), req.DocumentID, req.Threads, req.Attempts)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromRaceReport(report))
}

func (s *apiServer) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromStats(stats))
}

// readBody validates the request body against schema and decodes it into dst.
// It writes the error response and returns false when the body is rejected.
func (s *apiServer) readBody(w http.ResponseWriter, r *http.Request, schema *jsonschema.Schema, dst any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, CodeValidation, "request body unreadable")
		return false
	}
	if err := decodeValidated(body, schema, dst); err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, CodeValidation, err.Error())
		return false
	}
	return true
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, document.ErrNotFound):
		s.writeError(w, http.StatusNotFound, CodeDocumentNotFound, err.Error())
	case errors.Is(err, api.ErrValidation):
		s.writeError(w, http.StatusUnprocessableEntity, CodeValidation, err.Error())
	default:
		logging.WithContext(r.Context(), s.logger).Error("request failed",
			logging.String("path", r.URL.Path),
			logging.Error(err),
		)
		s.writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Code: code, Message: message})
}
