package api

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"hmmsynth/domain/synth"
	"hmmsynth/internal"
	"hmmsynth/internal/errors"
	"hmmsynth/ports"
)

// Server exposes an ItemReader over HTTP
type Server struct {
	router *chi.Mux
	reader ports.ItemReader
	logger *internal.Logger
	token  string
	schema SchemaResponse
}

// Option configures a Server
type Option func(*Server)

// WithToken requires "Authorization: Bearer <token>" on every /api route.
func WithToken(token string) Option {
	return func(s *Server) { s.token = token }
}

// WithMount serves h under pattern, next to the item routes.
func WithMount(pattern string, h http.Handler) Option {
	return func(s *Server) {
		s.router.With(s.requireToken).Mount(pattern, h)
	}
}

// NewServer creates the item server. The schema is probed once by drawing
// one record per model.
func NewServer(reader ports.ItemReader, logger *internal.Logger, opts ...Option) (*Server, error) {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	schema, err := probeSchema(reader)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router: chi.NewRouter(),
		reader: reader,
		logger: logger,
		schema: schema,
	}
	s.setupMiddleware()
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s, nil
}

func probeSchema(reader ports.ItemReader) (SchemaResponse, error) {
	schema := SchemaResponse{
		Size:      reader.Size(),
		NumModels: reader.NumModels(),
		SeqLen:    reader.SeqLen(),
		Columns:   make(map[string]string),
	}
	for k := 0; k < reader.NumModels(); k++ {
		rec, err := reader.Get(k)
		if err != nil {
			return SchemaResponse{}, fmt.Errorf("probe model %d: %w", k, err)
		}
		for name, col := range rec.Columns {
			// Models disagreeing on a column's kind are served as float.
			if prev, ok := schema.Columns[name]; ok && prev != col.Kind.String() {
				schema.Columns[name] = synth.KindFloat.String()
				continue
			}
			schema.Columns[name] = col.Kind.String()
		}
	}
	return schema, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Group(func(r chi.Router) {
		r.Use(s.requireToken)
		r.Get("/api/size", s.handleSize)
		r.Get("/api/schema", s.handleSchema)
		r.Get("/api/items/{index}", s.handleItem)
	})
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("item server listening on %s (%d items, %d models)", addr, s.schema.Size, s.schema.NumModels)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down item server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token == "" {
			next.ServeHTTP(w, r)
			return
		}
		got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) != 1 {
			writeError(w, errors.New(errors.CodeUnauthorized, "missing or invalid bearer token"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleSize(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SizeResponse{Size: s.reader.Size()})
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.schema)
}

func (s *Server) handleItem(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "index")
	index, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, errors.InvalidInput(fmt.Sprintf("index %q is not an integer", raw)))
		return
	}

	rec, err := s.reader.Get(index)
	if err != nil {
		s.logger.Warn("item %d: %v", index, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// writeJSON encodes v before the status is sent, so an encoding failure
// still becomes a 500.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		status = http.StatusInternalServerError
		buf.Reset()
		_ = json.NewEncoder(&buf).Encode(ErrorResponse{
			Code:  errors.CodeInternalError,
			Error: fmt.Sprintf("encode response: %v", err),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(errors.FromDomain(err))
	writeJSON(w, errors.HTTPStatus(code), ErrorResponse{Code: code, Error: err.Error()})
}
