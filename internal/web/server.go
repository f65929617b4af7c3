// Package web serves the browser front end: upload two sheets, review the
// mismatches and ask the assistant about them.
package web

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nconklindev/sheetdiff/internal/chat"
	"github.com/nconklindev/sheetdiff/internal/diff"
	"github.com/nconklindev/sheetdiff/internal/loader"
	"github.com/nconklindev/sheetdiff/internal/log"
)

// Options configure a Server.
type Options struct {
	Addr          string
	MaxUploadSize int64
	MaxSessions   int
	Loader        loader.Options
	Diff          []diff.Option
	// Assistant answers questions; nil turns the question form off.
	Assistant *chat.Assistant
}

// Server is the HTTP front end.
type Server struct {
	opts      Options
	store     *Store
	templates *template.Template
	router    *chi.Mux
}

// NewServer parses the templates and sets up the routes.
func NewServer(opts Options) (*Server, error) {
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = 50 * 1024 * 1024
	}

	templates, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		opts:      opts,
		store:     NewStore(opts.MaxSessions),
		templates: templates,
		router:    chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleIndex)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Post("/compare", s.handleCompare)

	s.router.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", s.handleSession)
		r.Post("/ask", s.handleAsk)
		r.Post("/clear", s.handleClear)
		r.Get("/mismatches", s.handleMismatches)
		r.Get("/report.xlsx", s.handleReport)
	})
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Infof("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// requestLogger logs one line per request through apex/log.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.WithFields(map[string]interface{}{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"bytes":    ww.BytesWritten(),
			"duration": time.Since(start).Round(time.Microsecond),
			"id":       middleware.GetReqID(r.Context()),
		}).Info("request")
	})
}

func (s *Server) renderTemplate(w http.ResponseWriter, status int, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		log.WithError(err).Errorf("template %s", name)
	}
}
