// Package httpapi serves the launcher over HTTP: JSON endpoints for search,
// commands, actions, navigation and plugins, Prometheus metrics, and a
// WebSocket stream of state changes for front ends that render the
// launcher remotely.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/jpl-au/vela/internal/app"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 5 * time.Second

// Server holds the HTTP server dependencies.
type Server struct {
	app      *app.App
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// New creates a server for a.
func New(a *app.App, logger *slog.Logger) *Server {
	if logger == nil {
		logger = a.Logger
	}
	return &Server{
		app:    a,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// Router returns the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/search", s.search)
	r.Post("/search/select", s.selectResult)

	r.Get("/commands", s.listCommands)
	r.Post("/commands/{id}", s.executeCommand)

	r.Route("/actions", func(r chi.Router) {
		r.Get("/", s.listActions)
		r.Put("/context", s.setContext)
		r.Post("/{id}", s.executeAction)
	})

	r.Get("/view", s.currentView)
	r.Post("/navigate", s.navigate)
	r.Post("/back", s.back)

	r.Route("/plugins", func(r chi.Router) {
		r.Get("/", s.listPlugins)
		r.Get("/{id}", s.getPlugin)
		r.Post("/{id}/enable", s.enablePlugin)
		r.Post("/{id}/disable", s.disablePlugin)
		r.Delete("/{id}", s.uninstallPlugin)
	})

	r.Method(http.MethodGet, "/metrics", s.app.Metrics.Handler())
	r.Get("/events", s.events)
	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.logger.Info("vela HTTP API ready", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("HTTP API stopped")
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		began := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(began),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// checkOrigin admits non-browser clients and pages served from loopback
// hosts. The API has no authentication, so remote pages are refused.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}
