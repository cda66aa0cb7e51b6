package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/teemow/inboxswoop/internal/instrumentation"
)

//go:embed static
var staticFiles embed.FS

const (
	// DefaultWebAddr is the default address for the web server.
	DefaultWebAddr = ":8080"

	indexFile = "static/index.html"
)

// WebServerConfig holds configuration for the web server.
type WebServerConfig struct {
	Addr    string
	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

// WebServer serves the static swipe page.
type WebServer struct {
	addr    string
	handler http.Handler
	health  *HealthChecker
	logger  *slog.Logger

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	closed     bool
}

// NewWebServer builds the web mux. It fails only if the embedded page is missing.
func NewWebServer(config WebServerConfig) (*WebServer, error) {
	if config.Addr == "" {
		config.Addr = DefaultWebAddr
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	page, err := staticFiles.ReadFile(indexFile)
	if err != nil {
		return nil, fmt.Errorf("read embedded page: %w", err)
	}
	assets, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("open embedded assets: %w", err)
	}

	health := NewHealthChecker()

	mux := http.NewServeMux()
	mux.Handle("/", pageHandler(page))
	mux.Handle("/static/", http.StripPrefix("/static/", staticHandler(assets)))
	health.RegisterHealthEndpoints(mux)

	return &WebServer{
		addr:    config.Addr,
		handler: MetricsMiddleware(config.Metrics, NoCache(mux)),
		health:  health,
		logger:  config.Logger,
	}, nil
}

// pageHandler serves page for GET and POST on "/" only.
func pageHandler(page []byte) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		switch r.Method {
		case http.MethodGet, http.MethodPost:
		default:
			w.Header().Set("Allow", "GET, POST")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(page)
	})
}

// staticHandler serves regular files from assets. Directories and missing
// files get a plain 404 so the no-cache headers survive.
func staticHandler(assets fs.FS) http.Handler {
	files := http.FileServerFS(assets)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info, err := fs.Stat(assets, strings.TrimPrefix(r.URL.Path, "/"))
		if err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}

// Handler returns the full middleware-wrapped handler.
func (s *WebServer) Handler() http.Handler {
	return s.handler
}

// Addr returns the bound address once listening, else the configured one.
func (s *WebServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Start listens on the configured address and serves until Shutdown.
// It returns http.ErrServerClosed after a graceful shutdown.
func (s *WebServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown.
func (s *WebServer) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = ln.Close()
		return http.ErrServerClosed
	}
	if s.httpServer != nil {
		s.mu.Unlock()
		_ = ln.Close()
		return errors.New("web server already started")
	}
	s.httpServer = srv
	s.listener = ln
	s.health.SetReady(true)
	s.mu.Unlock()

	s.logger.Info("starting web server", "addr", ln.Addr().String())
	return srv.Serve(ln)
}

// Shutdown marks the server not ready and drains in-flight requests.
func (s *WebServer) Shutdown(ctx context.Context) error {
	s.health.SetShuttingDown()

	s.mu.Lock()
	s.closed = true
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	s.logger.Info("shutting down web server")
	return srv.Shutdown(ctx)
}
