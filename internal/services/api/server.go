package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/louisbranch/ontogenic.space/internal/platform/config"
	"github.com/louisbranch/ontogenic.space/internal/platform/timeouts"
	"github.com/louisbranch/ontogenic.space/internal/services/run/domain"
	"github.com/louisbranch/ontogenic.space/internal/services/run/observability/audit"
	runsqlite "github.com/louisbranch/ontogenic.space/internal/services/run/storage/sqlite"
)

type serverEnv struct {
	DBPath string `env:"ONTOGENIC_SPACE_DB_PATH"`
}

func loadServerEnv() serverEnv {
	var cfg serverEnv
	_ = config.ParseEnv(&cfg)
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = filepath.Join("data", "ontogenic.db")
	}
	return cfg
}

// Options configures an API server.
type Options struct {
	// Addr is the HTTP listen address.
	Addr string
	// DBPath overrides the ONTOGENIC_SPACE_DB_PATH environment variable
	// when set.
	DBPath string
}

// Server hosts the run service HTTP API and storage lifecycle.
type Server struct {
	httpAddr   string
	httpServer *http.Server
	store      *runsqlite.Store
}

// New creates a configured API server for the provided port.
func New(port int) (*Server, error) {
	return NewWithAddr(fmt.Sprintf(":%d", port))
}

// NewWithAddr creates a configured API server for the provided address.
func NewWithAddr(addr string) (*Server, error) {
	return NewWithOptions(Options{Addr: addr})
}

// NewWithOptions creates a configured API server from explicit options.
func NewWithOptions(opts Options) (*Server, error) {
	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		return nil, errors.New("http address is required")
	}

	dbPath := strings.TrimSpace(opts.DBPath)
	if dbPath == "" {
		dbPath = loadServerEnv().DBPath
	}
	store, err := openRunStore(dbPath)
	if err != nil {
		return nil, err
	}

	emitter := audit.NewEmitter(store)
	service := domain.NewService(store, emitter, domain.Config{})
	handler := newHandler(service, newRunFeed(), emitter)

	return &Server{
		httpAddr: addr,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
		store: store,
	}, nil
}

// Run creates and serves an API server until context cancellation.
func Run(ctx context.Context, port int) error {
	server, err := New(port)
	if err != nil {
		return err
	}
	defer server.Close()
	return server.ListenAndServe(ctx)
}

// RunWithAddr creates and serves an API server for an explicit address
// until context cancellation.
func RunWithAddr(ctx context.Context, addr string) error {
	return RunWithOptions(ctx, Options{Addr: addr})
}

// RunWithOptions creates and serves an API server from explicit options
// until context cancellation.
func RunWithOptions(ctx context.Context, opts Options) error {
	server, err := NewWithOptions(opts)
	if err != nil {
		return err
	}
	defer server.Close()
	return server.ListenAndServe(ctx)
}

// ListenAndServe serves HTTP traffic until context cancellation or
// server stop.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("api server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	log.Printf("api server listening at %v", s.httpAddr)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown api http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve api http: %w", err)
	}
}

// Close releases server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close run store: %v", err)
		}
	}
}

func openRunStore(path string) (*runsqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := runsqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open run sqlite store: %w", err)
	}
	return store, nil
}
