package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

type Config struct {
	Addr            string
	MaxUploadBytes  int64
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	cfg      Config
	handler  http.Handler
	logger   *slog.Logger
	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	running  bool
}

func NewServer(cfg Config, assistant Assistant, logger *slog.Logger) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	return &Server{
		cfg:     cfg,
		handler: NewRouter(assistant, cfg.MaxUploadBytes, logger),
		logger:  logger,
	}
}

// NewRouter builds the HTTP handler with its middleware chain.
func NewRouter(assistant Assistant, maxUploadBytes int64, logger *slog.Logger) http.Handler {
	h := &handlers{
		assistant:      assistant,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.handleRoot)
	mux.HandleFunc("POST /transcribe/{$}", h.handleTranscribe)
	mux.HandleFunc("POST /transcribe", h.handleTranscribe)
	mux.HandleFunc("POST /ask/{$}", h.handleAsk)
	mux.HandleFunc("POST /ask", h.handleAsk)
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("/", h.handleNotFound)

	return withRequestID(withAccessLog(logger, withRecover(logger, mux)))
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start binds the listen address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}

	s.listener = listener
	s.server = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	go func() {
		s.logger.Info("HTTP server starting", "addr", listener.Addr().String())
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	s.running = true
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Addr
}

func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Warn("graceful shutdown failed, forcing close", "error", err)
		if err := s.server.Close(); err != nil {
			return fmt.Errorf("closing server: %w", err)
		}
	}

	s.running = false
	s.listener = nil
	return nil
}
