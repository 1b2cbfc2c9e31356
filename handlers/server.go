package handlers

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/nijaru/yt-mp3/config"
	apperrors "github.com/nijaru/yt-mp3/errors"
	"github.com/nijaru/yt-mp3/middleware"
	"github.com/nijaru/yt-mp3/models"
	"github.com/nijaru/yt-mp3/utils"
	"github.com/sirupsen/logrus"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// HistoryReader lists recent gateway outcomes, newest first.
type HistoryReader interface {
	RecentConversions(ctx context.Context, limit int) ([]models.Conversion, error)
}

type Server struct {
	gateway   http.Handler
	history   HistoryReader
	config    *config.Config
	logger    *logrus.Logger
	server    *http.Server
	startTime time.Time
}

type ServerOption func(*Server)

// NewServer creates the HTTP server around the conversion gateway.
func NewServer(cfg *config.Config, gateway http.Handler, opts ...ServerOption) *Server {
	s := &Server{
		gateway:   gateway,
		config:    cfg,
		logger:    logrus.StandardLogger(),
		startTime: time.Now(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.server = &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      s.routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// WithHistory exposes the conversion ledger on GET /api/history.
func WithHistory(history HistoryReader) ServerOption {
	return func(s *Server) {
		s.history = history
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// Handler returns the routed handler with the middleware stack applied.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start() error {
	s.logger.WithField("port", s.config.ServerPort).Info("Starting server")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// The gateway answers every method itself so that non-POST calls get a
	// JSON 405 instead of the mux's plain-text one.
	mux.Handle("/api/convert", s.gateway)

	if s.history != nil {
		mux.HandleFunc("GET /api/history", s.handleHistory)
	}

	mux.HandleFunc("GET /health", s.handleHealth)

	if s.config.StaticDir != "" {
		index := filepath.Join(s.config.StaticDir, "index.html")
		if _, err := os.Stat(index); err == nil {
			mux.Handle("/", http.FileServer(http.Dir(s.config.StaticDir)))
		} else {
			s.logger.WithField("path", index).Debug("No static index, UI disabled")
		}
	}

	return s.middleware(mux)
}

func (s *Server) middleware(handler http.Handler) http.Handler {
	middlewares := []func(http.Handler) http.Handler{
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logging(),
		middleware.CORS(s.config.CORS),
	}

	if s.config.RateLimit.Enabled {
		rateLimiter := middleware.NewRateLimiter(
			s.config.RateLimit.RequestsPerMinute,
			s.config.RateLimit.BurstSize,
		)
		middlewares = append(middlewares, rateLimiter.Middleware)
	}

	return middleware.Chain(handler, middlewares...)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"version":   s.config.Version,
		"uptime":    time.Since(s.startTime).String(),
	}

	if err := utils.WriteJSON(w, http.StatusOK, status); err != nil {
		middleware.GetLogger(r.Context()).WithError(err).Error("Failed to encode health status")
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	const op = "Server.handleHistory"

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, r, apperrors.InvalidInput(op, err, "Invalid limit"))
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	conversions, err := s.history.RecentConversions(r.Context(), limit)
	if err != nil {
		respondError(w, r, apperrors.Internal(op, err))
		return
	}

	if err := utils.WriteJSON(w, http.StatusOK, conversions); err != nil {
		middleware.GetLogger(r.Context()).WithError(err).Error("Failed to encode history")
	}
}
