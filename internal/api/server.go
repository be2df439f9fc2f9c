// internal/api/server.go
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/valpere/VidSieve/internal/output"
	"github.com/valpere/VidSieve/internal/utils"
	"github.com/valpere/VidSieve/pkg/types"
)

// Controller is the engine surface the API drives
type Controller interface {
	Settings() types.Settings
	UpdateSettings(settings types.Settings)
	Totals() types.StatsDelta
}

// ScanFunc runs one filter pass on demand
type ScanFunc func(ctx context.Context) (types.StatsDelta, error)

// Config configures the HTTP server
type Config struct {
	Addr string
	// Token, when set, is required as a Bearer token on /api routes
	Token string
	// RateLimit is requests per second across all clients; 0 disables it
	RateLimit float64
}

// Server exposes health, metrics, stats, history and settings over HTTP
type Server struct {
	config     Config
	controller Controller
	store      output.Store
	scan       ScanFunc
	health     http.Handler
	metrics    http.Handler
	logger     utils.Logger
	router     *mux.Router
	httpServer *http.Server
}

// Option configures a Server
type Option func(*Server)

// WithStore serves persisted stats and history
func WithStore(store output.Store) Option {
	return func(s *Server) { s.store = store }
}

// WithScan enables POST /api/v1/scan
func WithScan(scan ScanFunc) Option {
	return func(s *Server) { s.scan = scan }
}

// WithHealth serves /health
func WithHealth(handler http.Handler) Option {
	return func(s *Server) { s.health = handler }
}

// WithMetrics serves /metrics
func WithMetrics(handler http.Handler) Option {
	return func(s *Server) { s.metrics = handler }
}

// WithLogger sets the logger
func WithLogger(logger utils.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewServer builds the router
func NewServer(config Config, controller Controller, opts ...Option) *Server {
	s := &Server{config: config, controller: controller}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = utils.NewModuleLogger(s.logger, "api")
	s.router = s.routes()
	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.loggingMiddleware)

	r.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	if s.config.Token != "" {
		api.Use(s.authMiddleware)
	}
	if s.config.RateLimit > 0 {
		api.Use(rateLimitMiddleware(s.config.RateLimit))
	}
	api.HandleFunc("/stats", s.statsHandler).Methods(http.MethodGet)
	api.HandleFunc("/history", s.historyHandler).Methods(http.MethodGet)
	api.HandleFunc("/settings", s.getSettingsHandler).Methods(http.MethodGet)
	api.HandleFunc("/settings", s.putSettingsHandler).Methods(http.MethodPut)
	api.HandleFunc("/scan", s.scanHandler).Methods(http.MethodPost)

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.config.Addr).Info("API server listening")
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("API server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.WithFields(map[string]interface{}{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		}).Debug("request served")
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if !tokenMatches(strings.TrimPrefix(authHeader, "Bearer "), s.config.Token) {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// tokenMatches compares in constant time for equal-length inputs
func tokenMatches(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func rateLimitMiddleware(perSecond float64) mux.MiddlewareFunc {
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		s.health.ServeHTTP(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

// statsResponse pairs the totals of this process with the persisted totals
type statsResponse struct {
	Session types.StatsDelta  `json:"session"`
	Stored  *types.StatsDelta `json:"stored,omitempty"`
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{Session: s.controller.Totals()}
	if s.store != nil {
		stored, err := s.store.Stats(r.Context())
		if err != nil {
			s.logger.WithField("error", err.Error()).Error("failed to read stats")
			writeError(w, http.StatusInternalServerError, "failed to read stats")
			return
		}
		resp.Stored = &stored
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "no store configured")
		return
	}

	format := output.OutputFormat(r.URL.Query().Get("format"))
	if format == "" {
		format = output.FormatJSON
	}

	report, err := output.BuildReport(r.Context(), s.store, time.Now())
	if err != nil {
		s.logger.WithField("error", err.Error()).Error("failed to read history")
		writeError(w, http.StatusInternalServerError, "failed to read history")
		return
	}

	writer, err := output.NewWriter(format, w)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.Header().Set("Content-Type", contentTypes[format])
	if err := writer.Write(report); err != nil {
		s.logger.WithField("error", err.Error()).Error("failed to encode history")
		return
	}
	if err := writer.Close(); err != nil {
		s.logger.WithField("error", err.Error()).Error("failed to flush history")
	}
}

var contentTypes = map[output.OutputFormat]string{
	output.FormatJSON:  "application/json",
	output.FormatCSV:   "text/csv",
	output.FormatYAML:  "application/yaml",
	output.FormatExcel: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

func (s *Server) getSettingsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Settings())
}

func (s *Server) putSettingsHandler(w http.ResponseWriter, r *http.Request) {
	var settings types.Settings
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid settings: %v", err))
		return
	}
	if settings.MaxDuration > 0 && settings.MinDuration > settings.MaxDuration {
		writeError(w, http.StatusBadRequest, "min_duration must not exceed max_duration")
		return
	}

	s.controller.UpdateSettings(settings)
	s.logger.WithField("settings", fmt.Sprintf("%+v", settings)).Info("settings updated over API")
	writeJSON(w, http.StatusOK, s.controller.Settings())
}

func (s *Server) scanHandler(w http.ResponseWriter, r *http.Request) {
	if s.scan == nil {
		writeError(w, http.StatusNotImplemented, "on-demand scans are not available")
		return
	}
	delta, err := s.scan(r.Context())
	if err != nil {
		if utils.HasCode(err, utils.ErrCodeNotInitialized) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, delta)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
