// Package api provides the HTTP API for tickerpulse.
//
// It exposes endpoints for headline sentiment, narrative analysis, free-text
// sentiment and stock snapshots, plus configuration and WebSocket streaming
// under /api/v1.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/seenimoa/tickerpulse/internal/config"
	"github.com/seenimoa/tickerpulse/internal/datasource"
	"github.com/seenimoa/tickerpulse/internal/logging"
	"github.com/seenimoa/tickerpulse/internal/pipeline"
	"github.com/seenimoa/tickerpulse/pkg/utils"
)

const maxBodyBytes = 1 << 20

// Server is the HTTP API server.
type Server struct {
	router  chi.Router
	cfg     *config.Config
	pipe    *pipeline.Pipeline
	wsHub   *WSHub
	log     *zap.Logger
	version string
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, pipe *pipeline.Pipeline, logger *zap.Logger, version string) *Server {
	logger = logging.OrNop(logger)
	srv := &Server{
		cfg:     cfg,
		pipe:    pipe,
		wsHub:   NewWSHub(logger.Named("ws")),
		log:     logger,
		version: version,
	}
	srv.router = srv.buildRouter()
	return srv
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *WSHub {
	return s.wsHub
}

// ListenAndServe serves on addr until ctx is cancelled or SIGINT/SIGTERM
// arrives, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: s.requestTimeout() + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go s.wsHub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func (s *Server) requestTimeout() time.Duration {
	if d := s.cfg.API.RequestTimeout(); d > 0 {
		return d
	}
	return 120 * time.Second
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log.Named("http")))
	r.Use(recoverer(s.log))
	r.Use(requestDeadline(s.requestTimeout()))

	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	s.mountRoutes(r)

	r.Route("/api/v1", func(r chi.Router) {
		s.mountRoutes(r)

		r.Get("/config", s.handleGetConfig)
		r.Get("/config/keys", s.handleGetConfigKeys)

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

func (s *Server) mountRoutes(r chi.Router) {
	r.Get("/health", s.handleHealth)
	r.Get("/stock/{symbol}", s.handleStock)
	r.Get("/news/{symbol}", s.handleNews)
	r.Post("/analyze_news", s.handleAnalyzeNews)
	r.Post("/sentiment", s.handleSentiment)
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// TextRequest is the body for POST /analyze_news and POST /sentiment.
type TextRequest struct {
	Text   string `json:"text"`
	Symbol string `json:"symbol"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]any{
			"status":        "ok",
			"time":          utils.FormatISO(utils.NowUTC()),
			"version":       s.version,
			"classifier":    s.pipe.ClassifierName(),
			"market_status": utils.MarketStatus(),
		},
	})
}

func (s *Server) handleStock(w http.ResponseWriter, r *http.Request) {
	snap, err := s.pipe.Stock(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		s.writeFailure(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: snap})
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	report, err := s.pipe.News(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		var data any
		if report != nil {
			data = report
		}
		s.writeFailure(w, r, err, data)
		return
	}

	s.wsHub.Broadcast(WSMessage{
		Type: EventNewsAnalyzed,
		Data: map[string]any{
			"symbol":  report.Symbol,
			"count":   report.Count,
			"skipped": report.Skipped,
		},
	})
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: report})
}

func (s *Server) handleAnalyzeNews(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTextRequest(w, r)
	if !ok {
		return
	}
	if req.Symbol == "" {
		req.Symbol = pipeline.DefaultSymbol
	}

	report, err := s.pipe.Analyze(r.Context(), req.Symbol, req.Text)
	if err != nil {
		var data any
		if report != nil {
			data = report
		}
		s.writeFailure(w, r, err, data)
		return
	}

	s.wsHub.Broadcast(WSMessage{
		Type: EventAnalysisComplete,
		Data: map[string]any{
			"id":     report.ID,
			"symbol": report.Symbol,
			"tilt":   report.Tilt,
			"tally":  report.Tally,
		},
	})
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: report})
}

func (s *Server) handleSentiment(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTextRequest(w, r)
	if !ok {
		return
	}
	report, err := s.pipe.Sentiment(r.Context(), req.Symbol, req.Text)
	if err != nil {
		s.writeFailure(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: report})
}

// ============================================================
// Helpers
// ============================================================

func decodeTextRequest(w http.ResponseWriter, r *http.Request) (TextRequest, bool) {
	var req TextRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	return req, true
}

// statusFor maps pipeline errors to HTTP status codes. An expired request
// deadline wins over whatever error it surfaced through.
func statusFor(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, utils.ErrInvalidTicker), errors.Is(err, pipeline.ErrEmptyText):
		return http.StatusBadRequest
	case errors.Is(err, datasource.ErrTickerNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrMarketData):
		return http.StatusBadGateway
	case errors.Is(err, pipeline.ErrClassifierUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeFailure writes err in the envelope. data, when non-nil, is the
// partial result produced before the failure.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error, data any) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Int("status", status),
			zap.Error(err))
	}
	writeJSON(w, status, APIResponse{Success: false, Data: data, Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status line is already out; an encode error cannot be reported.
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
