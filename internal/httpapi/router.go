// Package httpapi serves the assistant API over net/http with chi.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"immobilier-assistant/internal/calculator"
	"immobilier-assistant/internal/usecase"
)

// CorrelationHeader carries the request correlation id in both directions.
const CorrelationHeader = "X-Correlation-Id"

// ChatService is the conversation surface consumed by the routes.
type ChatService interface {
	CreateSession(ctx context.Context, language string) (usecase.SessionView, error)
	GetSession(ctx context.Context, id string) (usecase.SessionView, error)
	EndSession(ctx context.Context, id string) error
	SendMessage(ctx context.Context, id, text string) (usecase.SendOutput, error)
	SetDraft(ctx context.Context, id, text string) (usecase.SessionView, error)
	SetLanguage(ctx context.Context, id, language string) (usecase.SessionView, error)
	SetVisibility(ctx context.Context, id string, open bool) (usecase.SessionView, error)
	QuickReply(ctx context.Context, id, label string) (usecase.ActionOutput, error)
	QuickAction(ctx context.Context, id, section string) (usecase.ActionOutput, error)
	Catalog(language string) (usecase.Catalog, error)
}

// CalculatorService is the calculator surface consumed by the routes.
type CalculatorService interface {
	Mortgage(in calculator.MortgageInput) (usecase.CalculationResult, error)
	ROI(in calculator.ROIInput) (usecase.CalculationResult, error)
}

// Options configures NewRouter. Metrics and Health are only mounted by the
// long-running server.
type Options struct {
	Chat       ChatService
	Calculator CalculatorService
	Logger     *slog.Logger
	Metrics    http.Handler
	Health     bool
}

var newCorrelationID = func() string {
	return uuid.NewString()
}

// NewRouter wires the API routes and middleware.
func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(correlation)
	r.Use(accessLog(logger))
	r.Use(middleware.Recoverer)

	h := &Handler{chat: opts.Chat, calc: opts.Calculator, logger: logger}
	h.RegisterRoutes(r)

	if opts.Health {
		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte("ok"))
		})
	}
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	return r
}

// correlation echoes the caller's correlation id, or issues one, and stores
// it in the request context for logging.
func correlation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(CorrelationHeader)
		if id == "" {
			id = newCorrelationID()
		}
		w.Header().Set(CorrelationHeader, id)
		next.ServeHTTP(w, r.WithContext(usecase.WithCorrelationID(r.Context(), id)))
	})
}

func accessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"correlation_id", usecase.CorrelationID(r.Context()),
			)
		})
	}
}
