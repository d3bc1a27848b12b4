package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/lightning-rounds/internal/config"
	"github.com/gokatarajesh/lightning-rounds/internal/logging"
	"github.com/gokatarajesh/lightning-rounds/internal/metrics"
	"github.com/gokatarajesh/lightning-rounds/internal/question"
	httperrors "github.com/gokatarajesh/lightning-rounds/pkg/http/errors"
)

type readyResponse struct {
	Status string `json:"status"`
	Mode   string `json:"mode"`
}

// Handlers groups everything the HTTP server routes to. Live, Ready and
// Metrics may be nil.
type Handlers struct {
	Questions *question.HTTPHandler
	Live      http.Handler
	Ready     func(ctx context.Context) error
	Metrics   *metrics.Metrics
	Mode      string
}

// NewHTTPServer wires the question API, live updates and operational routes.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, h Handlers) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg.CORS, logger, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the request handler chain. API routes answer both at the
// root and under /api/.
func NewRouter(corsCfg config.CORS, logger zerolog.Logger, h Handlers) http.Handler {
	mux := http.NewServeMux()

	route := func(path string, handler http.HandlerFunc) {
		for _, prefix := range []string{"", "/api"} {
			mux.Handle(prefix+path, instrument(h.Metrics, path, handler))
		}
	}

	route("/categories", h.Questions.Categories)
	route("/question", h.Questions.Question)
	route("/reset", h.Questions.Reset)
	route("/history", h.Questions.History)

	if h.Live != nil {
		mux.Handle("/ws", h.Live)
	}

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if h.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
			defer cancel()
			if err := h.Ready(ctx); err != nil {
				logger := logging.FromContext(r.Context())
				logger.Error().Err(err).Msg("readiness check failed")
				httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeServiceUnavailable, err.Error())
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(readyResponse{Status: "ready", Mode: h.Mode})
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		httperrors.RespondError(w, http.StatusNotFound, httperrors.ErrCodeNotFound, "Route not found")
	})

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   corsCfg.AllowedOrigins,
		AllowedMethods:   corsCfg.AllowedMethods,
		AllowedHeaders:   corsCfg.AllowedHeaders,
		ExposedHeaders:   []string{logging.RequestIDHeader},
		AllowCredentials: corsCfg.AllowCredentials,
		MaxAge:           corsCfg.MaxAge,
	})

	return logging.Middleware(logger, corsHandler(mux))
}

func instrument(m *metrics.Metrics, route string, next http.HandlerFunc) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &logging.StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
		start := time.Now()
		next(rec, r)
		m.ObserveRequest(r.Method, route, rec.Status, time.Since(start))
	})
}
