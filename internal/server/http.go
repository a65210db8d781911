package server

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-allocator/internal/allocation"
	"github.com/gokatarajesh/quiz-allocator/internal/auth"
	"github.com/gokatarajesh/quiz-allocator/internal/auth/jwt"
	"github.com/gokatarajesh/quiz-allocator/internal/config"
	"github.com/gokatarajesh/quiz-allocator/internal/logging"
	httperrors "github.com/gokatarajesh/quiz-allocator/pkg/http/errors"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies is what the HTTP server needs beyond configuration.
type Dependencies struct {
	Allocations *allocation.HTTPHandler
	Verifier    *jwt.Verifier
	Gatherer    prometheus.Gatherer
	Pingers     map[string]Pinger
}

// NewHTTPServer wires health, metrics and allocation routes.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, deps Dependencies) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if deps.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	} else {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	mux.HandleFunc("GET /v1/ping", func(w http.ResponseWriter, r *http.Request) {
		if err := pingDependencies(r.Context(), deps.Pingers); err != nil {
			logger := logging.FromContext(r.Context())
			logger.Error().Err(err).Msg("dependency ping failed")
			httperrors.RespondError(w, http.StatusBadGateway, httperrors.ErrCodeUpstreamError, "upstream error")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	if h := deps.Allocations; h != nil {
		mux.HandleFunc("POST /v1/quizzes/{quizID}/allocations", h.HandleAllocate)
		mux.HandleFunc("POST /v1/quizzes/{quizID}/generation/reset", h.HandleReset)
		mux.HandleFunc("GET /v1/allocations/{allocationID}", h.HandleGet)
	}

	var handler http.Handler = mux
	handler = auth.IdentityMiddleware(deps.Verifier, logger)(handler)
	handler = requestLogger(logger)(handler)

	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// requestLogger stores a request-scoped logger in the context and logs one
// line per request.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}
			reqLogger := logger.With().Str("request_id", requestID).Logger()
			w.Header().Set("X-Request-ID", requestID)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r.WithContext(logging.IntoContext(r.Context(), reqLogger)))

			reqLogger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("duration", time.Since(start)).
				Msg("http request")
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func pingDependencies(ctx context.Context, pingers map[string]Pinger) error {
	for name, p := range pingers {
		if err := p.Ping(ctx); err != nil {
			return &pingError{name: name, err: err}
		}
	}
	return nil
}

type pingError struct {
	name string
	err  error
}

func (e *pingError) Error() string { return e.name + ": " + e.err.Error() }
func (e *pingError) Unwrap() error { return e.err }

// PostgresPinger adapts a pgx pool.
func PostgresPinger(pool *pgxpool.Pool) Pinger { return pool }

// RedisPinger adapts a go-redis client, whose Ping returns a *StatusCmd.
type RedisPinger struct{ Client *redis.Client }

func (p RedisPinger) Ping(ctx context.Context) error { return p.Client.Ping(ctx).Err() }
