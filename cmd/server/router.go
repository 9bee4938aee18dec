package main

import (
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/billing"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/service"
	"github.com/mmynk/splitledger/internal/storage"
)

type routerDeps struct {
	store      storage.Store
	ledger     *billing.Service
	jwtManager *auth.JWTManager
	revoker    auth.Revoker
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// newRouter mounts every Connect service plus the health and metrics endpoints.
func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(loggingMiddleware(d.logger))
	r.Use(corsMiddleware)

	metricsInterceptor := middleware.MetricsInterceptor(d.metrics)
	loggingInterceptor := middleware.LoggingInterceptor(d.logger)

	// Auth endpoints must be reachable without a token; Logout and
	// GetCurrentUser check for the user themselves.
	public := connect.WithInterceptors(
		metricsInterceptor,
		middleware.OptionalAuth(d.jwtManager, d.revoker),
		loggingInterceptor,
	)
	private := connect.WithInterceptors(
		metricsInterceptor,
		middleware.RequireAuth(d.jwtManager, d.revoker),
		loggingInterceptor,
	)

	authSvc := service.NewAuthService(auth.NewPasswordAuthenticator(d.store), d.jwtManager, d.revoker, d.store, d.ledger, d.logger)
	authPath, authHandler := service.NewAuthServiceHandler(authSvc, public)
	r.Mount(authPath, authHandler)

	participantPath, participantHandler := service.NewParticipantServiceHandler(service.NewParticipantService(d.ledger, d.logger), private)
	r.Mount(participantPath, participantHandler)

	groupPath, groupHandler := service.NewGroupServiceHandler(service.NewGroupService(d.ledger, d.logger), private)
	r.Mount(groupPath, groupHandler)

	billPath, billHandler := service.NewBillServiceHandler(service.NewBillService(d.ledger, d.logger), private)
	r.Mount(billPath, billHandler)

	r.Handle("/metrics", d.metrics.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return r
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Debug("Request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"request_id", chimw.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
