// Package http serves the JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"cbms/internal/auth"
	"cbms/internal/cache"
	"cbms/internal/log"
	"cbms/internal/services"
	"cbms/internal/storage"
)

const (
	cacheSize = 200
	cacheTTL  = 5 * time.Minute
)

type Server struct {
	http.Server

	budget  *services.BudgetService
	authSvc *services.AuthService
	repo    *storage.SQLiteRepository
	tokens  *auth.TokenManager
	logger  *log.Logger

	rateLimiter *rateLimiter
	metrics     *securityMetrics

	// Cached per-user views, invalidated on writes.
	dashboardCache *cache.LRU[dashboardResponse]
	analysisCache  *cache.LRU[analysisResponse]

	cancelJanitor context.CancelFunc
	shutdownOnce  sync.Once
}

// NewServer wires routes and middleware and returns a ready-to-run
// server.
func NewServer(addr string, budget *services.BudgetService, authSvc *services.AuthService, repo *storage.SQLiteRepository, tokens *auth.TokenManager, logger *log.Logger) *Server {
	mux := http.NewServeMux()

	janitorCtx, cancel := context.WithCancel(context.Background())
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		budget:         budget,
		authSvc:        authSvc,
		repo:           repo,
		tokens:         tokens,
		logger:         logger.WithComponent(log.ComponentHTTP),
		rateLimiter:    newRateLimiter(),
		metrics:        &securityMetrics{},
		dashboardCache: cache.NewLRU[dashboardResponse](cacheSize, cacheTTL),
		analysisCache:  cache.NewLRU[analysisResponse](cacheSize, cacheTTL),
		cancelJanitor:  cancel,
	}
	go cache.Janitor(janitorCtx, 10*time.Minute, s.dashboardCache, s.analysisCache)

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("/signup", s.secured(s.handleSignup))
	mux.HandleFunc("/login", s.secured(s.handleLogin))
	mux.HandleFunc("/logout", s.secured(s.handleLogout))

	mux.HandleFunc("/people", s.secured(s.requireAuth(s.handlePeople)))
	mux.HandleFunc("/people/detail", s.secured(s.requireAuth(s.handlePersonDetail)))
	mux.HandleFunc("/people/delete", s.secured(s.requireAuth(s.handleDeletePerson)))
	mux.HandleFunc("/expenses", s.secured(s.requireAuth(s.handleExpenses)))
	mux.HandleFunc("/expenses/detail", s.secured(s.requireAuth(s.handleExpenseDetail)))
	mux.HandleFunc("/expenses/delete", s.secured(s.requireAuth(s.handleDeleteExpense)))
	mux.HandleFunc("/incomes", s.secured(s.requireAuth(s.handleIncomes)))
	mux.HandleFunc("/incomes/detail", s.secured(s.requireAuth(s.handleIncomeDetail)))
	mux.HandleFunc("/incomes/delete", s.secured(s.requireAuth(s.handleDeleteIncome)))

	mux.HandleFunc("/dashboard", s.secured(s.requireAuth(s.handleDashboard)))
	mux.HandleFunc("/analysis", s.secured(s.requireAuth(s.handleAnalysis)))
	mux.HandleFunc("/balance-sheet", s.secured(s.requireAuth(s.handleBalanceSheet)))
	mux.HandleFunc("/profit-loss", s.secured(s.requireAuth(s.handleProfitLoss)))

	mux.HandleFunc("/reports/csv", s.secured(s.requireAuth(s.handleReportCSV)))
	mux.HandleFunc("/reports/export", s.secured(s.requireAuth(s.handleRequestExport)))
	mux.HandleFunc("/reports/exports", s.secured(s.requireAuth(s.handleListExports)))

	return s
}

// secured adds security headers, request tracing and rate limiting on
// mutating methods.
func (s *Server) secured(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		reqLogger := s.logger.With(
			log.FieldRequestID, requestID,
			log.FieldClientIP, clientIP)
		ctx := log.IntoContext(r.Context(), reqLogger)
		r = r.WithContext(ctx)

		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			if !s.rateLimiter.allow(clientIP, s.metrics) {
				reqLogger.WarnContext(ctx, "rate limit exceeded",
					log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
				w.Header().Set("Retry-After", "60")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		reqLogger.InfoContext(ctx, "request completed",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds())
	}
}

// responseWriter captures the status code for request logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.repo.CountPeople(r.Context(), 0); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database not ready")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Shutdown stops the HTTP listener, the rate limiter and the cache
// janitor.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cancelJanitor()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
