package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"finanzas/internal/config"
	applog "finanzas/internal/log"
	"finanzas/internal/middleware/identity"
	"finanzas/internal/middleware/ratelimit"
	"finanzas/internal/middleware/security"
	"finanzas/internal/middleware/trace"
	"finanzas/internal/services"
	"finanzas/internal/storage"
)

type Server struct {
	http.Server

	svc    *services.Services
	repo   *storage.SQLiteRepository
	cfg    *config.Config
	logger *applog.Logger
	now    func() time.Time

	tracer   *trace.Middleware
	detector *security.Detector
	limiter  *ratelimit.Limiter
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
// The chain is trace, security headers, probe detection, rate limit and
// identity; health and metrics routes skip the last two.
func NewServer(cfg *config.Config, repo *storage.SQLiteRepository, svc *services.Services, logger *applog.Logger) *Server {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	s := &Server{
		Server: http.Server{
			Addr:              ":" + cfg.Port,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      5 * time.Minute,
			IdleTimeout:       2 * time.Minute,
		},
		svc:      svc,
		repo:     repo,
		cfg:      cfg,
		logger:   logger.WithComponent(applog.ComponentHTTP),
		now:      time.Now,
		detector: security.NewDetector(logger),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerWindow: cfg.RateLimitPerMinute,
			Window:            time.Minute,
		}),
		started: time.Now(),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	api := http.NewServeMux()
	s.routes(api)

	protected := s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit)(
		identity.Middleware(cfg.IdentityTokenSecret, s.onUnauthorized)(api))

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", handleHealth)
	root.HandleFunc("GET /readyz", s.handleReady)
	root.HandleFunc("GET /metrics", s.handleMetrics)
	root.Handle("/", protected)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Handler = s.tracer.Middleware(headers.Middleware(s.detector.Middleware(root)))
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mountResource(mux, "badges", s.svc.Badges, nil)
	mountResource(mux, "groups", s.svc.Groups, nil)
	mountResource(mux, "categories", s.svc.Categories, nil)
	mountResource(mux, "accounts", s.svc.Accounts, nil)
	mountResource(mux, "events", s.svc.Events, nil)
	mountResource(mux, "investments", s.svc.Investments, nil)
	mountResource(mux, "appreciations", s.svc.Appreciations, nil)
	mountResource(mux, "movements", s.svc.Movements.Service, s.handleMovements)
	mountResource(mux, "budgets", s.svc.Budgets.Service, nil)
	mountResource(mux, "heritages", s.svc.Heritages.Service, nil)
	mountResource(mux, "payments", s.svc.Payments, nil)

	s.mountImports(mux)

	mux.HandleFunc("GET /reports/totals", s.handleTotals)
	mux.HandleFunc("GET /reports/{type}/{period}", s.handleReport)
	mux.HandleFunc("GET /balances", s.handleBalances)
	mux.HandleFunc("GET /balances/history", s.handleBalanceHistory)
	mux.HandleFunc("GET /accounts/{id}/balance", s.handleAccountBalance)
	mux.HandleFunc("GET /budgets/report", s.handleBudgetReport)
	mux.HandleFunc("GET /heritages/summary", s.handleHeritageSummary)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		NewJSONResponse().Status(http.StatusNotFound).Body(ErrorBody{Error: ErrorDetail{
			Type:    applog.ErrorTypeNotFound,
			Message: "no route for " + r.Method + " " + r.URL.Path,
		}}).Write(w)
	})
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldPath, r.URL.Path)
	NewJSONResponse().Status(http.StatusTooManyRequests).Body(ErrorBody{Error: ErrorDetail{
		Type:    "rate_limited",
		Message: "rate limit exceeded, retry later",
	}}).Write(w)
}

func (s *Server) onUnauthorized(w http.ResponseWriter, r *http.Request, err error) {
	NewJSONResponse().Status(http.StatusUnauthorized).Body(ErrorBody{Error: ErrorDetail{
		Type:    applog.ErrorTypeAuth,
		Message: err.Error(),
	}}).Write(w)
}

// Shutdown gracefully shuts down the server and its background goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports ready once the store answers a ping.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.repo.Ping(ctx); err != nil {
		s.logger.ErrorContext(r.Context(), "Readiness check failed", applog.FieldError, err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type metricsBody struct {
	UptimeSeconds int64 `json:"uptimeSeconds"`
	Requests      struct {
		Total         int64 `json:"total"`
		ClientErrors  int64 `json:"clientErrors"`
		ServerErrors  int64 `json:"serverErrors"`
		AverageMicros int64 `json:"averageMicros"`
	} `json:"requests"`
	RateLimit struct {
		Rejected int64 `json:"rejected"`
		Clients  int64 `json:"clients"`
	} `json:"rateLimit"`
	SuspiciousRequests int64 `json:"suspiciousRequests"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var body metricsBody
	body.UptimeSeconds = int64(time.Since(s.started).Seconds())

	tm := s.tracer.GetMetrics()
	body.Requests.Total = tm.TotalRequests
	body.Requests.ClientErrors = tm.ClientErrors
	body.Requests.ServerErrors = tm.ServerErrors
	body.Requests.AverageMicros = tm.AverageResponseTime()

	rm := s.limiter.GetMetrics()
	body.RateLimit.Rejected = rm.Rejected
	body.RateLimit.Clients = rm.ClientCount

	body.SuspiciousRequests = s.detector.GetMetrics().SuspiciousRequests
	writeJSON(w, http.StatusOK, body)
}
