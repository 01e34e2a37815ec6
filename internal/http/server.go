// Package http exposes the JSON API: auth, schedules, ledger,
// inventory, payroll, reports and the legacy import.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"fixops/internal/cache"
	"fixops/internal/core"
	"fixops/internal/gateway"
	applog "fixops/internal/log"
	"fixops/internal/middleware/ratelimit"
	"fixops/internal/middleware/security"
	"fixops/internal/middleware/trace"
	"fixops/internal/report"
	"fixops/internal/services"
)

const (
	readTimeout     = 15 * time.Second
	writeTimeout    = 30 * time.Second
	idleTimeout     = 60 * time.Second
	shutdownTimeout = 10 * time.Second

	reportCacheSize = 256
	reportCacheTTL  = 5 * time.Minute
)

// Options wires the server's dependencies. Every collaborator is passed
// in explicitly; the server owns only its caches and middleware.
type Options struct {
	Addr               string
	JWTSecret          string
	TokenTTL           time.Duration
	RateLimitPerMinute int

	Users     gateway.UserStore
	Employees gateway.EmployeeStore

	Schedules *services.ScheduleService
	Ledger    *services.LedgerService
	Inventory *services.InventoryService
	Payroll   *services.PayrollService
	Reports   *services.ReportService
	Importer  *services.ImportService

	// ReadyCheck backs /readyz; nil means always ready.
	ReadyCheck func(context.Context) error
}

type Server struct {
	httpServer *http.Server

	jwtSecret string
	tokenTTL  time.Duration

	users      gateway.UserStore
	employees  gateway.EmployeeStore
	schedules  *services.ScheduleService
	ledger     *services.LedgerService
	inventory  *services.InventoryService
	payroll    *services.PayrollService
	reports    *services.ReportService
	importer   *services.ImportService
	readyCheck func(context.Context) error

	detector *security.Detector
	limiter  *ratelimit.Limiter

	cacheManager *cache.Manager
	seriesCache  *cache.LRUCache[services.DailySeries]
	totalsCache  *cache.LRUCache[report.Totals]

	shutdownOnce sync.Once
}

func NewServer(opts Options) *Server {
	s := &Server{
		jwtSecret:  opts.JWTSecret,
		tokenTTL:   opts.TokenTTL,
		users:      opts.Users,
		employees:  opts.Employees,
		schedules:  opts.Schedules,
		ledger:     opts.Ledger,
		inventory:  opts.Inventory,
		payroll:    opts.Payroll,
		reports:    opts.Reports,
		importer:   opts.Importer,
		readyCheck: opts.ReadyCheck,
		detector:   security.NewDetector(),
	}

	s.limiter = ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: opts.RateLimitPerMinute,
	})

	s.seriesCache = cache.NewLRUCache[services.DailySeries](reportCacheSize, reportCacheTTL)
	s.totalsCache = cache.NewLRUCache[report.Totals](reportCacheSize, reportCacheTTL)
	s.cacheManager = cache.NewManager()
	s.cacheManager.Register(s.seriesCache)
	s.cacheManager.Register(s.totalsCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	addr := opts.Addr
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.buildHandler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	return s
}

func (s *Server) buildHandler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/users", s.protect(core.RoleAdmin, s.handleCreateUser))

	mux.HandleFunc("GET /api/schedules", s.protect(core.RoleEmployee, s.handleListSchedules))
	mux.HandleFunc("POST /api/schedules", s.protect(core.RoleManager, s.handleCreateSchedule))
	mux.HandleFunc("GET /api/schedules/{id}", s.protect(core.RoleEmployee, s.handleGetSchedule))
	mux.HandleFunc("PUT /api/schedules/{id}", s.protect(core.RoleManager, s.handleUpdateSchedule))
	mux.HandleFunc("DELETE /api/schedules/{id}", s.protect(core.RoleManager, s.handleDeleteSchedule))

	mux.HandleFunc("GET /api/ledger", s.protect(core.RoleManager, s.handleListEntries))
	mux.HandleFunc("POST /api/ledger", s.protect(core.RoleManager, s.handleCreateEntry))
	mux.HandleFunc("PUT /api/ledger/{id}", s.protect(core.RoleManager, s.handleUpdateEntry))
	mux.HandleFunc("DELETE /api/ledger/{id}", s.protect(core.RoleManager, s.handleDeleteEntry))

	mux.HandleFunc("GET /api/materials", s.protect(core.RoleEmployee, s.handleListMaterials))
	mux.HandleFunc("POST /api/materials", s.protect(core.RoleManager, s.handleCreateMaterial))
	mux.HandleFunc("POST /api/materials/{id}/adjust", s.protect(core.RoleManager, s.handleAdjustStock))

	mux.HandleFunc("GET /api/employees", s.protect(core.RoleManager, s.handleListEmployees))
	mux.HandleFunc("POST /api/employees", s.protect(core.RoleAdmin, s.handleCreateEmployee))

	mux.HandleFunc("GET /api/payroll", s.protect(core.RoleManager, s.handlePayroll))

	mux.HandleFunc("GET /api/reports/daily", s.protect(core.RoleEmployee, s.handleDailyReport))
	mux.HandleFunc("GET /api/reports/totals", s.protect(core.RoleManager, s.handleTotalsReport))
	mux.HandleFunc("GET /api/reports/export", s.protect(core.RoleManager, s.handleExportReport))

	mux.HandleFunc("POST /api/import", s.protect(core.RoleAdmin, s.handleImport))

	extractIP := s.detector.ExtractClientIP
	var handler http.Handler = mux
	handler = s.limiter.Middleware(extractIP)(handler)
	handler = trace.NewMiddleware(extractIP).Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	return handler
}

// Handler exposes the full middleware chain, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	slog.Info("Starting HTTP server",
		applog.FieldComponent, applog.ComponentHTTP,
		"addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the server and its background goroutines. Safe to call
// more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		s.cacheManager.Stop()
		err = s.httpServer.Shutdown(ctx)
	})
	return err
}

// purgeReportCaches drops all cached report output. Called after every
// successful write because a single record can shift many aggregates.
func (s *Server) purgeReportCaches() {
	s.seriesCache.Purge()
	s.totalsCache.Purge()
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.readyCheck != nil {
		if err := s.readyCheck(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
