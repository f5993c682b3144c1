// Package http serves the JSON API and the HTMX web UI.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"finsight/internal/auth"
	"finsight/internal/log"
	"finsight/internal/middleware/ratelimit"
	"finsight/internal/middleware/security"
	"finsight/internal/middleware/trace"
	"finsight/internal/services"
	appweb "finsight/web"
)

const defaultAnalysisTimeout = 60 * time.Second

// Deps are the collaborators of the server. Transactions and Logger are
// required; the rest have usable defaults.
type Deps struct {
	Transactions *services.TransactionService
	Analysis     *services.AnalysisService
	Auth         *auth.Service
	AuthRequired bool

	Limiter  *ratelimit.Limiter
	Detector *security.Detector

	// Ready checks the backing store for /readyz.
	Ready func(ctx context.Context) error

	AnalysisTimeout time.Duration
	Logger          *log.Logger
	Now             func() time.Time
}

type Server struct {
	http.Server

	txs             *services.TransactionService
	analysis        *services.AnalysisService
	auth            *auth.Service
	authRequired    bool
	ready           func(ctx context.Context) error
	analysisTimeout time.Duration
	now             func() time.Time

	templates        *template.Template
	logger           *log.Logger
	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       *appMetrics
}

// appMetrics tracks application-level counters
type appMetrics struct {
	uptime              time.Time
	transactionsWritten int64
	analyses            int64
	analysisFailures    int64
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		txs:              deps.Transactions,
		analysis:         deps.Analysis,
		auth:             deps.Auth,
		authRequired:     deps.AuthRequired,
		ready:            deps.Ready,
		analysisTimeout:  deps.AnalysisTimeout,
		now:              deps.Now,
		logger:           logger,
		rateLimiter:      deps.Limiter,
		securityDetector: deps.Detector,
		appMetrics:       &appMetrics{uptime: time.Now()},
	}
	if s.analysis == nil {
		s.analysis = services.NewAnalysisService(nil, s.txs, deps.Logger)
	}
	if s.analysisTimeout <= 0 {
		s.analysisTimeout = defaultAnalysisTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.rateLimiter == nil {
		s.rateLimiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())
	}
	if s.securityDetector == nil {
		// the default networks always parse
		s.securityDetector, _ = security.NewDetector()
	}
	s.traceMiddleware = trace.NewMiddleware(deps.Logger, s.securityDetector.ExtractClientIP)

	t, err := template.New("").Funcs(templateFuncs(s.txs.Catalog())).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates",
			log.FieldError, err,
			log.FieldComponent, log.ComponentTemplate)
	} else {
		s.templates = t
	}

	mux := http.NewServeMux()
	s.routes(mux)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// analysis requests wait on the model
		WriteTimeout: s.analysisTimeout + 15*time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	// JSON API
	mux.HandleFunc("GET /api/v1/transactions", s.apiAuth(s.handleListTransactions))
	mux.HandleFunc("POST /api/v1/transactions", s.apiAuth(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/v1/transactions/{id}", s.apiAuth(s.handleGetTransaction))
	mux.HandleFunc("PUT /api/v1/transactions/{id}", s.apiAuth(s.handleUpdateTransaction))
	mux.HandleFunc("PATCH /api/v1/transactions/{id}", s.apiAuth(s.handlePatchTransaction))
	mux.HandleFunc("DELETE /api/v1/transactions/{id}", s.apiAuth(s.handleDeleteTransaction))
	mux.HandleFunc("GET /api/v1/dashboard", s.apiAuth(s.handleDashboard))
	mux.HandleFunc("POST /api/v1/analysis", s.apiAuth(s.handleAnalysis))
	mux.HandleFunc("GET /api/v1/categories", s.handleCategories)

	mux.HandleFunc("POST /api/v1/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/v1/auth/logout", s.requireSession(s.handleLogout))
	mux.HandleFunc("GET /api/v1/auth/me", s.requireSession(s.handleMe))

	// Web UI
	mux.HandleFunc("GET /{$}", s.uiAuth(s.handleIndex))
	mux.HandleFunc("GET /transactions", s.uiAuth(s.handleTransactionsPage))
	mux.HandleFunc("POST /transactions", s.uiAuth(s.handleUICreateTransaction))
	mux.HandleFunc("PUT /transactions/{id}", s.uiAuth(s.handleUIUpdateTransaction))
	mux.HandleFunc("DELETE /transactions/{id}", s.uiAuth(s.handleUIDeleteTransaction))
	mux.HandleFunc("GET /ui/transactions", s.uiAuth(s.handleTransactionList))
	mux.HandleFunc("GET /ui/transactions/{id}/edit", s.uiAuth(s.handleUIEditTransaction))
	mux.HandleFunc("GET /analysis", s.uiAuth(s.handleAnalysisPage))
	mux.HandleFunc("POST /analysis", s.uiAuth(s.handleUIAnalysis))
	mux.HandleFunc("GET /ui/analysis/reset", s.uiAuth(s.handleAnalysisReset))

	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLoginForm)
	mux.HandleFunc("GET /register", s.handleRegisterPage)
	mux.HandleFunc("POST /register", s.handleRegisterForm)
	mux.HandleFunc("POST /logout", s.handleLogoutForm)
}

// middleware wraps the mux, outermost first: tracing and access log,
// security headers, suspicious request logging, rate limiting of writes and
// session extraction.
func (s *Server) middleware(h http.Handler) http.Handler {
	h = s.withSession(h)
	h = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, ratelimit.WritesOnly, s.rateLimited)(h)
	h = s.securityDetector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.traceMiddleware.Middleware(h)
	return h
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)

	if isHTMX(r) {
		ErrorResponse(http.StatusTooManyRequests, "Too many requests. Please try again later.").Write(w)
		return
	}
	writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
