package web

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vbonduro/propertypassport/internal/govdata"
	"github.com/vbonduro/propertypassport/internal/metrics"
	"github.com/vbonduro/propertypassport/internal/objectstore"
	"github.com/vbonduro/propertypassport/internal/service"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Options wires a Server. Metrics and DB are optional.
type Options struct {
	Services  *service.Services
	GovData   *govdata.Service
	Users     userUpserter
	Objects   objectstore.Store
	Signer    *objectstore.Signer
	Templates fs.FS
	Metrics   *metrics.Metrics
	DB        Pinger
	JWTSecret []byte
	RateLimit float64
	RateBurst int
	Logger    *slog.Logger
}

type Server struct {
	services  *service.Services
	govdata   *govdata.Service
	objects   objectstore.Store
	signer    *objectstore.Signer
	auth      *authenticator
	limiter   *rateLimiter
	metrics   *metrics.Metrics
	db        Pinger
	templates fs.FS
	mux       *http.ServeMux
	tmplFuncs template.FuncMap
	logger    *slog.Logger
}

func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		services:  opts.Services,
		govdata:   opts.GovData,
		objects:   opts.Objects,
		signer:    opts.Signer,
		auth:      &authenticator{secret: opts.JWTSecret, users: opts.Users},
		limiter:   newRateLimiter(opts.RateLimit, opts.RateBurst),
		metrics:   opts.Metrics,
		db:        opts.DB,
		templates: opts.Templates,
		mux:       http.NewServeMux(),
		logger:    logger,
		tmplFuncs: template.FuncMap{
			"label": label,
			"date":  func(t time.Time) string { return t.Format("2 Jan 2006") },
			"stamp": func(t time.Time) string { return t.Format("2 Jan 2006 15:04") },
		},
	}
	s.registerRoutes()
	return s
}

// handle registers an authenticated-or-anonymous route.
func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.Handle(pattern, s.withCaller(h))
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
	s.mux.HandleFunc("GET "+objectstore.FilePath+"{token}", s.handleFile)

	s.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	})
	s.handle("GET /dashboard", s.handleDashboardPage)
	s.handle("GET /properties/{id}", s.handlePropertyPage)
	s.handle("GET /properties/{id}/timeline", s.handleTimelinePartial)

	s.handle("GET /api/dashboard", s.handleDashboard)

	s.handle("POST /api/properties", s.handleCreateProperty)
	s.handle("GET /api/properties/{id}", s.handleGetProperty)
	s.handle("PUT /api/properties/{id}", s.handleUpdateProperty)
	s.handle("PUT /api/properties/{id}/visibility", s.handleSetVisibility)
	s.handle("DELETE /api/properties/{id}", s.handleDeleteProperty)

	s.handle("GET /api/properties/{id}/documents", s.handleListDocuments)
	s.handle("POST /api/properties/{id}/documents", s.handleUploadDocument)
	s.handle("GET /api/documents/{id}/url", s.handleDocumentURL)
	s.handle("DELETE /api/documents/{id}", s.handleDeleteDocument)

	s.handle("GET /api/properties/{id}/media", s.handleListMedia)
	s.handle("POST /api/properties/{id}/media", s.handleUploadMedia)
	s.handle("GET /api/media/{id}/url", s.handleMediaURL)
	s.handle("PATCH /api/media/{id}", s.handleUpdateMedia)
	s.handle("DELETE /api/media/{id}", s.handleDeleteMedia)

	s.handle("GET /api/properties/{id}/stakeholders", s.handleListStakeholders)
	s.handle("POST /api/properties/{id}/stakeholders", s.handleAddStakeholder)
	s.handle("PATCH /api/stakeholders/{id}", s.handleUpdateStakeholder)
	s.handle("DELETE /api/stakeholders/{id}", s.handleRemoveStakeholder)

	s.handle("GET /api/properties/{id}/invitations", s.handleListInvitations)
	s.handle("POST /api/properties/{id}/invitations", s.handleInvite)
	s.handle("DELETE /api/invitations/{id}", s.handleRevokeInvitation)
	s.handle("POST /api/invitations/accept", s.handleAcceptInvitation)

	s.handle("GET /api/properties/{id}/flags", s.handleListFlags)
	s.handle("POST /api/properties/{id}/flags", s.handleRaiseFlag)
	s.handle("PATCH /api/flags/{id}", s.handleUpdateFlag)
	s.handle("POST /api/flags/{id}/resolve", s.handleResolveFlag)

	s.handle("GET /api/properties/{id}/events", s.handleListEvents)
	s.handle("POST /api/properties/{id}/events", s.handleAddEvent)

	s.handle("POST /api/govdata/epc", s.limited(s.handleEPC))
	s.handle("POST /api/govdata/land-registry", s.limited(s.handleLandRegistry))
	s.handle("POST /api/govdata/flood-risk", s.limited(s.handleFloodRisk))
	s.handle("POST /api/govdata/crime", s.limited(s.handleCrime))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.PingContext(r.Context()); err != nil {
			s.logger.Error("health check failed", "error", err)
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

// securityHeaders sets browser hardening headers on every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy",
			"default-src 'self'; "+
				"script-src 'self'; "+
				"style-src 'self' 'unsafe-inline'; "+
				"img-src 'self' data:; "+
				"media-src 'self'; "+
				"connect-src 'self'")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestLogger logs every request and, when m is set, records it under the
// route pattern the mux matched.
func requestLogger(logger *slog.Logger, m *metrics.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)
		if m != nil {
			m.RecordHTTPRequest(r.Method, routeOf(r), rec.status, elapsed)
		}
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", elapsed.Milliseconds(),
		)
	})
}

// routeOf strips the method from the matched pattern.
func routeOf(r *http.Request) string {
	if _, route, ok := strings.Cut(r.Pattern, " "); ok {
		return route
	}
	return r.Pattern
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, s.metrics, securityHeaders(s.mux)).ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// renderPage parses and executes a full-page template set.
func (s *Server) renderPage(w http.ResponseWriter, data any, files ...string) error {
	tmpl, err := template.New("").Funcs(s.tmplFuncs).ParseFS(s.templates, files...)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return tmpl.ExecuteTemplate(w, "base", data)
}

// renderPartial parses and executes a single named partial template.
// The file must contain exactly one {{define "name"}}...{{end}} block.
func (s *Server) renderPartial(w http.ResponseWriter, file string, data any) error {
	tmpl, err := template.New("").Funcs(s.tmplFuncs).ParseFS(s.templates, file)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	basename := file
	if idx := strings.LastIndexByte(file, '/'); idx >= 0 {
		basename = file[idx+1:]
	}
	for _, t := range tmpl.Templates() {
		if n := t.Name(); n != "" && n != basename {
			return t.Execute(w, data)
		}
	}
	return tmpl.ExecuteTemplate(w, basename, data)
}

// label turns an enum value such as "semi_detached" into "Semi detached".
func label(v any) string {
	s := strings.ReplaceAll(fmt.Sprint(v), "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
