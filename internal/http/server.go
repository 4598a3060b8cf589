// Package http exposes the ledger and analytics engines as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"finans/internal/analytics"
	"finans/internal/cache"
	"finans/internal/core"
	"finans/internal/ingest"
	"finans/internal/log"
	"finans/internal/middleware/ratelimit"
	"finans/internal/middleware/security"
	"finans/internal/middleware/trace"
	"finans/internal/storage"
)

// Publisher hands uploaded statements to the ingestion worker.
type Publisher interface {
	PublishStatementUploaded(ctx context.Context, uploadID, pdfPath string) error
}

// Options configures a Server. Publisher may be nil: uploads are then
// ingested synchronously through Ingestor. Ingestor must be set when
// Publisher is nil.
type Options struct {
	Addr         string
	Store        *storage.SQLiteStore
	Engine       *analytics.Engine
	Ingestor     *ingest.Service
	Publisher    Publisher
	DocumentsDir string
	Logger       *log.Logger
}

type Server struct {
	http.Server

	store     *storage.SQLiteStore
	engine    *analytics.Engine
	ingestor  *ingest.Service
	publisher Publisher
	docsDir   string
	logger    *log.Logger

	// Dashboard snapshots are cheap to recompute but hit four
	// aggregate queries; cache them briefly and drop the cache on any
	// write.
	dashboardCache *cache.LRUCache[*core.DashboardStats]
	cacheManager   *cache.Manager

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a
// ready-to-run server.
func NewServer(opts Options) *Server {
	mux := http.NewServeMux()

	s := &Server{
		store:          opts.Store,
		engine:         opts.Engine,
		ingestor:       opts.Ingestor,
		publisher:      opts.Publisher,
		docsDir:        opts.DocumentsDir,
		logger:         opts.Logger.WithComponent(log.ComponentHTTP),
		dashboardCache: cache.NewLRUCache[*core.DashboardStats](100, 1*time.Minute),
		cacheManager:   cache.NewManager(),
		limiter:        ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:       security.NewDetector(),
	}
	s.cacheManager.Register(s.dashboardCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/cards", s.handleListCards)
	mux.HandleFunc("POST /api/cards", s.handleCreateCard)
	mux.HandleFunc("GET /api/cards/{id}", s.handleGetCard)
	mux.HandleFunc("PUT /api/cards/{id}", s.handleUpdateCard)
	mux.HandleFunc("DELETE /api/cards/{id}", s.handleDeleteCard)

	mux.HandleFunc("GET /api/statements", s.handleListStatements)
	mux.HandleFunc("GET /api/statements/{id}", s.handleGetStatement)
	mux.HandleFunc("DELETE /api/statements/{id}", s.handleDeleteStatement)
	mux.HandleFunc("POST /api/statements/upload", s.handleUploadStatement)
	mux.HandleFunc("POST /api/statements/{id}/transactions", s.handleCreateTransactions)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("PUT /api/transactions/category", s.handleBulkUpdateCategory)
	mux.HandleFunc("PUT /api/transactions/{id}/category", s.handleUpdateCategory)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("POST /api/transactions/delete", s.handleBulkDeleteTransactions)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)

	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/comparison", s.handleComparison)
	mux.HandleFunc("GET /api/months", s.handleMonths)
	mux.HandleFunc("GET /api/export/transactions.csv", s.handleExportCSV)

	mux.HandleFunc("DELETE /api/data", s.handleClearData)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP)
	limitMW := s.limiter.Middleware(s.detector.ExtractClientIP, nil)

	var handler http.Handler = mux
	handler = limitMW(handler)
	handler = headers.Middleware(handler)
	handler = s.suspicionMiddleware(handler)
	handler = s.tracer.Middleware(handler)
	handler = log.Middleware(s.logger)(handler)

	s.Server = http.Server{
		Addr:         opts.Addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // sync ingestion can be slow
		IdleTimeout:  2 * time.Minute,
	}
	return s
}

// suspicionMiddleware logs requests matching known probe patterns.
// They are not rejected: the detector is heuristic and the API is
// behind auth at the edge.
func (s *Server) suspicionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldClientIP, s.detector.ExtractClientIP(r))
		}
		next.ServeHTTP(w, r)
	})
}

// invalidateDerived drops cached analytics after any ledger write.
func (s *Server) invalidateDerived() {
	s.dashboardCache.Clear()
}

// Shutdown stops the HTTP listener and the background cleanup
// goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	metrics := s.tracer.GetMetrics()
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"total_requests":  metrics.TotalRequests,
		"avg_response_us": metrics.AverageResponseTime,
		"active_clients":  s.limiter.ActiveClients(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.ListCards(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "store not ready")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
