package server

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Ashenafi-pixel/trustcade-rewards/config"
	"github.com/Ashenafi-pixel/trustcade-rewards/engine"
	"github.com/Ashenafi-pixel/trustcade-rewards/logger"
	"github.com/Ashenafi-pixel/trustcade-rewards/metrics"
)

const defaultFeedLimit = 10

type Server struct {
	cfg     *config.Config
	engine  *engine.Engine
	metrics *metrics.Metrics
	log     *logger.Logger
	now     func() time.Time
	mux     *http.ServeMux
}

func New(cfg *config.Config, eng *engine.Engine, m *metrics.Metrics, log *logger.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		engine:  eng,
		metrics: m,
		log:     log,
		now:     time.Now,
		mux:     http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	mux := s.mux
	mux.HandleFunc("GET /health", s.health)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("GET /api/prizes", s.handlePrizes)
	mux.HandleFunc("POST /api/spin", s.handleSpin)
	mux.HandleFunc("GET /api/participants/{id}/eligibility", s.handleEligibility)
	mux.HandleFunc("GET /api/participants/{id}/wins", s.handleParticipantWins)
	mux.HandleFunc("GET /api/participants/{id}/spins", s.handleParticipantSpins)
	mux.HandleFunc("PUT /api/participants/{id}", s.handleRegisterParticipant)
	mux.HandleFunc("POST /api/wins/{id}/claim", s.handleClaim)
	mux.HandleFunc("GET /api/winners/recent", s.handleRecentWinners)
	mux.HandleFunc("GET /api/leaderboard", s.handleLeaderboard)

	// Admin: fulfillment and catalog edits, guarded by ADMIN_TOKEN.
	mux.Handle("POST /api/admin/wins/{id}/ship", s.admin(s.handleShip))
	mux.Handle("POST /api/admin/wins/{id}/deliver", s.admin(s.handleDeliver))
	mux.Handle("GET /api/admin/catalog", s.admin(s.handleGetCatalog))
	mux.Handle("PUT /api/admin/catalog", s.admin(s.handlePutCatalog))
	mux.Handle("PATCH /api/admin/catalog/{id}", s.admin(s.handlePatchPrize))
	mux.Handle("GET /api/admin/stats", s.admin(s.handleStats))
	mux.Handle("GET /api/admin/audit", s.admin(s.handleAudit))
}

// Handler returns the full middleware chain around the routes.
func (s *Server) Handler() http.Handler {
	return cors(s.requestLogger(s.metrics.Middleware(s.routeName, s.mux)))
}

func (s *Server) routeName(r *http.Request) string {
	_, pattern := s.mux.Handler(r)
	if pattern == "" {
		return "unmatched"
	}
	return pattern
}

func (s *Server) Run() error {
	port := s.cfg.Port
	if port <= 0 {
		port = 8080
	}
	addr := ":" + strconv.Itoa(port)
	s.log.Entry().WithField("addr", addr).Info("TrustCade listening")
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

func cors(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// requestLogger logs method, path, status and duration (no body or secrets).
func (s *Server) requestLogger(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(sw, r)
		s.log.Entry().WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      sw.status,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Debug("request")
	})
}

// admin rejects requests without the configured bearer token. With no token
// configured the admin API is disabled.
func (s *Server) admin(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AdminToken == "" {
			writeError(w, http.StatusForbidden, "admin API disabled", "ADMIN_DISABLED")
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AdminToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "admin token required", "UNAUTHORIZED")
			return
		}
		next(w, r)
	})
}

// fail renders err and logs anything outside the domain taxonomy.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if writeDomainError(w, err, s.now()) {
		return
	}
	s.log.Entry().WithError(err).WithField("path", r.URL.Path).Error("request failed")
	writeError(w, http.StatusInternalServerError, "internal error", "INTERNAL")
}

func parseLimit(r *http.Request) (int, bool) {
	v := strings.TrimSpace(r.URL.Query().Get("limit"))
	if v == "" {
		return defaultFeedLimit, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
