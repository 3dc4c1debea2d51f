package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"filechain/internal/config"
	"filechain/internal/domain"
	"filechain/internal/infra/metrics"
	"filechain/internal/usecase"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	cfg    config.Config
	r      *gin.Engine
	logger *slog.Logger

	ledger     *usecase.Ledger
	signatures *usecase.SignatureStore
	verifier   usecase.SignatureVerifier
	signUC     *usecase.SignBlock
	metrics    *metrics.Metrics
	health     Pinger

	rateLimiter         domain.RateLimiter
	rateLimitRequests   int
	rateLimitWindow     time.Duration
	rateLimitFailClosed bool
	now                 func() time.Time
}

type ServerDeps struct {
	Ledger      *usecase.Ledger
	Signatures  *usecase.SignatureStore
	Verifier    usecase.SignatureVerifier
	Policy      usecase.PolicyEngine
	Metrics     *metrics.Metrics
	Health      Pinger
	RateLimiter domain.RateLimiter
	Logger      *slog.Logger
	Now         func() time.Time
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:        cfg,
		r:          r,
		logger:     deps.Logger,
		ledger:     deps.Ledger,
		signatures: deps.Signatures,
		verifier:   deps.Verifier,
		metrics:    deps.Metrics,
		health:     deps.Health,
		now:        deps.Now,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.signUC = &usecase.SignBlock{
		Ledger:     deps.Ledger,
		Verifier:   deps.Verifier,
		Signatures: deps.Signatures,
		Policy:     deps.Policy,
	}
	if deps.Metrics != nil {
		s.signUC.Metrics = deps.Metrics
		r.Use(s.observe)
	}
	s.initRateLimit(deps.RateLimiter)
	s.routes()
	return s
}

func (s *Server) initRateLimit(limiter domain.RateLimiter) {
	s.rateLimitRequests = s.cfg.RateLimitRequests
	if s.rateLimitRequests <= 0 {
		return
	}
	s.rateLimiter = limiter
	s.rateLimitWindow = s.cfg.RateLimitWindow()
	s.rateLimitFailClosed = s.cfg.RateLimitFailClosed
}

func (s *Server) routes() {
	s.r.GET("/healthz", s.handleHealth)
	if s.metrics != nil {
		s.r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	s.r.POST("/add_block", s.limitWrites(routeAddBlock), s.handleAddBlock)
	s.r.GET("/chain", s.handleChain)
	s.r.GET("/validate_chain", s.handleValidateChain)
	s.r.GET("/block/:index", s.handleBlock)
	s.r.POST("/sign_block", s.limitWrites(routeSignBlock), s.handleSignBlock)
	s.r.GET("/check_signature/:index", s.handleCheckSignature)

	s.r.NoRoute(func(c *gin.Context) {
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
}

func (s *Server) observe(c *gin.Context) {
	c.Next()
	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	s.metrics.RequestServed(route, c.Writer.Status())
}

func (s *Server) Handler() http.Handler {
	return s.r
}

func (s *Server) handleHealth(c *gin.Context) {
	status, code := "ok", http.StatusOK
	if s.health != nil {
		if err := s.health.Ping(c.Request.Context()); err != nil {
			s.logger.Warn("health check failed", "error", err)
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}
	c.JSON(code, gin.H{"status": status, "store": s.cfg.StoreBackend})
}
