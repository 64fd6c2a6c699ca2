package http

import (
	"context"
	"log/slog"
	"net/http"

	"notifications/internal/config"
	"notifications/internal/infra/monolith"
	"notifications/internal/infra/telemetry"
	"notifications/internal/usecase"

	"github.com/gin-gonic/gin"
)

type MonolithHealth interface {
	Configured() bool
	Health(ctx context.Context) (monolith.Status, error)
}

type Server struct {
	cfg    config.Config
	r      *gin.Engine
	logger *slog.Logger

	gate     *usecase.AuthorizationGate
	health   *usecase.HealthAggregator
	monolith MonolithHealth
	metrics  *telemetry.Collector
}

type ServerDeps struct {
	Gate     *usecase.AuthorizationGate
	Health   *usecase.HealthAggregator
	Monolith MonolithHealth
	Metrics  *telemetry.Collector
	Logger   *slog.Logger
}

func NewServer(cfg config.Config, deps ServerDeps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		r:        gin.New(),
		logger:   logger,
		gate:     deps.Gate,
		health:   deps.Health,
		monolith: deps.Monolith,
		metrics:  deps.Metrics,
	}
	s.r.Use(requestID(), s.requestLogger(), gin.CustomRecovery(s.recoverPanic))
	if cfg.IsProduction() {
		s.r.Use(securityHeaders())
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.r.GET("/health/", s.handleHealth)
	s.r.GET("/health/detailed/", s.handleHealthDetailed)
	if s.cfg.MetricsEnabled && s.metrics != nil {
		s.r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	v1 := s.r.Group("/v1")
	{
		v1.GET("/me", s.Protect(usecase.PolicyUser, s.handleMe))

		admin := v1.Group("/admin", s.AdminRequired())
		admin.GET("/monolith/health", s.handleMonolithHealth)
	}

	s.r.NoRoute(s.handleNoRoute)
}

func (s *Server) Handler() http.Handler {
	return s.r
}

func (s *Server) Run() error {
	return s.r.Run(s.cfg.HTTPAddr)
}
