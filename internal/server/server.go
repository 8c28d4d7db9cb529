package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fixkit/fixkit/internal/apikey"
	apikeydomain "github.com/fixkit/fixkit/internal/apikey/domain"
	"github.com/fixkit/fixkit/internal/billing"
	"github.com/fixkit/fixkit/internal/clock"
	"github.com/fixkit/fixkit/internal/config"
	"github.com/fixkit/fixkit/internal/migration"
	"github.com/fixkit/fixkit/internal/observability"
	obslogger "github.com/fixkit/fixkit/internal/observability/logger"
	obsmetrics "github.com/fixkit/fixkit/internal/observability/metrics"
	obstracing "github.com/fixkit/fixkit/internal/observability/tracing"
	"github.com/fixkit/fixkit/internal/plan"
	plandomain "github.com/fixkit/fixkit/internal/plan/domain"
	"github.com/fixkit/fixkit/internal/ratelimit"
	"github.com/fixkit/fixkit/internal/tenant"
	"github.com/fixkit/fixkit/internal/usage"
	usagedomain "github.com/fixkit/fixkit/internal/usage/domain"
	"github.com/fixkit/fixkit/internal/usage/reconcile"
	"github.com/fixkit/fixkit/internal/workorder"
	workorderdomain "github.com/fixkit/fixkit/internal/workorder/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	clock.Module,
	observability.Module,
	migration.Module,
	tenant.Module,
	plan.Module,
	apikey.Module,
	billing.Module,
	ratelimit.Module,
	usage.Module,
	reconcile.Module,
	workorder.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, registry *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return r
}

func registerGin(log *zap.Logger, registry *prometheus.Registry) *gin.Engine {
	return NewEngine(log, registry)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	db           *gorm.DB
	genID        *snowflake.Node
	apiKeySvc    apikeydomain.Service
	planSvc      plandomain.Service
	usageSvc     usagedomain.Service
	workorderSvc workorderdomain.Service
	obsMetrics   *obsmetrics.Metrics
	usageLimiter *ratelimit.UsageIngestLimiter
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	DB           *gorm.DB
	GenID        *snowflake.Node
	APIKeySvc    apikeydomain.Service
	PlanSvc      plandomain.Service
	UsageSvc     usagedomain.Service
	WorkorderSvc workorderdomain.Service
	ObsMetrics   *obsmetrics.Metrics           `optional:"true"`
	UsageLimiter *ratelimit.UsageIngestLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		db:           p.DB,
		genID:        p.GenID,
		apiKeySvc:    p.APIKeySvc,
		planSvc:      p.PlanSvc,
		usageSvc:     p.UsageSvc,
		workorderSvc: p.WorkorderSvc,
		obsMetrics:   p.ObsMetrics,
		usageLimiter: p.UsageLimiter,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Usage --------
	api.POST("/usage/events", s.APIKeyRequired(), s.UsageIngestRateLimit(), s.TrackUsageEvent)
	api.GET("/usage/metrics", s.APIKeyRequired(), s.GetUsageMetrics)
	api.GET("/usage/limits", s.APIKeyRequired(), s.GetUsageLimits)
	api.GET("/usage/report", s.APIKeyRequired(), s.GetUsageReport)
	api.GET("/usage/recommended-plan", s.APIKeyRequired(), s.GetRecommendedPlan)

	// -------- Plans --------
	api.GET("/plans", s.APIKeyRequired(), s.ListPlans)

	// -------- Work orders --------
	// Gated: every request under the gate counts against the plan's
	// monthly API-call allowance.
	api.POST("/workorders", s.APIKeyRequired(), s.APIUsageGate(), s.CreateWorkOrder)
	api.GET("/workorders", s.APIKeyRequired(), s.APIUsageGate(), s.ListWorkOrders)
	api.GET("/workorders/:id", s.APIKeyRequired(), s.APIUsageGate(), s.GetWorkOrderByID)
	api.POST("/workorders/:id/status", s.APIKeyRequired(), s.APIUsageGate(), s.UpdateWorkOrderStatus)

	// -------- API keys --------
	api.GET("/apikeys", s.APIKeyRequired(), s.ListAPIKeys)
	api.POST("/apikeys", s.APIKeyRequired(), s.CreateAPIKey)
	api.POST("/apikeys/:keyId/rotate", s.APIKeyRequired(), s.RotateAPIKey)
	api.DELETE("/apikeys/:keyId", s.APIKeyRequired(), s.RevokeAPIKey)
}
