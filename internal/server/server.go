package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/salestax/internal/audit"
	"github.com/smallbiznis/salestax/internal/authorization"
	auditdomain "github.com/smallbiznis/salestax/internal/audit/domain"
	"github.com/smallbiznis/salestax/internal/cache"
	"github.com/smallbiznis/salestax/internal/config"
	"github.com/smallbiznis/salestax/internal/feature"
	featuredomain "github.com/smallbiznis/salestax/internal/feature/domain"
	"github.com/smallbiznis/salestax/internal/geo"
	"github.com/smallbiznis/salestax/internal/migration"
	"github.com/smallbiznis/salestax/internal/observability"
	obslogger "github.com/smallbiznis/salestax/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/salestax/internal/observability/metrics"
	obstracing "github.com/smallbiznis/salestax/internal/observability/tracing"
	"github.com/smallbiznis/salestax/internal/ratelimit"
	"github.com/smallbiznis/salestax/internal/reference"
	"github.com/smallbiznis/salestax/internal/seller"
	sellerdomain "github.com/smallbiznis/salestax/internal/seller/domain"
	"github.com/smallbiznis/salestax/internal/tax"
	taxdomain "github.com/smallbiznis/salestax/internal/tax/domain"
	"github.com/smallbiznis/salestax/internal/tax/taxjar"
	"github.com/smallbiznis/salestax/internal/vatid"
	"github.com/smallbiznis/salestax/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	db.Module,
	migration.Module,
	cache.Module,
	audit.Module,
	authorization.Module,
	reference.Module,
	vatid.Module,
	feature.Module,
	seller.Module,
	geo.Module,
	ratelimit.Module,
	fx.Provide(taxjar.Provide),
	tax.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.CORS.Enabled() {
		r.Use(corsMiddleware(cfg.CORS))
	}
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(cfg, obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
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

type Params struct {
	fx.In

	Engine     *gin.Engine
	Config     config.Config
	Log        *zap.Logger
	TaxSvc     taxdomain.Service
	FeatureSvc featuredomain.Service
	SellerSvc  sellerdomain.Service
	AuditSvc   auditdomain.Service
	AuthzSvc   authorization.Service
	Limiter    ratelimit.Limiter `optional:"true"`
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	log        *zap.Logger
	taxSvc     taxdomain.Service
	featureSvc featuredomain.Service
	sellerSvc  sellerdomain.Service
	auditSvc   auditdomain.Service
	authzSvc   authorization.Service
	limiter    ratelimit.Limiter
}

func NewServer(p Params) *Server {
	svc := &Server{
		engine:     p.Engine,
		cfg:        p.Config,
		log:        p.Log.Named("http.server"),
		taxSvc:     p.TaxSvc,
		featureSvc: p.FeatureSvc,
		sellerSvc:  p.SellerSvc,
		auditSvc:   p.AuditSvc,
		authzSvc:   p.AuthzSvc,
		limiter:    p.Limiter,
	}
	svc.RegisterRoutes()
	return svc
}

func (s *Server) RegisterRoutes() {
	v1 := s.engine.Group("/v1")

	v1.POST("/sales_tax/calculate", ratelimit.GinMiddleware(s.limiter, s.log), s.CalculateSalesTax)
	v1.GET("/reference/canadian_provinces", s.ListCanadianProvinces)

	admin := v1.Group("", s.AdminAuthRequired(), AuditContextMiddleware())

	admin.GET("/tax_rates", s.authorize(authorization.ObjectTaxRate, authorization.ActionTaxRateView), s.ListTaxRates)
	admin.POST("/tax_rates", s.authorize(authorization.ObjectTaxRate, authorization.ActionTaxRateCreate), s.CreateTaxRate)
	admin.DELETE("/tax_rates/:id", s.authorize(authorization.ObjectTaxRate, authorization.ActionTaxRateDelete), s.DeleteTaxRate)

	admin.GET("/feature_flags", s.authorize(authorization.ObjectFeatureFlag, authorization.ActionFeatureFlagView), s.ListFeatureFlags)
	admin.POST("/feature_flags/:name/activate", s.authorize(authorization.ObjectFeatureFlag, authorization.ActionFeatureFlagToggle), s.ActivateFeatureFlag)
	admin.POST("/feature_flags/:name/deactivate", s.authorize(authorization.ObjectFeatureFlag, authorization.ActionFeatureFlagToggle), s.DeactivateFeatureFlag)

	admin.PUT("/sellers/:seller_id/processor_accounts/:processor",
		s.authorize(authorization.ObjectSellerAccount, authorization.ActionSellerAccountManage), s.RegisterSellerAccount)

	admin.GET("/audit_logs", s.authorize(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
}
