// Package server wires the billing API onto gin and manages the HTTP
// listener lifecycle.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apikeydomain "github.com/ringbill/ringbill/internal/apikey/domain"
	"github.com/ringbill/ringbill/internal/config"
	"github.com/ringbill/ringbill/internal/observability/logger"
	"github.com/ringbill/ringbill/internal/observability/metrics"
	"github.com/ringbill/ringbill/internal/ratelimit"
)

// NewEngine builds the gin engine with the shared middleware chain.
func NewEngine(cfg config.Config, httpMetrics *metrics.HTTPMetrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		logger.GinMiddleware(logger.MiddlewareConfig{
			SkipPaths: []string{"/healthz", "/readyz", "/metrics"},
		}),
		metrics.GinMiddleware(httpMetrics),
	)
	return engine
}

// RegisterRoutes mounts the API surface. Probes and metrics stay outside the
// API key middleware.
func RegisterRoutes(engine *gin.Engine, handler *Handler, db *gorm.DB, limiter ratelimit.Limiter) {
	engine.GET("/healthz", handler.Healthz)
	engine.GET("/readyz", handler.Readyz)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api/billing", APIKeyAuth(db, limiter))

	read := RequireScope(apikeydomain.ScopeBillingRead)
	write := RequireScope(apikeydomain.ScopeBillingWrite)
	resolve := RequireScope(apikeydomain.ScopeDisputeResolve)

	api.GET("/settings", read, handler.ListBillingSettings)
	api.GET("/settings/effective", read, handler.GetEffectiveSettings)
	api.PUT("/settings", write, handler.UpsertBillingSettings)

	api.GET("/pricing-rules", read, handler.ListPricingRules)
	api.POST("/pricing-rules", write, handler.CreatePricingRule)
	api.PATCH("/pricing-rules/:id", write, handler.UpdatePricingRule)
	api.DELETE("/pricing-rules/:id", write, handler.DeletePricingRule)

	api.GET("/calls", read, handler.ListCalls)
	api.GET("/calls/:id", read, handler.GetCall)
	api.POST("/calls/:id/process", write, handler.ProcessCall)
	api.POST("/calls/calculate-price", read, handler.PreviewPrice)

	api.GET("/disputes", read, handler.ListDisputes)
	api.GET("/disputes/:id", read, handler.GetDispute)
	api.POST("/disputes", write, handler.CreateDispute)
	api.POST("/disputes/:id/resolve", resolve, handler.ResolveDispute)

	api.GET("/summary", read, handler.BillingSummary)
}

type RunParam struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Log       *zap.Logger
	Engine    *gin.Engine
	Handler   *Handler
	DB        *gorm.DB
	Limiter   ratelimit.Limiter
}

// RunHTTP starts the listener on fx start and drains it on stop.
func RunHTTP(p RunParam) {
	RegisterRoutes(p.Engine, p.Handler, p.DB, p.Limiter)

	srv := &http.Server{
		Addr:         p.Config.Server.Addr,
		Handler:      p.Engine,
		ReadTimeout:  p.Config.Server.ReadTimeout,
		WriteTimeout: p.Config.Server.WriteTimeout,
	}
	log := p.Log.Named("server")

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, p.Config.Server.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Module("server",
	fx.Provide(
		NewEngine,
		NewHandler,
	),
	fx.Invoke(RunHTTP),
)
