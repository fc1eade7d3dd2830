package app

import (
	"context"
	"net/http"
	"time"

	"go-storefront/internal/config"
	"go-storefront/internal/marketplace"
	"go-storefront/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type App struct {
	Router *gin.Engine
	Config config.Config
	Logger *zap.Logger
}

// BuildApp wires infrastructure, services and routes. The returned cleanup
// stops the event publisher and closes connections; call it after the
// HTTP server has shut down.
func BuildApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, func(), error) {
	// 1. Setup Infrastructure
	in, err := newInfra(ctx, cfg, logger, true)
	if err != nil {
		return nil, nil, err
	}

	// 2. Marketplace client
	client, err := marketplace.NewClient(marketplace.Options{
		BaseURL: cfg.Marketplace.BaseURL,
		Timeout: cfg.Marketplace.Timeout,
	})
	if err != nil {
		in.close()
		return nil, nil, err
	}

	// 3. Register Modules & Routes
	router := newRouter(cfg, in, logger)
	registerModules(router, cfg, newServices(client, in, logger), in, logger)

	return &App{Router: router, Config: cfg, Logger: logger}, in.close, nil
}

func newRouter(cfg config.Config, in *infra, logger *zap.Logger) *gin.Engine {
	if cfg.App.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger), middleware.MetricsMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		if in.redis != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
			defer cancel()
			if err := in.redis.Ping(ctx).Err(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "redis": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
