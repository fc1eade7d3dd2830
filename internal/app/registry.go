package app

import (
	"go-storefront/internal/cart"
	"go-storefront/internal/checkout"
	"go-storefront/internal/config"
	"go-storefront/internal/coupon"
	"go-storefront/internal/marketplace"
	"go-storefront/internal/middleware"
	"go-storefront/internal/session"
	"go-storefront/internal/shared/inflight"
	"go-storefront/internal/ui"
	"go-storefront/internal/vendorguard"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type services struct {
	sessions session.Manager
	cart     cart.Service
	guard    vendorguard.Service
	coupons  coupon.Service
	checkout checkout.Service
	ui       ui.Service
}

func newServices(client marketplace.Client, in *infra, logger *zap.Logger) services {
	// one tracker so checkout shows up next to cart operations in /ui/state
	tracker := inflight.NewTracker()

	sessions := session.NewManager(in.states, session.NewBus())
	cartService := cart.NewService(cart.Deps{
		Client:   client,
		Cache:    in.cartCache,
		Sessions: sessions,
		Tracker:  tracker,
		Logger:   logger,
	})
	couponService := coupon.NewService(coupon.Deps{
		Client:   client,
		Cart:     cartService,
		Store:    in.selections,
		Sessions: sessions,
		Logger:   logger,
	})

	return services{
		sessions: sessions,
		cart:     cartService,
		guard: vendorguard.NewService(vendorguard.Deps{
			Cart:     cartService,
			Sessions: sessions,
			Logger:   logger,
		}),
		coupons: couponService,
		checkout: checkout.NewService(checkout.Deps{
			Client:    client,
			Cart:      cartService,
			Coupons:   couponService,
			Publisher: in.publisher,
			Tracker:   tracker,
			Logger:    logger,
		}),
		ui: ui.NewService(ui.Deps{
			Sessions: sessions,
			Cart:     cartService,
			Coupons:  couponService,
		}),
	}
}

func registerModules(router *gin.Engine, cfg config.Config, svc services, in *infra, logger *zap.Logger) {
	// --- Handlers ---
	cartHandler := cart.NewHandler(svc.cart, logger)
	guardHandler := vendorguard.NewHandler(svc.guard, svc.cart, logger)
	couponHandler := coupon.NewHandler(svc.coupons, logger)
	checkoutHandler := checkout.NewHandler(svc.checkout, svc.cart, logger)
	uiHandler := ui.NewHandler(svc.ui, logger)

	auth := middleware.AuthMiddleware(cfg.Security.JWTSecret, cfg.Security.CookieName)

	// --- Routes Registration ---
	api := router.Group("/api/v1")
	api.Use(middleware.RateLimitByIP(cfg.RateLimit.DefaultRPS, cfg.RateLimit.DefaultBurst))
	{
		cart.RegisterRoutes(api, cartHandler, auth)
		vendorguard.RegisterRoutes(api, guardHandler, auth)
		coupon.RegisterRoutes(api, couponHandler, auth)
		checkout.RegisterRoutes(api, checkoutHandler, auth, checkout.RouteOptions{
			Idempotency: in.idempotency,
			RPS:         cfg.RateLimit.CheckoutRPS,
			Burst:       cfg.RateLimit.CheckoutBurst,
			Logger:      logger,
		})
		ui.RegisterRoutes(api, uiHandler, auth)
	}
}
