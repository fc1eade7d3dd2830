package checkout

import (
	"time"

	"go-storefront/internal/middleware"
	"go-storefront/internal/shared/idempotency"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RouteOptions struct {
	Idempotency idempotency.Store
	// Rate limit for POST /checkout per user. Replays of a recorded key
	// are not counted. Zero means one request per second with a burst of 5.
	RPS    float64
	Burst  int
	Logger *zap.Logger
}

func RegisterRoutes(r *gin.RouterGroup, handler *Handler, auth gin.HandlerFunc, opts RouteOptions) {
	if opts.RPS <= 0 {
		opts.RPS, opts.Burst = 1, 5
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.Idempotency == nil {
		opts.Idempotency = idempotency.NewMemoryStore(24 * time.Hour)
	}

	checkout := r.Group("/checkout")
	checkout.Use(auth)
	{
		checkout.GET("/summary", handler.Summary)

		checkout.POST("",
			middleware.Idempotency(opts.Idempotency, "checkout", opts.Logger),
			middleware.RateLimitByUser(opts.RPS, opts.Burst),
			handler.Initiate,
		)
	}
}
