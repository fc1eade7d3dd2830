package checkout

import (
	"errors"
	"io"
	"net/http"

	"go-storefront/internal/cart"
	"go-storefront/internal/middleware"
	"go-storefront/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	cart    cart.Service
	logger  *zap.Logger
}

func NewHandler(svc Service, cartSvc cart.Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("checkout.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("checkout.handler")
	}
	return &Handler{service: svc, cart: cartSvc, logger: l}
}

// GET /checkout/summary
func (h *Handler) Summary(c *gin.Context) {
	id := middleware.CurrentIdentity(c)
	sum, err := h.service.Summary(c.Request.Context(), id)
	if err != nil {
		response.ServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ToSummaryResponse(sum, h.cart.Pending(id.UserID)), nil)
}

// POST /checkout
// With ?redirect=true the browser is sent straight to the payment page.
func (h *Handler) Initiate(c *gin.Context) {
	id := middleware.CurrentIdentity(c)

	var req InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, http.StatusBadRequest, "BAD_REQUEST", "Invalid input", err.Error())
		return
	}

	key := c.GetString(middleware.ContextIdempotencyKey)
	res, err := h.service.Initiate(c.Request.Context(), id, req, key)
	if err != nil {
		h.logger.Debug("checkout failed", zap.String("user_id", id.UserID), zap.Error(err))
		response.ServiceError(c, err)
		return
	}

	if c.Query("redirect") == "true" {
		c.Redirect(http.StatusSeeOther, res.PaymentURL)
		return
	}
	response.Success(c, http.StatusCreated, InitiateResponse{PaymentURL: res.PaymentURL}, nil)
}
