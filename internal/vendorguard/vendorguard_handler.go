package vendorguard

import (
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
	l := zap.L().Named("vendorguard.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("vendorguard.handler")
	}
	return &Handler{service: svc, cart: cartSvc, logger: l}
}

func (h *Handler) write(c *gin.Context, status int, userID string, d Decision) {
	response.Success(c, status, ToResponse(d, h.cart.Pending(userID)), nil)
}

// POST /cart/items
// 201 when the item was added, 202 when it waits for a vendor confirmation.
func (h *Handler) AddItem(c *gin.Context) {
	id := middleware.CurrentIdentity(c)

	var req cart.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "BAD_REQUEST", "Invalid input", err.Error())
		return
	}

	d, err := h.service.RequestAdd(c.Request.Context(), id, req)
	if err != nil {
		h.logger.Debug("add item failed", zap.String("user_id", id.UserID), zap.Error(err))
		response.ServiceError(c, err)
		return
	}

	status := http.StatusCreated
	if d.State == StateAwaitingConfirmation {
		status = http.StatusAccepted
	}
	h.write(c, status, id.UserID, d)
}

// POST /cart/items/confirm
func (h *Handler) Confirm(c *gin.Context) {
	id := middleware.CurrentIdentity(c)
	d, err := h.service.Confirm(c.Request.Context(), id)
	if err != nil {
		h.logger.Debug("confirm failed", zap.String("user_id", id.UserID), zap.Error(err))
		response.ServiceError(c, err)
		return
	}
	h.write(c, http.StatusCreated, id.UserID, d)
}

// DELETE /cart/items/pending
func (h *Handler) Cancel(c *gin.Context) {
	id := middleware.CurrentIdentity(c)
	d, err := h.service.Cancel(c.Request.Context(), id)
	if err != nil {
		response.ServiceError(c, err)
		return
	}
	h.write(c, http.StatusOK, id.UserID, d)
}

// GET /cart/items/pending
func (h *Handler) Status(c *gin.Context) {
	id := middleware.CurrentIdentity(c)
	d, err := h.service.Status(c.Request.Context(), id.UserID)
	if err != nil {
		response.ServiceError(c, err)
		return
	}
	h.write(c, http.StatusOK, id.UserID, d)
}
