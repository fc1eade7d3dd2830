package cart

import (
	"net/http"

	"go-storefront/internal/middleware"
	"go-storefront/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(svc Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("cart.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("cart.handler")
	}
	return &Handler{service: svc, logger: l}
}

func (h *Handler) writeSnapshot(c *gin.Context, userID string, snap Snapshot) {
	response.Success(c, http.StatusOK, ToResponse(snap, h.service.Pending(userID)), nil)
}

func (h *Handler) writeError(c *gin.Context, action string, err error) {
	h.logger.Debug("cart request failed",
		zap.String("action", action),
		zap.String("user_id", c.GetString(middleware.ContextUserID)),
		zap.Error(err),
	)
	response.ServiceError(c, err)
}

// GET /cart
func (h *Handler) Detail(c *gin.Context) {
	id := middleware.CurrentIdentity(c)
	snap, err := h.service.Detail(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "detail", err)
		return
	}
	h.writeSnapshot(c, id.UserID, snap)
}

// POST /cart/refresh
func (h *Handler) Refresh(c *gin.Context) {
	id := middleware.CurrentIdentity(c)
	snap, err := h.service.Refresh(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "refresh", err)
		return
	}
	h.writeSnapshot(c, id.UserID, snap)
}

// PATCH /cart/items/:itemId
func (h *Handler) UpdateQty(c *gin.Context) {
	id := middleware.CurrentIdentity(c)

	var req UpdateQtyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "BAD_REQUEST", "Invalid input", err.Error())
		return
	}

	snap, err := h.service.UpdateQty(c.Request.Context(), id, c.Param("itemId"), req)
	if err != nil {
		h.writeError(c, "update", err)
		return
	}
	h.writeSnapshot(c, id.UserID, snap)
}

// POST /cart/items/:itemId/increment
func (h *Handler) Increment(c *gin.Context) {
	id := middleware.CurrentIdentity(c)
	snap, err := h.service.Increment(c.Request.Context(), id, c.Param("itemId"))
	if err != nil {
		h.writeError(c, "increment", err)
		return
	}
	h.writeSnapshot(c, id.UserID, snap)
}

// POST /cart/items/:itemId/decrement
func (h *Handler) Decrement(c *gin.Context) {
	id := middleware.CurrentIdentity(c)
	snap, err := h.service.Decrement(c.Request.Context(), id, c.Param("itemId"))
	if err != nil {
		h.writeError(c, "decrement", err)
		return
	}
	h.writeSnapshot(c, id.UserID, snap)
}

// DELETE /cart/items/:itemId
func (h *Handler) RemoveItem(c *gin.Context) {
	id := middleware.CurrentIdentity(c)
	snap, err := h.service.RemoveItem(c.Request.Context(), id, c.Param("itemId"))
	if err != nil {
		h.writeError(c, "remove", err)
		return
	}
	h.writeSnapshot(c, id.UserID, snap)
}

// DELETE /cart
func (h *Handler) Clear(c *gin.Context) {
	id := middleware.CurrentIdentity(c)
	snap, err := h.service.Clear(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "clear", err)
		return
	}
	h.writeSnapshot(c, id.UserID, snap)
}
