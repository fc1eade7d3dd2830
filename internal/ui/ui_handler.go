package ui

import (
	"net/http"
	"time"

	"go-storefront/internal/middleware"
	"go-storefront/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultHeartbeat = 15 * time.Second

type Handler struct {
	service   Service
	logger    *zap.Logger
	heartbeat time.Duration
}

func NewHandler(svc Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("ui.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("ui.handler")
	}
	return &Handler{service: svc, logger: l, heartbeat: defaultHeartbeat}
}

// GET /ui/state
func (h *Handler) State(c *gin.Context) {
	id := middleware.CurrentIdentity(c)
	v, err := h.service.View(c.Request.Context(), id.UserID)
	if err != nil {
		response.ServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ToStateResponse(v), nil)
}

// PATCH /ui/cart-panel
func (h *Handler) CartPanel(c *gin.Context) {
	id := middleware.CurrentIdentity(c)

	var req CartPanelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "BAD_REQUEST", "Invalid input", err.Error())
		return
	}

	v, err := h.service.SetCartPanel(c.Request.Context(), id.UserID, *req.Open)
	if err != nil {
		response.ServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ToStateResponse(v), nil)
}

// GET /ui/events
// The first event is the full state; later events carry only what changed.
func (h *Handler) Events(c *gin.Context) {
	id := middleware.CurrentIdentity(c)
	ctx := c.Request.Context()

	events, cancel := h.service.Events(id.UserID)
	defer cancel()

	v, err := h.service.View(ctx, id.UserID)
	if err != nil {
		response.ServiceError(c, err)
		return
	}

	// the stream outlives the server write timeout
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	c.SSEvent("STATE", ToStateResponse(v))
	c.Writer.Flush()

	h.logger.Debug("ui stream opened", zap.String("user_id", id.UserID))
	defer h.logger.Debug("ui stream closed", zap.String("user_id", id.UserID))

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.SSEvent(string(ev.Type), ev)
		case <-ticker.C:
			c.SSEvent("PING", time.Now().Unix())
		}
		c.Writer.Flush()
	}
}
