package coupon

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
	l := zap.L().Named("coupon.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("coupon.handler")
	}
	return &Handler{service: svc, logger: l}
}

// GET /coupons
func (h *Handler) Available(c *gin.Context) {
	id := middleware.CurrentIdentity(c)
	res, err := h.service.Available(c.Request.Context(), id)
	if err != nil {
		h.logger.Debug("list coupons failed", zap.String("user_id", id.UserID), zap.Error(err))
		response.ServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ToAvailableResponse(res), nil)
}

// GET /coupons/apply
func (h *Handler) Selection(c *gin.Context) {
	id := middleware.CurrentIdentity(c)
	sel, err := h.service.Selection(c.Request.Context(), id.UserID)
	if err != nil {
		response.ServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ToSelectionResponse(sel), nil)
}

// POST /coupons/apply
// A coupon whose minimum purchase is not met answers 422 with the
// unchanged selection in details.
func (h *Handler) Apply(c *gin.Context) {
	id := middleware.CurrentIdentity(c)

	var req ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "BAD_REQUEST", "Invalid input", err.Error())
		return
	}

	sel, err := h.service.Apply(c.Request.Context(), id, req)
	if err != nil {
		if IsRejected(err) {
			response.Error(c, ErrMinPurchaseNotMet.HTTPStatus, ErrMinPurchaseNotMet.Code, sel.Error, ToSelectionResponse(sel))
			return
		}
		response.ServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ToSelectionResponse(sel), nil)
}

// DELETE /coupons/apply
func (h *Handler) Clear(c *gin.Context) {
	id := middleware.CurrentIdentity(c)
	sel, err := h.service.Clear(c.Request.Context(), id.UserID)
	if err != nil {
		response.ServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ToSelectionResponse(sel), nil)
}
