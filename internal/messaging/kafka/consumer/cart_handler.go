package consumer

import (
	"context"
	"encoding/json"
	"errors"

	"go-storefront/internal/cart"
	"go-storefront/internal/coupon"

	"go.uber.org/zap"
)

var ErrMissingUserID = errors.New("event payload has no user_id")

type OrderPayload struct {
	UserID  string `json:"user_id"`
	OrderID string `json:"order_id,omitempty"`
}

// ResetCart drops the cached cart snapshot and the applied coupon of the
// user named in the payload. It is safe to run twice for one order.
func ResetCart(cartService cart.Service, coupons coupon.Service, logger *zap.Logger) HandlerFunc {
	return func(ctx context.Context, payload []byte) error {
		var data OrderPayload
		if err := json.Unmarshal(payload, &data); err != nil {
			return err
		}
		if data.UserID == "" {
			return ErrMissingUserID
		}

		if err := cartService.Invalidate(ctx, data.UserID); err != nil {
			return err
		}
		if _, err := coupons.Clear(ctx, data.UserID); err != nil {
			return err
		}

		logger.Info("cart reset after order",
			zap.String("user_id", data.UserID),
			zap.String("order_id", data.OrderID),
		)
		return nil
	}
}
