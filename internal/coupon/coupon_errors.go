package coupon

import (
	"net/http"

	"go-storefront/internal/pkg/apperror"
)

var (
	ErrMinPurchaseNotMet = apperror.New(
		apperror.CodeValidationRejected,
		"Cart subtotal does not meet the coupon minimum purchase",
		http.StatusUnprocessableEntity,
	)

	ErrCouponNotAvailable = apperror.New(
		apperror.CodeNotFound,
		"Coupon is not available",
		http.StatusNotFound,
	)

	ErrCouponRequired = apperror.New(
		apperror.CodeInvalidInput,
		"couponId or code is required",
		http.StatusBadRequest,
	)
)
