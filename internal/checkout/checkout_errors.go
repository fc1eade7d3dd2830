package checkout

import (
	"net/http"

	"go-storefront/internal/pkg/apperror"
)

var (
	ErrCartEmpty = apperror.New(
		apperror.CodeValidationRejected,
		"Your cart is empty",
		http.StatusUnprocessableEntity,
	)

	ErrMixedVendors = apperror.New(
		apperror.CodeValidationRejected,
		"Cart holds items from more than one vendor",
		http.StatusUnprocessableEntity,
	)
)
