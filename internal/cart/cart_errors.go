package cart

import (
	"errors"
	"net/http"

	"go-storefront/internal/pkg/apperror"

	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidQty = apperror.New(
		"INVALID_QTY",
		"Quantity must be at least 1",
		http.StatusUnprocessableEntity,
	)

	ErrInvalidItemID = apperror.New(
		apperror.CodeInvalidInput,
		"Invalid cart item ID",
		http.StatusBadRequest,
	)

	ErrCartItemNotFound = apperror.New(
		apperror.CodeNotFound,
		"Item not found in cart",
		http.StatusNotFound,
	)

	ErrInvalidInput = apperror.New(
		apperror.CodeInvalidInput,
		"Invalid input",
		http.StatusBadRequest,
	)

	// The write was accepted but no snapshot could be loaded to show it.
	ErrCartReloadFailed = apperror.New(
		"CART_RELOAD_FAILED",
		"Cart was updated but could not be reloaded, please refresh",
		http.StatusBadGateway,
	)

	ErrMissingSession = apperror.New(
		apperror.CodeUnauthorized,
		"User not authenticated",
		http.StatusUnauthorized,
	)
)

// MapValidationError turns validator failures into a user facing error.
func MapValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ErrInvalidInput
	}
	for _, fe := range verrs {
		switch fe.Field() {
		case "Quantity":
			return ErrInvalidQty
		case "Delta":
			return apperror.New(apperror.CodeInvalidInput, "Quantity change must not be zero", http.StatusBadRequest)
		}
	}
	return apperror.New(apperror.CodeInvalidInput, verrs[0].Field()+" is required", http.StatusBadRequest)
}
