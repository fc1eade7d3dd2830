package vendorguard

import (
	"net/http"

	"go-storefront/internal/pkg/apperror"
)

var ErrNoPendingProduct = apperror.New(
	"NO_PENDING_PRODUCT",
	"There is no product waiting for confirmation",
	http.StatusConflict,
)
