package marketplace

import (
	"net/http"

	"go-storefront/internal/pkg/apperror"
)

var (
	ErrUnavailable = apperror.New(
		apperror.CodeUpstreamUnavailable,
		"Marketplace is unavailable, please try again",
		http.StatusBadGateway,
	)
	ErrUnauthorized = apperror.New(
		apperror.CodeUnauthorized,
		"Session expired, please sign in again",
		http.StatusUnauthorized,
	)
)

const defaultRejectMessage = "Request was rejected by the marketplace"
