package apperror_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"go-storefront/internal/pkg/apperror"

	"github.com/stretchr/testify/assert"
)

func TestToHTTP(t *testing.T) {
	t.Run("nil_error", func(t *testing.T) {
		res := apperror.ToHTTP(nil)
		assert.Equal(t, http.StatusOK, res.Status)
	})

	t.Run("app_error_in_chain", func(t *testing.T) {
		base := apperror.New(apperror.CodeServerRejected, "out of stock", http.StatusConflict)
		err := fmt.Errorf("add item: %w", base)

		res := apperror.ToHTTP(err)
		assert.Equal(t, http.StatusConflict, res.Status)
		assert.Equal(t, apperror.CodeServerRejected, res.Code)
		assert.Equal(t, "out of stock", res.Message)
	})

	t.Run("plain_error_is_internal", func(t *testing.T) {
		res := apperror.ToHTTP(errors.New("boom"))
		assert.Equal(t, http.StatusInternalServerError, res.Status)
		assert.Equal(t, apperror.CodeInternalError, res.Code)
	})
}

func TestAppError_Is(t *testing.T) {
	sentinel := apperror.New(apperror.CodeOperationPending, "operation already in progress", http.StatusConflict)
	wrapped := apperror.Wrap(errors.New("inner"), sentinel.Code, sentinel.Message, sentinel.HTTPStatus)

	assert.ErrorIs(t, wrapped, sentinel)
	assert.True(t, apperror.HasCode(wrapped, apperror.CodeOperationPending))
	assert.False(t, apperror.HasCode(errors.New("x"), apperror.CodeOperationPending))
}
