package utils

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCodeMapping(t *testing.T) {
	cases := []struct {
		err    *AppError
		status int
	}{
		{NewValidationError("bad input", nil), http.StatusBadRequest},
		{NewConflictError("wrong state"), http.StatusBadRequest},
		{NewNotFoundError("ambulance"), http.StatusNotFound},
		{NewForbiddenError("not the owner"), http.StatusForbidden},
		{NewDependencyError("geocoder down", errors.New("timeout")), http.StatusServiceUnavailable},
		{NewPersistenceError("save request", errors.New("connection reset")), http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.status, tc.err.StatusCode(), tc.err.Message)
	}
}

func TestAsAppError(t *testing.T) {
	appErr := NewNotFoundError("emergency request")
	assert.Equal(t, appErr, AsAppError(appErr))

	wrapped := AsAppError(errors.New("raw failure"))
	assert.Equal(t, ErrKindUnavailable, wrapped.Kind)
}

func TestUnwrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewPersistenceError("save request", cause)
	assert.True(t, errors.Is(err, cause))
}

func TestPaginationCursorFilter(t *testing.T) {
	params := &PaginationParams{Page: 3, PageSize: 10, Sort: "created_at", Order: "desc"}
	assert.Nil(t, params.GetCursorFilter())
	assert.Equal(t, 20, params.GetSkip())

	params.After = "not-a-hex-id"
	assert.Nil(t, params.GetCursorFilter())

	params.After = "65f1a2b3c4d5e6f7a8b9c0d1"
	assert.NotNil(t, params.GetCursorFilter())
	assert.Equal(t, 0, params.GetSkip())
}
