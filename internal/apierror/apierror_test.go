package apierror

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIErrorError(t *testing.T) {
	err := NewAPIError(ErrNotFound, "Work item not found", nil)
	assert.Equal(t, "NOT_FOUND: Work item not found", err.Error())
}

func TestIsConflict(t *testing.T) {
	assert.True(t, IsConflict(NewAPIError(ErrConflict, "duplicate", nil)))
	assert.False(t, IsConflict(NewAPIError(ErrNotFound, "missing", nil)))
	assert.False(t, IsConflict(errors.New("plain error")))
}

func TestMapErrorToHTTPStatus(t *testing.T) {
	cases := map[ErrorCode]int{
		ErrNotFound:          http.StatusNotFound,
		ErrConflict:          http.StatusConflict,
		ErrBadRequest:        http.StatusBadRequest,
		ErrInvalidInput:      http.StatusBadRequest,
		ErrInvalidTransition: http.StatusUnprocessableEntity,
		ErrInternalServer:    http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, MapErrorToHTTPStatus(NewAPIError(code, "msg", nil)))
	}
	assert.Equal(t, http.StatusInternalServerError, MapErrorToHTTPStatus(errors.New("plain")))
}
