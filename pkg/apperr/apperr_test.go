package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfUnwraps(t *testing.T) {
	err := fmt.Errorf("orders: load: %w", New(NotFound, "Order not found"))

	assert.Equal(t, NotFound, KindOf(err))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrForbidden))
	assert.Equal(t, Internal, KindOf(errors.New("driver: connection reset")))
}

func TestStatusMapping(t *testing.T) {
	cases := map[Kind]int{
		BadRequest:   http.StatusBadRequest,
		Unauthorized: http.StatusUnauthorized,
		Forbidden:    http.StatusForbidden,
		NotFound:     http.StatusNotFound,
		Conflict:     http.StatusConflict,
		Internal:     http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, kind.Status(), kind.String())
	}
}

func TestValidationCarriesDetails(t *testing.T) {
	err := Validation([]string{"a", "b"})
	assert.Equal(t, BadRequest, err.Kind)
	assert.Equal(t, "Validation failed", err.Error())
	assert.Len(t, err.Details, 2)
}
