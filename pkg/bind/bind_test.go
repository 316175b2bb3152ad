package bind

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/ordersvc/pkg/apperr"
)

type loginInput struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func post(body string) (*httptest.ResponseRecorder, *http.Request) {
	return httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func TestJSONValid(t *testing.T) {
	w, r := post(`{"email":"a@b.io","password":"secret1"}`)
	var in loginInput
	require.NoError(t, JSON(w, r, &in))
	assert.Equal(t, "a@b.io", in.Email)
}

func TestJSONIgnoresUnknownFields(t *testing.T) {
	w, r := post(`{"email":"a@b.io","password":"secret1","totalAmount":0.01}`)
	var in loginInput
	require.NoError(t, JSON(w, r, &in))
	assert.Equal(t, "secret1", in.Password)
}

func TestJSONValidationDetails(t *testing.T) {
	w, r := post(`{"email":"nope","password":"123"}`)
	var in loginInput
	err := JSON(w, r, &in)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.BadRequest, appErr.Kind)
	assert.Equal(t, []string{
		"email must be a valid email address",
		"password must be at least 6 characters",
	}, appErr.Details)
}

func TestJSONMalformedAndEmpty(t *testing.T) {
	var in loginInput

	w, r := post(`{"email":`)
	assert.Equal(t, apperr.BadRequest, apperr.KindOf(JSON(w, r, &in)))

	w, r = post(``)
	err := JSON(w, r, &in)
	assert.Equal(t, "Request body is required", err.Error())
}

func TestJSONTooLarge(t *testing.T) {
	t.Setenv("MAX_BODY_BYTES", "16")
	w, r := post(`{"email":"someone@example.com","password":"secret1"}`)
	var in loginInput
	err := JSON(w, r, &in)
	assert.Contains(t, err.Error(), "too large")
}
