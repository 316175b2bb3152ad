// Package response writes the JSON envelopes every endpoint shares:
//
//	success: {"data": ...}
//	failure: {"error": {"message": "...", "details": [...]}}
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shashiranjanraj/ordersvc/pkg/apperr"
	"github.com/shashiranjanraj/ordersvc/pkg/logger"
	"github.com/shashiranjanraj/ordersvc/pkg/orm"
)

type errorBody struct {
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// JSON writes body as-is with the given status.
func JSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}

// Success sends a 200 {"data": data}.
func Success(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, map[string]interface{}{"data": data})
}

// Created sends a 201 {"data": data}.
func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, map[string]interface{}{"data": data})
}

// Paginated sends a 200 with the page under "data" and the pagination
// fields flattened alongside it.
func Paginated(w http.ResponseWriter, data interface{}, p orm.Pagination) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"data":       data,
		"page":       p.Page,
		"limit":      p.Limit,
		"total":      p.Total,
		"totalPages": p.TotalPages,
	})
}

// Error sends {"error": {"message": message, "details": details}}.
func Error(w http.ResponseWriter, status int, message string, details ...string) {
	JSON(w, status, errorEnvelope{Error: errorBody{Message: message, Details: details}})
}

func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnauthorized, message)
}

func Forbidden(w http.ResponseWriter, message string) {
	Error(w, http.StatusForbidden, message)
}

func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, message)
}

// Fail maps err onto the error envelope. *apperr.Error values keep their
// message and details; anything else is logged with the request id and
// answered with a generic 500.
func Fail(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.Kind != apperr.Internal {
		Error(w, appErr.Kind.Status(), appErr.Message, appErr.Details...)
		return
	}

	logger.WithCtx(r.Context()).Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	Error(w, http.StatusInternalServerError, "Internal Server Error")
}
