// Package bind decodes and validates an HTTP request body into a struct.
package bind

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/shashiranjanraj/ordersvc/config"
	"github.com/shashiranjanraj/ordersvc/pkg/apperr"
	"github.com/shashiranjanraj/ordersvc/pkg/validate"
)

// maxBodyBytes returns the configured request body size limit (default 1 MB).
func maxBodyBytes() int64 {
	n, err := strconv.ParseInt(config.Get("MAX_BODY_BYTES", "1048576"), 10, 64)
	if err != nil || n <= 0 {
		return 1 << 20
	}
	return n
}

// Normalizer is implemented by request types that trim or lowercase their
// fields before validation.
type Normalizer interface {
	Normalize()
}

// JSON decodes r.Body into dest and validates it. Every failure comes back
// as an *apperr.Error of kind BadRequest: malformed or oversized bodies with
// a single message, rule violations as "Validation failed" with one detail
// per offending field.
func JSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes())

	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return apperr.New(apperr.BadRequest, fmt.Sprintf("Request body too large (max %d bytes)", maxErr.Limit))
		case errors.Is(err, io.EOF):
			return apperr.New(apperr.BadRequest, "Request body is required")
		default:
			return apperr.New(apperr.BadRequest, "Invalid JSON body", err.Error())
		}
	}

	if n, ok := dest.(Normalizer); ok {
		n.Normalize()
	}

	if errs := validate.Struct(dest); validate.HasErrors(errs) {
		return apperr.Validation(errs.Messages())
	}
	return nil
}
