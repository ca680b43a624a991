// Package apierr translates service errors into echo HTTP errors with a
// uniform JSON body.
package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/intake/intake/internal/platform/db"
)

// ValidationError rejects a request before any computation or store access.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Invalid builds a ValidationError for field.
func Invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Body is the JSON error payload.
type Body struct {
	Error      string `json:"error"`
	Field      string `json:"field,omitempty"`
	Diagnostic string `json:"diagnostic,omitempty"`
}

// HTTP maps err to an HTTP error: validation failures are 400, missing
// records 404, unavailable stores 503 and other store failures 500.
func HTTP(err error) *echo.HTTPError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return echo.NewHTTPError(http.StatusBadRequest, Body{Error: ve.Message, Field: ve.Field})
	}

	var f *db.IOFailure
	if errors.As(err, &f) {
		body := Body{Error: "store failure", Diagnostic: f.Diagnostic()}
		switch {
		case f.Kind == db.KindNotFound:
			return echo.NewHTTPError(http.StatusNotFound, Body{Error: "not found"})
		case f.Temporary():
			return echo.NewHTTPError(http.StatusServiceUnavailable, body)
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, body)
		}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	return echo.NewHTTPError(http.StatusInternalServerError, Body{Error: err.Error()})
}
