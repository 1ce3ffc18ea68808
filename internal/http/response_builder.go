// Package http provides the JSON API server and its handlers.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
	applog "finanzas/internal/log"
	"finanzas/internal/middleware/identity"
)

func init() {
	// Amounts and percentages go out as JSON numbers; requests may use either form.
	decimal.MarshalJSONWithoutQuotes = true
}

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body. A nil body writes no
// content.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

// ErrorBody is the error envelope: {"error": {...}}.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Type     string            `json:"type"`
	Message  string            `json:"message"`
	Fields   []core.FieldError `json:"fields,omitempty"`
	Status   int               `json:"status,omitempty"`
	Category string            `json:"category,omitempty"`
}

// badRequestError marks input the server could not parse at all, as opposed
// to well-formed input that failed validation.
type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string { return e.err.Error() }
func (e *badRequestError) Unwrap() error { return e.err }

func badRequest(err error) error {
	return &badRequestError{err: err}
}

// ErrorResponse maps err to its status code and envelope. fallback is the
// message used for unexpected errors so internals never leak.
func ErrorResponse(err error, fallback string) *JSONResponseBuilder {
	var (
		bad      *badRequestError
		invalid  *core.ValidationError
		upstream *core.UpstreamError
	)
	detail := ErrorDetail{Type: applog.ErrorTypeInternal, Message: fallback}
	status := http.StatusInternalServerError

	switch {
	case errors.As(err, &bad):
		status = http.StatusBadRequest
		detail = ErrorDetail{Type: "bad_request", Message: err.Error()}
		if errors.As(err, &invalid) {
			detail.Fields = invalid.Fields
		}
	case errors.As(err, &invalid):
		status = http.StatusUnprocessableEntity
		detail = ErrorDetail{Type: applog.ErrorTypeValidation, Message: "validation failed", Fields: invalid.Fields}
	case core.IsNotFound(err):
		status = http.StatusNotFound
		detail = ErrorDetail{Type: applog.ErrorTypeNotFound, Message: err.Error()}
	case errors.As(err, &upstream):
		status = http.StatusBadGateway
		detail = ErrorDetail{
			Type:     applog.ErrorTypeUpstream,
			Message:  upstream.Message,
			Status:   upstream.Status,
			Category: upstream.Category,
		}
	case core.IsConfig(err):
		detail = ErrorDetail{Type: applog.ErrorTypeConfiguration, Message: err.Error()}
	}
	return NewJSONResponse().Status(status).Body(ErrorBody{Error: detail})
}

// writeError logs server-side failures and writes the envelope.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error, fallback string) {
	resp := ErrorResponse(err, fallback)
	if resp.statusCode >= 500 {
		fields := applog.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery)
		if id, ok := identity.FromContext(r.Context()); ok {
			fields = fields.WithIdentity(id.UserID, id.BadgeID)
		}
		applog.LogError(r.Context(), "Request failed", err, applog.ComponentHTTP, op,
			resp.body.(ErrorBody).Error.Type, fields)
	}
	resp.Write(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	NewJSONResponse().Status(status).Body(v).Write(w)
}
