package llmclient

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// Symbolic statuses reported by the Gemini API, plus the one synthesized for transport failures.
const (
	StatusResourceExhausted = "RESOURCE_EXHAUSTED"
	StatusUnavailable       = "UNAVAILABLE"
	StatusNetworkError      = "NETWORK_ERROR"
)

// CallError is the error variant of a remote call. DoRaw returns either a
// *Response or a *CallError, never both.
type CallError struct {
	// Code is the provider's numeric error code, falling back to the HTTP status.
	// Zero for transport failures.
	Code int
	// Status is the symbolic status, upper-cased (e.g. "UNAVAILABLE").
	Status string
	// Message is the provider's human-readable message.
	Message string
	// Err is the underlying transport error, if any.
	Err error
}

// Error implements the error interface
func (e *CallError) Error() string {
	switch {
	case e.Status != "" && e.Code != 0:
		return fmt.Sprintf("remote call failed (%d %s): %s", e.Code, e.Status, e.Message)
	case e.Status != "":
		return fmt.Sprintf("remote call failed (%s): %s", e.Status, e.Message)
	default:
		return fmt.Sprintf("remote call failed (%d): %s", e.Code, e.Message)
	}
}

// Unwrap implements the error unwrapping interface
func (e *CallError) Unwrap() error {
	return e.Err
}

// IsUnavailable reports whether the provider declared itself temporarily unavailable.
func (e *CallError) IsUnavailable() bool {
	return e.Status == StatusUnavailable || e.Code == http.StatusServiceUnavailable
}

// newNetworkError wraps a transport-level failure (DNS, connection refused, reset...).
func newNetworkError(err error) *CallError {
	return &CallError{
		Status:  StatusNetworkError,
		Message: err.Error(),
		Err:     err,
	}
}

// parseCallError reads the {"error": {"code", "status", "message"}} envelope the Gemini
// API returns on failure. Missing fields fall back to the HTTP status code.
func parseCallError(statusCode int, body []byte) *CallError {
	callErr := &CallError{
		Code:    statusCode,
		Message: "Request failed",
	}
	if !gjson.ValidBytes(body) {
		return callErr
	}

	errObj := gjson.GetBytes(body, "error")
	if !errObj.Exists() {
		return callErr
	}
	if code := errObj.Get("code"); code.Type == gjson.Number && code.Int() != 0 {
		callErr.Code = int(code.Int())
	}
	callErr.Status = strings.ToUpper(errObj.Get("status").String())
	if msg := errObj.Get("message").String(); msg != "" {
		callErr.Message = msg
	}
	return callErr
}
