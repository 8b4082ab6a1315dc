package classroom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx answer from the Classroom API.
type APIError struct {
	Operation  string
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d %s: %s", e.Operation, e.StatusCode, e.Status, e.Message)
}

// NotFound reports whether the resource does not exist or is not visible.
func (e *APIError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

type googleErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func newAPIError(op string, status int, raw []byte) *APIError {
	apiErr := &APIError{Operation: op, StatusCode: status, Status: http.StatusText(status)}
	var body googleErrorBody
	if err := json.Unmarshal(raw, &body); err == nil && body.Error.Message != "" {
		apiErr.Message = body.Error.Message
		if body.Error.Status != "" {
			apiErr.Status = body.Error.Status
		}
	}
	return apiErr
}

// IsStatus reports whether err is an APIError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// idempotent reports whether a failed request may be replayed. A POST can have
// been committed upstream before the error reached us.
func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodDelete:
		return true
	}
	return false
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	// transport failures and truncated bodies
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
