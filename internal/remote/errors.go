package remote

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized is matched by APIError values with status 401.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUnavailable wraps transport-level failures.
	ErrUnavailable = errors.New("service unavailable")
)

// APIError is a non-2xx reply from the service.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("remote returned %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("remote returned %d: %s", e.Status, e.Detail)
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 replies.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// Detail extracts the user-facing detail of an API error, or fallback.
func Detail(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}
