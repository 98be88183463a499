package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/aluiziolira/go-scrape-companies/parser"
)

// HTTPStatusError is a non-2xx response. It is the only retryable failure.
type HTTPStatusError struct {
	Status     int
	StatusText string
	URL        string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("Error %d: %s", e.Status, e.StatusText)
}

// ErrTimeout indicates a timeout while issuing a request.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrConnection indicates a network connectivity failure.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string {
	return fmt.Errorf("connection: %w", e.Err).Error()
}

func (e ErrConnection) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err may be retried.
func IsTransient(err error) bool {
	var statusErr *HTTPStatusError
	return errors.As(err, &statusErr)
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return "http_status"
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var conn ErrConnection
	if errors.As(err, &conn) {
		return "connection"
	}
	var extraction *parser.ExtractionError
	if errors.As(err, &extraction) {
		return "extraction"
	}
	return "other"
}

func classifyError(err error, statusCode int, url string) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode != 0 && (statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices) {
		return &HTTPStatusError{Status: statusCode, StatusText: http.StatusText(statusCode), URL: url}
	}

	return err
}
