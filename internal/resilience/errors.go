package resilience

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"syscall"
)

// ErrCircuitOpen is returned when a service's circuit breaker is open.
// Callers must treat it as a fast-fail, distinct from a not-found or a
// normal upstream error.
var ErrCircuitOpen = errors.New("circuit breaker open")

// HTTPError carries an upstream status code through the retry classifier.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "upstream returned " + httpStatusText(e.StatusCode)
}

func httpStatusText(code int) string {
	switch code {
	case 429:
		return "429 Too Many Requests"
	case 502:
		return "502 Bad Gateway"
	case 503:
		return "503 Service Unavailable"
	case 504:
		return "504 Gateway Timeout"
	default:
		return "status " + strconv.Itoa(code)
	}
}

// retryableStatuses is the classified set of transient HTTP statuses.
var retryableStatuses = map[int]bool{
	429: true,
	502: true,
	503: true,
	504: true,
}

// IsRetryable classifies an error as transient. Timeouts, connection
// resets, and rate-limit/gateway statuses retry; everything else
// (malformed input, definitive not-found) fails immediately.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrCircuitOpen) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return retryableStatuses[httpErr.StatusCode]
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	// net/http wraps dial and read errors in ways errors.As does not
	// always unwrap.
	msg := err.Error()
	for _, s := range []string{"connection reset", "connection refused", "timeout", "temporary failure"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
