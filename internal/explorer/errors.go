package explorer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/stablewatch/cngn-indexer/pkg/retry"
)

var (
	ErrRateLimited = errors.New("upstream rate limited")
	ErrServerError = errors.New("upstream server error")
)

// APIError is a non-2xx response from the explorer.
type APIError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.StatusCode >= 500:
		return ErrServerError
	default:
		return nil
	}
}

// FailureKindOf maps an upstream error onto the retry taxonomy. Timeouts ride
// the server-error policy; anything unclassified is terminal for the item.
func FailureKindOf(err error) retry.FailureKind {
	switch {
	case errors.Is(err, ErrRateLimited):
		return retry.KindRateLimited
	case errors.Is(err, ErrServerError):
		return retry.KindServerError
	case errors.Is(err, context.DeadlineExceeded):
		return retry.KindServerError
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return retry.KindServerError
	}
	return retry.KindTerminal
}
