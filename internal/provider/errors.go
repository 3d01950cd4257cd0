package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Operation names carried by ExchangeError
const (
	OpExchange = "exchange"
	OpRefresh  = "refresh"
)

// ErrMalformedResponse indicates a 2xx token response missing required fields
var ErrMalformedResponse = errors.New("malformed token response from provider")

// ExchangeError is a definitive non-2xx answer from the token endpoint
type ExchangeError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("token %s failed: HTTP %d: %s", e.Op, e.StatusCode, e.Body)
}

// Terminal reports whether the failure means the refresh token itself is
// invalid or revoked, so the installation requires re-authorization.
// Transient failures (5xx, timeouts) are never terminal.
func (e *ExchangeError) Terminal() bool {
	if e.Op != OpRefresh {
		return false
	}
	switch e.StatusCode {
	case 400, 401, 403:
		return true
	}
	return false
}

// IsTerminal reports whether err is a refresh rejection that requires a
// fresh authorization-code exchange
func IsTerminal(err error) bool {
	var ee *ExchangeError
	return errors.As(err, &ee) && ee.Terminal()
}

// IsTimeout reports whether err was a timed-out provider call. Timeouts
// are always transient, never grounds for flagging an installation.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
