package scan

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// attempt performs one timeout-bounded TCP connect to the work unit and
// classifies the outcome. On Open the established connection is
// returned for probing; the caller owns closing it. No attempt is ever
// retried.
func attempt(unit WorkUnit, timeout time.Duration) (Outcome, net.Conn) {
	address := net.JoinHostPort(unit.Addr.String(), strconv.Itoa(unit.Port))

	start := time.Now()
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err == nil {
		return Outcome{Kind: outcomeOpen, Latency: time.Since(start)}, conn
	}

	var netErr net.Error
	switch {
	case errors.As(err, &netErr) && netErr.Timeout():
		return Outcome{Kind: outcomeTimedOut, Reason: err}, nil
	case isConnectionRefused(err):
		return Outcome{Kind: outcomeClosed, Reason: err}, nil
	default:
		// Unreachable network, no route, and similar failures. Not
		// open for counting purposes; the reason stays available for
		// diagnostics.
		return Outcome{Kind: outcomeError, Reason: err}, nil
	}
}

// isConnectionRefused checks if the error is a connection refused
// error. A refused connection (RST) means the port is definitively
// closed.
func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	// Windows reports refusal with different wording.
	errStr := err.Error()
	return strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "actively refused")
}
