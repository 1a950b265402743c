package scan

import (
	"errors"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttemptOpen(t *testing.T) {
	port := listen(t, func(conn net.Conn) {
		time.Sleep(100 * time.Millisecond)
	})

	unit := WorkUnit{Addr: net.ParseIP("127.0.0.1").To4(), Port: port}
	outcome, conn := attempt(unit, testTimeout)
	require.NotNil(t, conn)
	defer conn.Close()

	assert.Equal(t, outcomeOpen, outcome.Kind)
	assert.Greater(t, outcome.Latency, time.Duration(0))
	assert.NoError(t, outcome.Reason)
}

func TestAttemptClosed(t *testing.T) {
	port := unusedPort(t)

	unit := WorkUnit{Addr: net.ParseIP("127.0.0.1").To4(), Port: port}
	outcome, conn := attempt(unit, testTimeout)

	assert.Nil(t, conn)
	assert.Equal(t, outcomeClosed, outcome.Kind)
	assert.Error(t, outcome.Reason)
}

func TestAttemptTimeoutBounded(t *testing.T) {
	// TEST-NET-3: packets go nowhere, the deadline must fire.
	unit := WorkUnit{Addr: net.ParseIP("203.0.113.1").To4(), Port: 81}

	start := time.Now()
	outcome, conn := attempt(unit, 200*time.Millisecond)
	elapsed := time.Since(start)

	assert.Nil(t, conn)
	assert.NotEqual(t, outcomeOpen, outcome.Kind)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestIsConnectionRefused(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"econnrefused", syscall.ECONNREFUSED, true},
		{"wrapped econnrefused", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, true},
		{"message match", errors.New("dial tcp: connection refused"), true},
		{"windows message", errors.New("No connection could be made because the target machine actively refused it"), true},
		{"other", errors.New("network is unreachable"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isConnectionRefused(tt.err))
		})
	}
}
