package scan

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnumeratorOrderAndTotal(t *testing.T) {
	cfg := Config{
		Targets: []net.IP{
			net.ParseIP("10.0.0.1").To4(),
			net.ParseIP("10.0.0.2").To4(),
		},
		Ports: []int{22, 80, 443},
	}
	e := newEnumerator(cfg)
	assert.EqualValues(t, 6, e.Total())

	var got []WorkUnit
	for {
		unit, ok := e.Next()
		if !ok {
			break
		}
		got = append(got, unit)
	}
	require.Len(t, got, 6)

	// Target-major, port-minor.
	assert.Equal(t, "10.0.0.1", got[0].Addr.String())
	assert.Equal(t, 22, got[0].Port)
	assert.Equal(t, "10.0.0.1", got[2].Addr.String())
	assert.Equal(t, 443, got[2].Port)
	assert.Equal(t, "10.0.0.2", got[3].Addr.String())
	assert.Equal(t, 22, got[3].Port)

	// Exhausted enumerators stay exhausted.
	_, ok := e.Next()
	assert.False(t, ok)
}

func TestEnumeratorEmpty(t *testing.T) {
	e := newEnumerator(Config{})
	assert.Zero(t, e.Total())
	_, ok := e.Next()
	assert.False(t, ok)
}

func TestConfigNormalization(t *testing.T) {
	cfg := Config{
		Targets: []net.IP{
			net.ParseIP("10.0.0.1").To4(),
			net.ParseIP("10.0.0.1").To4(),
		},
		Ports:        []int{80, 22, 80, 53},
		ExcludePorts: []int{53},
	}
	n := cfg.normalized()

	assert.Len(t, n.Targets, 1)
	assert.Equal(t, []int{80, 22}, n.Ports)
	assert.Equal(t, DefaultConcurrency, n.Concurrency)
	assert.Equal(t, DefaultTimeout, n.Timeout)
}

func TestConfigConcurrencyClamp(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{"zero defaults", 0, DefaultConcurrency},
		{"negative defaults", -5, DefaultConcurrency},
		{"within range", 64, 64},
		{"above ceiling", 9000, MaxConcurrency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{
				Targets:     []net.IP{net.ParseIP("10.0.0.1").To4()},
				Ports:       []int{80},
				Concurrency: tt.in,
			}
			assert.Equal(t, tt.want, cfg.normalized().Concurrency)
		})
	}
}

func TestConfigQuickTimeout(t *testing.T) {
	cfg := Config{
		Targets: []net.IP{net.ParseIP("10.0.0.1").To4()},
		Ports:   []int{80},
		Quick:   true,
	}
	assert.Equal(t, QuickTimeout, cfg.normalized().Timeout)

	// An explicit timeout below the quick ceiling is preserved.
	cfg.Timeout = 100 * time.Millisecond
	assert.Equal(t, 100*time.Millisecond, cfg.normalized().Timeout)
}
