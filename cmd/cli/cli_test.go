package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ostrand/lansweep/internal/scan"
)

func resetScanFlags() {
	scanTargets = ""
	scanPortsFile = ""
	scanPortSpec = ""
	scanExcludePorts = nil
	scanConcurrency = 0
	scanTimeoutMS = 0
	scanQuick = false
	scanProbeRedis = false
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"single", "192.168.1.1", []string{"192.168.1.1"}},
		{"multiple", "192.168.1.1,10.0.0.0/24", []string{"192.168.1.1", "10.0.0.0/24"}},
		{"spaces trimmed", " 192.168.1.1 , 10.0.0.1 ", []string{"192.168.1.1", "10.0.0.1"}},
		{"empty parts dropped", "192.168.1.1,,10.0.0.1,", []string{"192.168.1.1", "10.0.0.1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitList(tt.in))
		})
	}
}

func TestBuildCLIScanConfig(t *testing.T) {
	resetScanFlags()
	scanTargets = "192.168.1.1,192.168.1.2"
	scanPortSpec = "22,80,443"
	scanConcurrency = 128
	scanTimeoutMS = 250
	scanProbeRedis = true
	defer resetScanFlags()

	cfg, err := buildCLIScanConfig()
	require.NoError(t, err)

	assert.Len(t, cfg.Targets, 2)
	assert.Equal(t, []int{22, 80, 443}, cfg.Ports)
	assert.Equal(t, 128, cfg.Concurrency)
	assert.Equal(t, 250*time.Millisecond, cfg.Timeout)
	assert.True(t, cfg.ProbeRedis)
	assert.False(t, cfg.Quick)
}

func TestBuildCLIScanConfigCIDR(t *testing.T) {
	resetScanFlags()
	scanTargets = "10.1.2.0/30"
	scanPortSpec = "80"
	defer resetScanFlags()

	cfg, err := buildCLIScanConfig()
	require.NoError(t, err)

	// /30 expands to the two usable hosts.
	require.Len(t, cfg.Targets, 2)
	assert.Equal(t, "10.1.2.1", cfg.Targets[0].String())
	assert.Equal(t, "10.1.2.2", cfg.Targets[1].String())
}

func TestBuildCLIScanConfigRejectsBadTarget(t *testing.T) {
	resetScanFlags()
	scanTargets = "not-an-address"
	scanPortSpec = "80"
	defer resetScanFlags()

	_, err := buildCLIScanConfig()
	require.Error(t, err)
}

func TestBuildCLIScanConfigDefaultPortsEngineAccepts(t *testing.T) {
	resetScanFlags()
	scanTargets = "192.0.2.1"
	defer resetScanFlags()

	cfg, err := buildCLIScanConfig()
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Ports)
	assert.LessOrEqual(t, len(cfg.Ports), 65535)

	// The resolved configuration must pass engine validation as-is.
	engine := scan.New(nil, nil)
	_, startErr := engine.Start(cfg)
	require.NoError(t, startErr)
	engine.Cancel()
	<-engine.Done()
}

func TestVersionString(t *testing.T) {
	SetVersion("1.2.3", "abc123", "2026-08-29")
	assert.Equal(t, "1.2.3 (commit: abc123, built: 2026-08-29)", getVersion())
}
