// Package scan implements the lansweep scan engine: bounded-fan-out TCP
// connect scanning with per-attempt deadlines, protocol identification
// probes, shared progress tracking, and cooperative cancellation.
package scan

import (
	"net"
	"time"

	"github.com/ostrand/lansweep/internal/errors"
)

// Engine limits and defaults.
const (
	DefaultConcurrency = 1000
	MaxConcurrency     = 5000
	DefaultTimeout     = 400 * time.Millisecond
	QuickTimeout       = 250 * time.Millisecond
)

// State represents the lifecycle state of the scan engine.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateDone
)

// String returns the wire representation of the state.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	default:
		return "idle"
	}
}

// Config holds the immutable configuration for one scan.
type Config struct {
	// Targets is the list of IPv4 addresses to scan.
	Targets []net.IP

	// Ports is the list of TCP ports to attempt on every target.
	Ports []int

	// ExcludePorts removes ports from the scan without touching Ports.
	ExcludePorts []int

	// Concurrency bounds the number of simultaneously in-flight
	// connection attempts. Zero selects the default; values are
	// clamped to [1, MaxConcurrency].
	Concurrency int

	// Timeout bounds each connection attempt. Zero selects the default.
	Timeout time.Duration

	// Quick clamps the timeout to QuickTimeout. Callers supply the
	// narrowed quick port list themselves via Ports.
	Quick bool

	// ProbeRedis enables the Redis PING identification probe on 6379.
	ProbeRedis bool
}

// normalized returns a copy with defaults applied, limits clamped, and
// excluded ports removed. The returned port list is deduplicated.
func (c Config) normalized() Config {
	out := c

	if out.Concurrency <= 0 {
		out.Concurrency = DefaultConcurrency
	}
	if out.Concurrency > MaxConcurrency {
		out.Concurrency = MaxConcurrency
	}

	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}
	if out.Quick && out.Timeout > QuickTimeout {
		out.Timeout = QuickTimeout
	}

	drop := make(map[int]bool, len(out.ExcludePorts))
	for _, p := range out.ExcludePorts {
		drop[p] = true
	}
	seen := make(map[int]bool, len(out.Ports))
	keep := make([]int, 0, len(out.Ports))
	for _, p := range out.Ports {
		if drop[p] || seen[p] {
			continue
		}
		seen[p] = true
		keep = append(keep, p)
	}
	out.Ports = keep

	seenIP := make(map[string]bool, len(out.Targets))
	targets := make([]net.IP, 0, len(out.Targets))
	for _, ip := range out.Targets {
		key := ip.String()
		if seenIP[key] {
			continue
		}
		seenIP[key] = true
		targets = append(targets, ip)
	}
	out.Targets = targets

	return out
}

// validate checks a normalized configuration before any dispatch.
func (c Config) validate() error {
	if len(c.Targets) == 0 {
		return errors.ErrEmptyWorkSet()
	}
	if len(c.Ports) == 0 {
		return errors.ErrEmptyWorkSet()
	}
	if c.Concurrency <= 0 {
		return errors.ErrConfigInvalid("concurrency", c.Concurrency)
	}
	if c.Timeout <= 0 {
		return errors.ErrConfigInvalid("timeout", c.Timeout)
	}
	return nil
}

// WorkUnit is one (address, port) pair to be attempted exactly once.
type WorkUnit struct {
	Addr net.IP
	Port int
}

// outcomeKind classifies the result of one connection attempt.
type outcomeKind int

const (
	outcomeOpen outcomeKind = iota
	outcomeClosed
	outcomeTimedOut
	outcomeError
)

// Outcome is the tagged result of one connection attempt.
type Outcome struct {
	Kind    outcomeKind
	Latency time.Duration
	Reason  error
}

// Entry is one open-port record. Immutable once created.
type Entry struct {
	Address   string `json:"address"`
	Port      int    `json:"port"`
	Service   string `json:"service"`
	LatencyMS int64  `json:"latency_ms"`
	Banner    string `json:"banner"`
	Timestamp string `json:"timestamp"`
}

// Results is the completion-ordered collection of open-port entries
// plus aggregate counters for one scan.
type Results struct {
	ScanID  string  `json:"scan_id"`
	Total   int64   `json:"total"`
	Scanned int64   `json:"scanned"`
	Open    int64   `json:"open"`
	Entries []Entry `json:"entries"`
}

// Snapshot is a point-in-time view of scan progress.
type Snapshot struct {
	State   string `json:"state"`
	Total   int64  `json:"total"`
	Scanned int64  `json:"scanned"`
	Open    int64  `json:"open"`
}
