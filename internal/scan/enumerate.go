package scan

import "net"

// enumerator produces the ordered cartesian product of targets and
// ports as a lazy, finite, non-restartable sequence. The production
// order is deterministic (target-major, port-minor); completion order
// during scanning is not.
type enumerator struct {
	targets []net.IP
	ports   []int
	ti, pi  int
}

// newEnumerator builds an enumerator over a normalized configuration.
// Exclusions and duplicates have already been removed by normalization.
func newEnumerator(cfg Config) *enumerator {
	return &enumerator{targets: cfg.Targets, ports: cfg.Ports}
}

// Total returns the number of work units the enumerator will yield.
// It is eagerly computable before any unit is produced.
func (e *enumerator) Total() int64 {
	return int64(len(e.targets)) * int64(len(e.ports))
}

// Next yields the next work unit, or ok=false when exhausted.
func (e *enumerator) Next() (WorkUnit, bool) {
	if e.ti >= len(e.targets) {
		return WorkUnit{}, false
	}
	unit := WorkUnit{Addr: e.targets[e.ti], Port: e.ports[e.pi]}
	e.pi++
	if e.pi >= len(e.ports) {
		e.pi = 0
		e.ti++
	}
	return unit, true
}
