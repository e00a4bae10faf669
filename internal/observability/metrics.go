package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters for the engine and its HTTP
// surface.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64

	clocksStarted    int64
	resolutionHits   int64
	resolutionMisses int64
	sweepsRun        int64
	escalationsFired int64
	breachesObserved int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
	}
}

// RecordRequest increments counters for HTTP requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordClockStarted counts clocks entering tracking.
func (m *Metrics) RecordClockStarted() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clocksStarted++
}

// RecordResolution counts rule resolution outcomes.
func (m *Metrics) RecordResolution(matched bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if matched {
		m.resolutionHits++
	} else {
		m.resolutionMisses++
	}
}

// RecordSweep counts monitor sweeps and their findings.
func (m *Metrics) RecordSweep(escalations, breaches int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepsRun++
	m.escalationsFired += int64(escalations)
	m.breachesObserved += int64(breaches)
}

// Snapshot returns current engine counter values.
func (m *Metrics) Snapshot() map[string]int64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]int64{
		"clocks_started":    m.clocksStarted,
		"resolution_hits":   m.resolutionHits,
		"resolution_misses": m.resolutionMisses,
		"sweeps_run":        m.sweepsRun,
		"escalations_fired": m.escalationsFired,
		"breaches_observed": m.breachesObserved,
	}
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
