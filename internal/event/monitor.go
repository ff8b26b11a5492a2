package event

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultSlowThreshold flags dispatches that hold the loop long enough to
// be felt as input lag.
const DefaultSlowThreshold = 100 * time.Millisecond

// Monitor wraps action dispatch with timing diagnostics. It records how
// long each action takes and logs outliers; it never alters dispatch
// semantics.
type Monitor struct {
	threshold time.Duration
	log       *zap.Logger

	dispatched atomic.Int64
	slow       atomic.Int64
}

// NewMonitor creates a Monitor logging outliers to log. A zero threshold
// uses DefaultSlowThreshold; a nil logger disables outlier logging but
// keeps the counters.
func NewMonitor(threshold time.Duration, log *zap.Logger) *Monitor {
	if threshold <= 0 {
		threshold = DefaultSlowThreshold
	}
	return &Monitor{threshold: threshold, log: log}
}

// Observe runs dispatch for a and records its duration.
func (m *Monitor) Observe(a Action, dispatch func()) {
	start := time.Now()
	dispatch()
	d := time.Since(start)

	m.dispatched.Add(1)
	if d < m.threshold {
		return
	}
	m.slow.Add(1)
	if m.log != nil {
		m.log.Warn("slow action dispatch",
			zap.String("action", a.Kind.String()),
			zap.Duration("duration", d),
			zap.Duration("threshold", m.threshold),
		)
	}
}

// Dispatched returns the total number of observed dispatches.
func (m *Monitor) Dispatched() int64 { return m.dispatched.Load() }

// Slow returns how many dispatches exceeded the threshold.
func (m *Monitor) Slow() int64 { return m.slow.Load() }
