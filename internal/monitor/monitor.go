// Package monitor polls a provider for block status in the background.
package monitor

import (
	"context"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/metrics"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/provider"
)

// Snapshot is the job table after one poll.
type Snapshot struct {
	Time time.Time
	Jobs []provider.JobRecord
}

// Done reports whether every job in the snapshot is terminal.
func (s Snapshot) Done() bool {
	for _, j := range s.Jobs {
		if !j.Status.Terminal() {
			return false
		}
	}
	return true
}

// Counts returns the number of jobs per status.
func (s Snapshot) Counts() map[provider.Status]int {
	out := make(map[provider.Status]int)
	for _, j := range s.Jobs {
		out[j.Status]++
	}
	return out
}

// SubmitFunc submits one replacement block.
type SubmitFunc func(ctx context.Context) (string, error)

// Monitor periodically refreshes the status of every active job.
type Monitor struct {
	interval     time.Duration
	provider     provider.Provider
	metrics      *metrics.Collector
	onUpdate     func(Snapshot)
	stopWhenDone bool
	minBlocks    int
	submit       SubmitFunc
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithMetrics counts each poll on the collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(m *Monitor) {
		m.metrics = c
	}
}

// WithUpdates calls fn with the job table after every poll.
func WithUpdates(fn func(Snapshot)) Option {
	return func(m *Monitor) {
		m.onUpdate = fn
	}
}

// WithStopWhenDone makes Run return once every job is terminal.
func WithStopWhenDone() Option {
	return func(m *Monitor) {
		m.stopWhenDone = true
	}
}

// WithMinBlocks keeps at least n blocks active by calling submit, on
// providers that support scaling.
func WithMinBlocks(n int, submit SubmitFunc) Option {
	return func(m *Monitor) {
		m.minBlocks = n
		m.submit = submit
	}
}

// New creates a new Monitor.
func New(interval time.Duration, p provider.Provider, opts ...Option) *Monitor {
	m := &Monitor{
		interval: interval,
		provider: p,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run starts the polling loop. It blocks until the context is cancelled,
// or with WithStopWhenDone until every job is terminal.
func (m *Monitor) Run(ctx context.Context) error {
	logging.Debug("starting status monitor", "provider", m.provider.Label(), "interval", m.interval)

	// Poll immediately, then on interval.
	if snap := m.Poll(ctx); m.finished(snap) {
		return nil
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Debug("status monitor stopping")
			return ctx.Err()
		case <-ticker.C:
			if snap := m.Poll(ctx); m.finished(snap) {
				logging.Debug("all blocks finished")
				return nil
			}
		}
	}
}

func (m *Monitor) finished(s Snapshot) bool {
	return m.stopWhenDone && len(s.Jobs) > 0 && s.Done()
}

// Poll refreshes every active job once and returns the resulting table.
func (m *Monitor) Poll(ctx context.Context) Snapshot {
	var active []string
	for _, j := range m.provider.Jobs() {
		if !j.Status.Terminal() {
			active = append(active, j.ID)
		}
	}

	if len(active) > 0 {
		if _, err := m.provider.Status(ctx, active); err != nil {
			logging.Warn("status refresh failed", "provider", m.provider.Label(), "error", err)
		}
	}
	if m.metrics != nil {
		m.metrics.RecordPoll(m.provider.Label())
	}

	m.replenish(ctx)

	snap := Snapshot{Time: time.Now(), Jobs: m.provider.Jobs()}
	if m.onUpdate != nil {
		m.onUpdate(snap)
	}
	return snap
}

// replenish submits blocks until MinBlocks are active.
func (m *Monitor) replenish(ctx context.Context) {
	if m.submit == nil || !m.provider.ScalingEnabled() {
		return
	}
	for missing := m.minBlocks - m.provider.CurrentCapacity(); missing > 0; missing-- {
		id, err := m.submit(ctx)
		if err != nil {
			logging.Warn("failed to submit replacement block", "provider", m.provider.Label(), "error", err)
			return
		}
		if id == "" {
			return
		}
		logging.Info("submitted replacement block", "provider", m.provider.Label(), "job", id)
	}
}
