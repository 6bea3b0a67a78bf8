// Package netmon watches network reachability by periodically dialing a
// well-known endpoint (normally the broker itself). It emits an event on
// every transition: true when the network becomes reachable, false when it
// is lost. Steady states produce no events, so consumers only wake on
// change.
package netmon

import (
	"context"
	"net"
	"time"
)

// Defaults applied when the corresponding Monitor field is unset.
const (
	defaultInterval    = 15 * time.Second
	defaultDialTimeout = 3 * time.Second
)

// eventBuffer absorbs a transition while the consumer is busy; further
// transitions overwrite nothing because the channel only ever carries the
// latest flip.
const eventBuffer = 1

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
}

// Monitor probes one TCP endpoint on a fixed interval.
type Monitor struct {
	address  string
	interval time.Duration
	timeout  time.Duration
	logger   Logger

	events chan bool
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithInterval sets the probe interval.
func WithInterval(interval time.Duration) Option {
	return func(m *Monitor) {
		m.interval = interval
	}
}

// WithDialTimeout sets the per-probe dial timeout.
func WithDialTimeout(timeout time.Duration) Option {
	return func(m *Monitor) {
		m.timeout = timeout
	}
}

// WithLogger sets a logger for transition events.
func WithLogger(logger Logger) Option {
	return func(m *Monitor) {
		m.logger = logger
	}
}

// New creates a monitor for a host:port endpoint.
func New(address string, opts ...Option) *Monitor {
	m := &Monitor{
		address:  address,
		interval: defaultInterval,
		timeout:  defaultDialTimeout,
		events:   make(chan bool, eventBuffer),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Events returns the transition channel. Closed when the monitor stops.
func (m *Monitor) Events() <-chan bool {
	return m.events
}

// Start probes until ctx is cancelled. The first probe runs immediately and
// always emits, so consumers learn the initial reachability without waiting
// a full interval.
func (m *Monitor) Start(ctx context.Context) {
	go m.run(ctx)
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.events)

	last := m.probe(ctx)
	m.emit(ctx, last)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reachable := m.probe(ctx)
			if reachable == last {
				continue
			}
			last = reachable
			if m.logger != nil {
				m.logger.Info("network reachability changed",
					"address", m.address, "reachable", reachable)
			}
			m.emit(ctx, reachable)
		}
	}
}

// probe attempts one TCP dial.
func (m *Monitor) probe(ctx context.Context) bool {
	dialCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(dialCtx, "tcp", m.address)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// emit delivers a transition, replacing a stale buffered value if the
// consumer has not caught up yet.
func (m *Monitor) emit(ctx context.Context, reachable bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case m.events <- reachable:
			return
		default:
			select {
			case <-m.events:
			default:
			}
		}
	}
}
