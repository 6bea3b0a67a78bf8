// Package dispatch routes inbound pub/sub payloads to structured events.
//
// A Chain is an ordered list of (predicate, handler) pairs built once at
// construction. Dispatch walks the chain in order; the first entry whose
// predicate matches the topic claims the message and the walk stops, so
// later entries never see it. Messages no entry claims are dropped.
//
// Handlers parse their payload and, on success, emit exactly one structured
// event through the chain's emit function. Malformed payloads are dropped
// without emitting and without affecting the dispatch of later messages.
package dispatch

import (
	"strings"

	"github.com/homelink/homelink-core/internal/comms"
)

// Predicate decides whether a handler claims a topic.
type Predicate func(topic string) bool

// Handler processes a claimed message. A non-nil error means the payload
// was malformed and no event was emitted.
type Handler func(topic string, payload []byte) error

// Entry is one (predicate, handler) pair in the chain.
type Entry struct {
	// Name identifies the entry in diagnostics and logs.
	Name string

	// Matches claims topics for this entry.
	Matches Predicate

	// Handle parses the payload and emits an event.
	Handle Handler
}

// Logger is the optional logging interface for dropped payloads.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}

// Chain is an immutable ordered handler chain.
type Chain struct {
	entries []Entry
	logger  Logger
}

// Option configures a Chain at construction.
type Option func(*Chain)

// WithLogger attaches a logger for parse failures and unmatched topics.
func WithLogger(logger Logger) Option {
	return func(c *Chain) {
		c.logger = logger
	}
}

// NewChain builds a chain from the given entries, evaluated in order.
func NewChain(entries []Entry, opts ...Option) *Chain {
	c := &Chain{entries: entries}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Entries returns the names of the chain's entries in evaluation order,
// so the routing table is inspectable at runtime.
func (c *Chain) Entries() []string {
	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.Name
	}
	return names
}

// Dispatch routes one message through the chain. It reports whether any
// entry claimed the message; unmatched messages are silently dropped.
//
// A handler parse failure drops that message only; the chain remains fully
// usable for subsequent messages.
func (c *Chain) Dispatch(topic string, payload []byte) bool {
	for _, entry := range c.entries {
		if !entry.Matches(topic) {
			continue
		}

		if err := entry.Handle(topic, payload); err != nil && c.logger != nil {
			c.logger.Warn("dropping malformed payload",
				"handler", entry.Name,
				"topic", topic,
				"error", err,
			)
		}
		return true
	}

	if c.logger != nil {
		c.logger.Debug("no handler for topic", "topic", topic)
	}
	return false
}

// PrefixPredicate claims topics beginning with the given prefix segment.
func PrefixPredicate(prefix string) Predicate {
	return func(topic string) bool {
		return strings.HasPrefix(topic, prefix)
	}
}

// Emit delivers structured events produced by handlers. The session
// manager wires this to its message feed; tests wire it to a capture
// function.
type Emit func(event comms.MessageEvent)
