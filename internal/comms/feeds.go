package comms

import "sync"

// subscriberBuffer is the per-subscriber channel capacity. A subscriber
// that falls this far behind starts losing events; publishing never blocks.
const subscriberBuffer = 64

// feed is a fan-out broadcaster. Events are delivered to each subscriber's
// buffered channel in publish order (FIFO per subscriber). When replay is
// enabled, new subscribers immediately receive the most recent event.
type feed[T any] struct {
	mu     sync.Mutex
	subs   map[int]chan T
	nextID int
	closed bool

	replay  bool
	last    T
	hasLast bool
}

func newFeed[T any](replay bool) *feed[T] {
	return &feed[T]{
		subs:   make(map[int]chan T),
		replay: replay,
	}
}

// subscribe registers a new consumer. The returned cancel function detaches
// the consumer and closes its channel; it is safe to call more than once.
func (f *feed[T]) subscribe() (<-chan T, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan T, subscriberBuffer)
	if f.closed {
		close(ch)
		return ch, func() {}
	}

	id := f.nextID
	f.nextID++
	f.subs[id] = ch

	if f.replay && f.hasLast {
		ch <- f.last
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if sub, ok := f.subs[id]; ok {
				delete(f.subs, id)
				close(sub)
			}
		})
	}

	return ch, cancel
}

// publish delivers an event to all subscribers without blocking. Slow
// subscribers whose buffers are full miss the event.
func (f *feed[T]) publish(event T) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	if f.replay {
		f.last = event
		f.hasLast = true
	}

	for _, ch := range f.subs {
		select {
		case ch <- event:
		default:
			// Subscriber buffer full; drop rather than stall delivery.
		}
	}
}

// closeFeed closes every subscriber channel and rejects further publishes.
func (f *feed[T]) closeFeed() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	for id, ch := range f.subs {
		delete(f.subs, id)
		close(ch)
	}
}

// StateFeed broadcasts connection-state transitions. The latest event is
// replayed to new subscribers so late consumers learn the current state.
type StateFeed struct {
	inner *feed[StateEvent]
}

// NewStateFeed creates an empty state feed.
func NewStateFeed() *StateFeed {
	return &StateFeed{inner: newFeed[StateEvent](true)}
}

// Subscribe registers a consumer. The current state (if any) is delivered
// first, then transitions in FIFO order. Call cancel to detach.
func (f *StateFeed) Subscribe() (<-chan StateEvent, func()) {
	return f.inner.subscribe()
}

// Publish broadcasts a state transition. Never blocks.
func (f *StateFeed) Publish(event StateEvent) {
	f.inner.publish(event)
}

// Close shuts the feed down, closing all subscriber channels.
func (f *StateFeed) Close() {
	f.inner.closeFeed()
}

// MessageFeed broadcasts structured message events. There is no replay:
// subscribers only see events published after they subscribe.
type MessageFeed struct {
	inner *feed[MessageEvent]
}

// NewMessageFeed creates an empty message feed.
func NewMessageFeed() *MessageFeed {
	return &MessageFeed{inner: newFeed[MessageEvent](false)}
}

// Subscribe registers a consumer. Call cancel to detach.
func (f *MessageFeed) Subscribe() (<-chan MessageEvent, func()) {
	return f.inner.subscribe()
}

// Publish broadcasts a message event. Never blocks.
func (f *MessageFeed) Publish(event MessageEvent) {
	f.inner.publish(event)
}

// Close shuts the feed down, closing all subscriber channels.
func (f *MessageFeed) Close() {
	f.inner.closeFeed()
}
