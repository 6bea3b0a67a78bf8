package comms

import (
	"testing"
	"time"

	"github.com/homelink/homelink-core/internal/connection"
)

func stateEvent(s connection.State) StateEvent {
	return StateEvent{State: s, Timestamp: time.Now().UTC()}
}

// =============================================================================
// StateFeed Tests
// =============================================================================

func TestStateFeedReplaysLatestToNewSubscribers(t *testing.T) {
	feed := NewStateFeed()
	defer feed.Close()

	feed.Publish(stateEvent(connection.StateConnecting))
	feed.Publish(stateEvent(connection.StateConnected))

	ch, cancel := feed.Subscribe()
	defer cancel()

	select {
	case event := <-ch:
		if event.State != connection.StateConnected {
			t.Errorf("replayed state = %v, want connected", event.State)
		}
	case <-time.After(time.Second):
		t.Fatal("no replay delivered to new subscriber")
	}
}

func TestStateFeedNoReplayWhenEmpty(t *testing.T) {
	feed := NewStateFeed()
	defer feed.Close()

	ch, cancel := feed.Subscribe()
	defer cancel()

	select {
	case event := <-ch:
		t.Errorf("unexpected event %v from empty feed", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStateFeedFIFOOrder(t *testing.T) {
	feed := NewStateFeed()
	defer feed.Close()

	ch, cancel := feed.Subscribe()
	defer cancel()

	sequence := []connection.State{
		connection.StateConnecting,
		connection.StateConnected,
		connection.StateReconnecting,
		connection.StateConnected,
	}
	for _, s := range sequence {
		feed.Publish(stateEvent(s))
	}

	for i, want := range sequence {
		select {
		case event := <-ch:
			if event.State != want {
				t.Errorf("event[%d] = %v, want %v", i, event.State, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("missing event %d", i)
		}
	}
}

func TestStateFeedIndependentSubscribers(t *testing.T) {
	feed := NewStateFeed()
	defer feed.Close()

	ch1, cancel1 := feed.Subscribe()
	ch2, cancel2 := feed.Subscribe()
	defer cancel1()
	defer cancel2()

	feed.Publish(stateEvent(connection.StateConnected))

	for i, ch := range []<-chan StateEvent{ch1, ch2} {
		select {
		case event := <-ch:
			if event.State != connection.StateConnected {
				t.Errorf("subscriber %d got %v", i, event.State)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d got nothing", i)
		}
	}
}

func TestStateFeedCancelDetaches(t *testing.T) {
	feed := NewStateFeed()
	defer feed.Close()

	ch, cancel := feed.Subscribe()
	cancel()

	// Channel must be closed after cancel.
	if _, open := <-ch; open {
		t.Error("channel still open after cancel")
	}

	// Publishing after cancel must not panic.
	feed.Publish(stateEvent(connection.StateConnected))

	// Double cancel is safe.
	cancel()
}

func TestStateFeedPublishNeverBlocks(t *testing.T) {
	feed := NewStateFeed()
	defer feed.Close()

	_, cancel := feed.Subscribe() // subscriber that never drains
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			feed.Publish(stateEvent(connection.StateConnected))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

// =============================================================================
// MessageFeed Tests
// =============================================================================

func TestMessageFeedHasNoReplay(t *testing.T) {
	feed := NewMessageFeed()
	defer feed.Close()

	feed.Publish(MessageEvent{Kind: EventStatus, Topic: "status/d1"})

	ch, cancel := feed.Subscribe()
	defer cancel()

	select {
	case event := <-ch:
		t.Errorf("message feed replayed %v to a late subscriber", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMessageFeedBroadcast(t *testing.T) {
	feed := NewMessageFeed()
	defer feed.Close()

	ch, cancel := feed.Subscribe()
	defer cancel()

	feed.Publish(MessageEvent{
		Kind:         EventNotification,
		Topic:        "msg/alerts",
		Notification: &NotificationEvent{Channel: "alerts"},
	})

	select {
	case event := <-ch:
		if event.Kind != EventNotification || event.Notification.Channel != "alerts" {
			t.Errorf("got %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestFeedCloseClosesSubscribers(t *testing.T) {
	feed := NewMessageFeed()
	ch, cancel := feed.Subscribe()
	defer cancel()

	feed.Close()

	if _, open := <-ch; open {
		t.Error("subscriber channel still open after feed close")
	}

	// Subscribing to a closed feed yields a closed channel.
	ch2, cancel2 := feed.Subscribe()
	defer cancel2()
	if _, open := <-ch2; open {
		t.Error("subscription to closed feed not closed")
	}
}
