package netmon

import (
	"context"
	"net"
	"testing"
	"time"
)

// listen opens a local TCP listener for probing.
func listen(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listening: %v", err)
	}
	return ln
}

// waitEvent reads the next transition or fails after a timeout.
func waitEvent(t *testing.T, events <-chan bool) bool {
	t.Helper()
	select {
	case ev, ok := <-events:
		if !ok {
			t.Fatal("event channel closed while waiting")
		}
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reachability event")
		return false
	}
}

func TestMonitorInitialReachable(t *testing.T) {
	ln := listen(t)
	defer ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := New(ln.Addr().String(), WithInterval(10*time.Millisecond))
	m.Start(ctx)

	if !waitEvent(t, m.Events()) {
		t.Error("initial probe = unreachable, want reachable")
	}
}

func TestMonitorInitialUnreachable(t *testing.T) {
	// Grab a port and close it so nothing listens there.
	ln := listen(t)
	addr := ln.Addr().String()
	ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := New(addr, WithInterval(10*time.Millisecond), WithDialTimeout(100*time.Millisecond))
	m.Start(ctx)

	if waitEvent(t, m.Events()) {
		t.Error("initial probe = reachable, want unreachable")
	}
}

func TestMonitorEmitsTransitions(t *testing.T) {
	ln := listen(t)
	addr := ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := New(addr, WithInterval(10*time.Millisecond), WithDialTimeout(100*time.Millisecond))
	m.Start(ctx)

	if !waitEvent(t, m.Events()) {
		t.Fatal("initial probe = unreachable, want reachable")
	}

	// Drop the listener; the next differing probe emits false.
	ln.Close()
	if waitEvent(t, m.Events()) {
		t.Error("after listener closed: reachable, want unreachable")
	}
}

func TestMonitorClosesOnCancel(t *testing.T) {
	ln := listen(t)
	defer ln.Close()

	ctx, cancel := context.WithCancel(context.Background())

	m := New(ln.Addr().String(), WithInterval(10*time.Millisecond))
	m.Start(ctx)
	waitEvent(t, m.Events())

	cancel()

	deadline := time.After(3 * time.Second)
	for {
		select {
		case _, ok := <-m.Events():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("event channel not closed after cancel")
		}
	}
}
