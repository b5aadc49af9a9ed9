// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// captureTransport records everything sent through it.
type captureTransport struct {
	mu     sync.Mutex
	sent   []any
	err    error
	closed bool
}

func (c *captureTransport) Send(data any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, data)
	return nil
}

func (c *captureTransport) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *captureTransport) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestBroadcasterFansOut(t *testing.T) {
	first := &captureTransport{}
	second := &captureTransport{}

	b := NewBroadcaster(time.Millisecond, func() any { return "snapshot" }, first, second)
	b.Start()
	waitFor(t, time.Second, func() bool {
		return first.sentCount() >= 3 && second.sentCount() >= 3
	})
	b.Stop()

	if first.sent[0] != "snapshot" {
		t.Errorf("expected the source value to be forwarded, got %v", first.sent[0])
	}
}

func TestBroadcasterStopHaltsSends(t *testing.T) {
	tr := &captureTransport{}
	b := NewBroadcaster(time.Millisecond, func() any { return 1 }, tr)

	b.Start()
	waitFor(t, time.Second, func() bool { return tr.sentCount() >= 1 })
	b.Stop()
	b.Stop() // Idempotent

	count := tr.sentCount()
	time.Sleep(20 * time.Millisecond)
	if tr.sentCount() != count {
		t.Error("expected no sends after Stop")
	}
}

func TestBroadcasterSendErrorDoesNotStopOthers(t *testing.T) {
	failing := &captureTransport{err: errors.New("down")}
	healthy := &captureTransport{}

	b := NewBroadcaster(time.Millisecond, func() any { return 1 }, failing, healthy)
	b.Start()
	waitFor(t, time.Second, func() bool { return healthy.sentCount() >= 2 })
	b.Stop()
}

func TestBroadcasterCloseClosesTransports(t *testing.T) {
	tr := &captureTransport{}
	b := NewBroadcaster(time.Millisecond, func() any { return 1 }, tr)

	b.Start()
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !tr.closed {
		t.Error("expected transport closed by broadcaster Close")
	}
}

func TestBroadcasterStartIdempotent(t *testing.T) {
	tr := &captureTransport{}
	b := NewBroadcaster(time.Millisecond, func() any { return 1 }, tr)

	b.Start()
	b.Start() // No second goroutine
	waitFor(t, time.Second, func() bool { return tr.sentCount() >= 1 })
	b.Stop()
}
