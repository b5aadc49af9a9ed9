// SPDX-License-Identifier: MIT
package transport

import (
	"sync"
	"time"

	applog "micscope/internal/log"
)

// Broadcaster periodically snapshots the presentation state and fans the
// snapshot out to a set of transports. It runs on its own goroutine
// between Start and Stop, decoupling observers from the analysis cadence.
type Broadcaster struct {
	source     func() any // Snapshot provider, called once per tick
	transports []Transport
	interval   time.Duration

	mu       sync.Mutex
	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewBroadcaster creates a Broadcaster that calls source on every tick
// and sends the result to each transport. An interval <= 0 defaults to
// 16ms (~60Hz).
func NewBroadcaster(interval time.Duration, source func() any, transports ...Transport) *Broadcaster {
	if interval <= 0 {
		interval = 16 * time.Millisecond
		applog.Warnf("Broadcaster: invalid interval, defaulting to %s", interval)
	}
	return &Broadcaster{
		source:     source,
		transports: transports,
		interval:   interval,
	}
}

// Start begins periodic broadcasting. Safe to call more than once;
// subsequent calls while running are no-ops.
func (b *Broadcaster) Start() {
	b.mu.Lock()
	if b.ticker != nil {
		b.mu.Unlock()
		applog.Warnf("Broadcaster: Start called but already running")
		return
	}

	b.ticker = time.NewTicker(b.interval)
	b.doneChan = make(chan struct{})
	b.stopOnce = sync.Once{}

	ticker := b.ticker
	doneChan := b.doneChan
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case <-ticker.C:
				b.sendAll()
			case <-doneChan:
				return
			}
		}
	}()
}

func (b *Broadcaster) sendAll() {
	snapshot := b.source()
	for _, t := range b.transports {
		if err := t.Send(snapshot); err != nil {
			applog.Errorf("Broadcaster: send error: %v", err)
		}
	}
}

// Stop signals the broadcast goroutine to exit and waits for it. Safe to
// call more than once.
func (b *Broadcaster) Stop() {
	b.mu.Lock()
	if b.ticker == nil {
		b.mu.Unlock()
		return
	}
	b.stopOnce.Do(func() {
		close(b.doneChan)
		b.ticker.Stop()
		b.ticker = nil
	})
	b.mu.Unlock()

	b.wg.Wait()
}

// Close stops the broadcaster and closes every transport.
func (b *Broadcaster) Close() error {
	b.Stop()
	var firstErr error
	for _, t := range b.transports {
		if err := t.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
