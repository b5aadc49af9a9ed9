// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"sync"
	"time"

	applog "micscope/internal/log"
)

// FrameSource yields one frequency-domain magnitude frame per Poll. A nil
// frame with nil error means no frame is available yet (a no-update
// cycle); an error means the source is unusable and the session must end.
type FrameSource interface {
	Poll() ([]float64, error)
}

// Sink receives the loop's output. Implemented by the presentation state.
type Sink interface {
	Publish(m Metrics)
	PublishError(msg string)
}

// LoopState is the scheduling state of the analysis loop.
type LoopState int32

const (
	Idle LoopState = iota // Initial and terminal state
	Running
	Cancelling
)

// FatalErrorMessage is published when a running cycle fails. Fixed and
// non-technical; details go to the log.
const FatalErrorMessage = "Audio analysis failed. Recording stopped."

// Loop drives repeated poll → reduce → publish cycles on a fixed cadence.
// Cycles run on a single goroutine, so cycle N's publish always completes
// before cycle N+1 begins and no two cycles overlap. Cancellation is
// observed at the tick boundary: once Cancel returns, no further cycle
// executes.
type Loop struct {
	source   FrameSource
	reducer  *Reducer
	sink     Sink
	interval time.Duration
	onFatal  func() // Force-stop hook, wired to the session's Stop

	mu    sync.Mutex
	state LoopState
	done  chan struct{}
	wg    sync.WaitGroup

	prev Metrics // Last published metrics, loop goroutine only
}

// NewLoop creates a Loop in the Idle state. interval is the cycle cadence
// (the stand-in for the host's redraw callback); onFatal is invoked after
// a cycle failure has been published, and may call Cancel safely.
func NewLoop(source FrameSource, reducer *Reducer, sink Sink, interval time.Duration, onFatal func()) *Loop {
	if interval <= 0 {
		interval = 16 * time.Millisecond // ~60Hz
	}
	return &Loop{
		source:   source,
		reducer:  reducer,
		sink:     sink,
		interval: interval,
		onFatal:  onFatal,
		prev:     NewMetrics(reducer.BandCount()),
	}
}

// State returns the current scheduling state.
func (l *Loop) State() LoopState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Start transitions Idle → Running and begins cycling. A no-op if the
// loop is already running.
func (l *Loop) Start() {
	l.mu.Lock()
	if l.state != Idle {
		l.mu.Unlock()
		applog.Warnf("Loop: Start called in state %d, ignoring", l.state)
		return
	}
	l.state = Running
	l.done = make(chan struct{})
	done := l.done
	l.prev = NewMetrics(l.reducer.BandCount())
	l.mu.Unlock()

	l.wg.Add(1)
	go l.run(done)
}

// Cancel transitions Running → Idle by halting the next scheduled cycle
// and waiting for the loop goroutine to exit. Safe to call when already
// Idle; double-cancel is a no-op because the handle is cleared.
func (l *Loop) Cancel() {
	l.mu.Lock()
	if l.state != Running || l.done == nil {
		l.mu.Unlock()
		return
	}
	l.state = Cancelling
	close(l.done)
	l.done = nil
	l.mu.Unlock()

	l.wg.Wait()

	l.mu.Lock()
	l.state = Idle
	l.mu.Unlock()
}

func (l *Loop) run(done chan struct{}) {
	defer l.wg.Done()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := l.cycle(); err != nil {
				l.fail(err)
				return
			}
		}
	}
}

// cycle performs one poll → reduce → publish pass. Panics from the source
// or reducer are converted to errors so a bad cycle ends the session
// instead of the process.
func (l *Loop) cycle() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("analysis cycle panic: %v", r)
		}
	}()

	frame, err := l.source.Poll()
	if err != nil {
		return fmt.Errorf("poll: %w", err)
	}

	m, ok := l.reducer.Reduce(frame, l.prev)
	if !ok {
		return nil // No frame yet, keep previous metrics
	}

	l.prev = m
	l.sink.Publish(m)
	return nil
}

// fail handles a fatal cycle error from inside the loop goroutine:
// publish the user-facing error, transition to Idle, then invoke the
// force-stop hook. The transition happens first so the hook's Cancel call
// is a no-op, and the hook runs on its own goroutine so a concurrent
// caller blocked in Cancel is never waited on from here.
func (l *Loop) fail(err error) {
	applog.Errorf("Loop: fatal cycle error: %v", err)
	l.sink.PublishError(FatalErrorMessage)

	l.mu.Lock()
	l.done = nil
	l.state = Idle
	l.mu.Unlock()

	if l.onFatal != nil {
		go l.onFatal()
	}
}
