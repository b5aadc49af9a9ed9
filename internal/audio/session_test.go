// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"sync"
	"testing"
	"time"

	"micscope/internal/config"
	"micscope/internal/spectral"
	"micscope/internal/state"
	"micscope/pkg/utils"
)

// fakeStream stands in for a PortAudio stream. On Start it feeds one
// buffer of test signal so the loop has a frame to reduce.
type fakeStream struct {
	mu       sync.Mutex
	analyser *spectral.Analyser
	signal   []int32
	started  bool
	stopped  bool
	closed   bool
	startErr error
}

func (f *fakeStream) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.started = true
	if f.analyser != nil && f.signal != nil {
		f.analyser.Feed(f.signal)
	}
	return nil
}

func (f *fakeStream) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	return nil
}

func (f *fakeStream) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func testConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.Audio.FFTSize = 1024
	cfg.Analysis.RefreshRate = 500 // Fast cycles for tests
	return cfg
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

func TestSessionStartStop(t *testing.T) {
	cfg := testConfig()
	st := state.NewState(cfg.Analysis.Bands)

	var stream *fakeStream
	session, err := newSession(cfg, st, func(c *config.Config, a *spectral.Analyser) (streamHandle, error) {
		stream = &fakeStream{
			analyser: a,
			signal:   utils.GenerateSineWave(c.Audio.FFTSize, c.Audio.SampleRate, 1000),
		}
		return stream, nil
	})
	if err != nil {
		t.Fatalf("newSession: %v", err)
	}

	if err := session.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !session.IsRecording() || !st.IsRecording() {
		t.Fatal("expected recording after Start")
	}

	// The loop should publish non-default metrics from the fed signal.
	waitFor(t, time.Second, func() bool {
		return st.Snapshot().Metrics.Volume > 0
	})

	session.Stop()
	if session.IsRecording() || st.IsRecording() {
		t.Fatal("expected not recording after Stop")
	}
	if !stream.stopped || !stream.closed {
		t.Error("expected the input stream to be stopped and closed")
	}

	// Round trip: all published metrics back at defaults.
	snap := st.Snapshot()
	if snap.Metrics.FrequencyHz != 0 || snap.Metrics.Volume != 0 {
		t.Errorf("expected default metrics after Stop, got %+v", snap.Metrics)
	}
	for i, b := range snap.Metrics.Bands {
		if b != 0 {
			t.Errorf("band %d not reset after Stop: %f", i, b)
		}
	}
}

func TestSessionStartIdempotent(t *testing.T) {
	cfg := testConfig()
	st := state.NewState(cfg.Analysis.Bands)

	opens := 0
	session, err := newSession(cfg, st, func(c *config.Config, a *spectral.Analyser) (streamHandle, error) {
		opens++
		return &fakeStream{}, nil
	})
	if err != nil {
		t.Fatalf("newSession: %v", err)
	}

	if err := session.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := session.Start(); err != nil {
		t.Fatalf("second Start: %v", err)
	}

	if opens != 1 {
		t.Errorf("expected a single resource acquisition, got %d", opens)
	}
	session.Stop()
}

func TestSessionStopIdempotent(t *testing.T) {
	cfg := testConfig()
	st := state.NewState(cfg.Analysis.Bands)

	session, err := newSession(cfg, st, func(c *config.Config, a *spectral.Analyser) (streamHandle, error) {
		return &fakeStream{}, nil
	})
	if err != nil {
		t.Fatalf("newSession: %v", err)
	}

	st.PublishError("earlier failure")
	session.Stop() // Never started: must be a safe no-op

	if st.IsRecording() {
		t.Error("expected not recording")
	}
	if st.LastError() != "earlier failure" {
		t.Errorf("stop must leave the error unchanged, got %q", st.LastError())
	}

	if err := session.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	session.Stop()
	session.Stop() // Double stop after a session
	if session.IsRecording() {
		t.Error("expected not recording after double Stop")
	}
}

func TestSessionAcquisitionFailure(t *testing.T) {
	cfg := testConfig()
	st := state.NewState(cfg.Analysis.Bands)

	fail := true
	session, err := newSession(cfg, st, func(c *config.Config, a *spectral.Analyser) (streamHandle, error) {
		if fail {
			return nil, errors.New("permission denied")
		}
		return &fakeStream{}, nil
	})
	if err != nil {
		t.Fatalf("newSession: %v", err)
	}

	if err := session.Start(); err == nil {
		t.Fatal("expected Start to fail")
	}
	if session.IsRecording() || st.IsRecording() {
		t.Error("expected recording to stay off after acquisition failure")
	}
	if st.LastError() == "" {
		t.Error("expected a user-facing error message")
	}

	// No leak: a later Start retries cleanly.
	fail = false
	if err := session.Start(); err != nil {
		t.Fatalf("retry Start: %v", err)
	}
	if !session.IsRecording() {
		t.Error("expected recording after clean retry")
	}
	if st.LastError() != "" {
		t.Errorf("expected error cleared on successful start, got %q", st.LastError())
	}
	session.Stop()
}

func TestSessionStreamStartFailureRollsBack(t *testing.T) {
	cfg := testConfig()
	st := state.NewState(cfg.Analysis.Bands)

	stream := &fakeStream{startErr: errors.New("device busy")}
	session, err := newSession(cfg, st, func(c *config.Config, a *spectral.Analyser) (streamHandle, error) {
		return stream, nil
	})
	if err != nil {
		t.Fatalf("newSession: %v", err)
	}

	if err := session.Start(); err == nil {
		t.Fatal("expected Start to fail")
	}
	if !stream.closed {
		t.Error("expected the partially acquired stream to be closed")
	}
	if session.IsRecording() {
		t.Error("expected recording off after rollback")
	}
}

func TestSessionFatalCycleForcesStop(t *testing.T) {
	cfg := testConfig()
	st := state.NewState(cfg.Analysis.Bands)

	var stream *fakeStream
	session, err := newSession(cfg, st, func(c *config.Config, a *spectral.Analyser) (streamHandle, error) {
		stream = &fakeStream{
			analyser: a,
			signal:   utils.GenerateSineWave(c.Audio.FFTSize, c.Audio.SampleRate, 1000),
		}
		return stream, nil
	})
	if err != nil {
		t.Fatalf("newSession: %v", err)
	}

	if err := session.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, time.Second, func() bool {
		return st.Snapshot().Metrics.Volume > 0
	})

	// Kill the frame source under the running loop: the next poll fails
	// and the loop must force-stop the session.
	session.mu.Lock()
	session.analyser.Close()
	session.mu.Unlock()

	waitFor(t, 2*time.Second, func() bool { return !session.IsRecording() })
	waitFor(t, time.Second, func() bool { return st.LastError() != "" })

	session.mu.Lock()
	released := session.stream == nil && session.analyser == nil
	session.mu.Unlock()
	if !released {
		t.Error("expected resources released after fatal cycle")
	}
	if st.IsRecording() {
		t.Error("expected recording off after fatal cycle")
	}

	snap := st.Snapshot()
	if snap.Metrics.Volume != 0 || snap.Metrics.FrequencyHz != 0 {
		t.Errorf("expected metrics reset after forced stop, got %+v", snap.Metrics)
	}
}
