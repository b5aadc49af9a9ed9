// SPDX-License-Identifier: MIT

/*
Package audio owns the microphone session lifecycle: acquiring the input
stream and the spectral analyser, running the analysis loop, and releasing
everything again. A Session enforces the lifecycle invariant that
recording implies both resources are held, and not recording implies
neither is.
*/
package audio

import (
	"fmt"
	"sync"
	"time"

	"micscope/internal/analysis"
	"micscope/internal/config"
	applog "micscope/internal/log"
	"micscope/internal/spectral"
	"micscope/internal/state"
)

// AcquisitionErrorMessage is published when the input resource cannot be
// acquired. Fixed and non-technical; the cause goes to the log.
const AcquisitionErrorMessage = "Microphone unavailable. Check permissions and input devices."

// streamHandle is the minimal surface the session needs from an open
// input stream. *portaudio.Stream satisfies it; tests substitute fakes.
type streamHandle interface {
	Start() error
	Stop() error
	Close() error
}

// streamOpener acquires an input stream that feeds the given analyser.
// It must not leave a partially open stream behind on error.
type streamOpener func(cfg *config.Config, a *spectral.Analyser) (streamHandle, error)

// Session owns one microphone + analyser pair and the loop that drains
// them. At most one pair is open per Session, enforced by idempotent
// Start/Stop.
type Session struct {
	cfg     *config.Config
	state   *state.State
	reducer *analysis.Reducer
	open    streamOpener

	mu        sync.Mutex
	recording bool
	stream    streamHandle
	analyser  *spectral.Analyser
	loop      *analysis.Loop
}

// NewSession creates a Session that captures from PortAudio per cfg and
// publishes into st.
func NewSession(cfg *config.Config, st *state.State) (*Session, error) {
	return newSession(cfg, st, openPortAudioStream)
}

func newSession(cfg *config.Config, st *state.State, open streamOpener) (*Session, error) {
	reducer, err := analysis.NewReducer(
		cfg.Audio.SampleRate,
		cfg.Analysis.Bands,
		cfg.Analysis.VolumeScale,
		cfg.Analysis.BandScale,
	)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	return &Session{
		cfg:     cfg,
		state:   st,
		reducer: reducer,
		open:    open,
	}, nil
}

// Start acquires the audio input and the spectral transform, then begins
// the analysis loop. A no-op if already recording. On acquisition failure
// every partially acquired resource is released, a user-facing error is
// published, and the session stays stopped; a later Start retries
// cleanly.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recording {
		return nil
	}

	s.state.ClearError()

	analyser, err := spectral.NewAnalyser(s.cfg.Audio.FFTSize, s.cfg.Audio.SampleRate, spectral.Hann)
	if err != nil {
		applog.Errorf("Session: analyser init failed: %v", err)
		s.state.PublishError(AcquisitionErrorMessage)
		return fmt.Errorf("session: analyser init: %w", err)
	}

	stream, err := s.open(s.cfg, analyser)
	if err != nil {
		analyser.Close()
		applog.Errorf("Session: input acquisition failed: %v", err)
		s.state.PublishError(AcquisitionErrorMessage)
		return fmt.Errorf("session: open input: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		analyser.Close()
		applog.Errorf("Session: input stream start failed: %v", err)
		s.state.PublishError(AcquisitionErrorMessage)
		return fmt.Errorf("session: start input: %w", err)
	}

	interval := time.Second / time.Duration(s.cfg.Analysis.RefreshRate)
	s.loop = analysis.NewLoop(analyser, s.reducer, s.state, interval, s.forceStop)
	s.stream = stream
	s.analyser = analyser
	s.recording = true
	s.state.SetRecording(true)
	s.loop.Start()

	applog.Infof("Session: started (device %d, %.0f Hz, fft %d, %d bands)",
		s.cfg.Audio.InputDevice, s.cfg.Audio.SampleRate, s.cfg.Audio.FFTSize, s.cfg.Analysis.Bands)
	return nil
}

// Stop cancels the analysis loop, releases the audio input and then the
// transform, and resets the published metrics to defaults. Idempotent and
// safe to call from teardown paths and error handlers; the last error is
// left in place for observers.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Session) stopLocked() {
	if !s.recording && s.stream == nil && s.analyser == nil {
		return
	}

	s.recording = false

	if s.loop != nil {
		s.loop.Cancel()
		s.loop = nil
	}

	// Release the audio resource first, then the transform.
	if s.stream != nil {
		if err := s.stream.Stop(); err != nil {
			applog.Errorf("Session: error stopping input stream: %v", err)
		}
		if err := s.stream.Close(); err != nil {
			applog.Errorf("Session: error closing input stream: %v", err)
		}
		s.stream = nil
	}
	if s.analyser != nil {
		s.analyser.Close()
		s.analyser = nil
	}

	s.state.Reset()
	applog.Infof("Session: stopped")
}

// forceStop is the loop's fatal-error hook. It runs after the loop has
// already left the Running state, so the Cancel inside stopLocked is a
// no-op rather than a self-join.
func (s *Session) forceStop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// IsRecording reports whether the session currently holds open resources.
func (s *Session) IsRecording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording
}
