// SPDX-License-Identifier: MIT

/*
Package state holds the latest presentation snapshot: the metrics, the
recording flag, and the last error. It is the only channel between the
capture/analysis core and its observers (terminal view, transports).

The analysis loop is the sole metrics writer, but observers read from
their own goroutines, so the holder is mutex-guarded. Observers receive
copies and must treat them as read-only values.
*/
package state

import (
	"sync"
	"time"

	"micscope/internal/analysis"
)

// Snapshot is a read-only copy of the presentation state.
type Snapshot struct {
	Metrics        analysis.Metrics `json:"metrics"`
	IsRecording    bool             `json:"isRecording"`
	Error          string           `json:"error"` // Empty when none
	TimestampNanos int64            `json:"-"`     // Capture time of this snapshot
}

// State is the session-scoped observable holder.
type State struct {
	mu        sync.RWMutex
	metrics   analysis.Metrics
	recording bool
	lastError string
	bandCount int
}

// NewState creates a State with default metrics for bandCount bands.
func NewState(bandCount int) *State {
	return &State{
		metrics:   analysis.NewMetrics(bandCount),
		bandCount: bandCount,
	}
}

// Publish overwrites the current metrics snapshot.
func (s *State) Publish(m analysis.Metrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m.Clone()
}

// PublishError records a user-facing error message and forces the
// recording flag off.
func (s *State) PublishError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = msg
	s.recording = false
}

// ClearError clears the last error, called when a new session starts.
func (s *State) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = ""
}

// SetRecording sets the recording flag.
func (s *State) SetRecording(recording bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recording = recording
}

// Reset restores metrics and the recording flag to their defaults:
// frequency 0, volume at floor, all bands 0, not recording. The last
// error is kept so a stop issued from an error handler does not erase
// what it is reporting; starting a session clears it instead.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = analysis.NewMetrics(s.bandCount)
	s.recording = false
}

// IsRecording reports whether a session is currently recording.
func (s *State) IsRecording() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recording
}

// LastError returns the last published error message, empty when none.
func (s *State) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// Snapshot returns a copy of the full presentation state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Metrics:        s.metrics.Clone(),
		IsRecording:    s.recording,
		Error:          s.lastError,
		TimestampNanos: time.Now().UnixNano(),
	}
}
