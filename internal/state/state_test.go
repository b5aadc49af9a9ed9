// SPDX-License-Identifier: MIT
package state

import (
	"testing"

	"micscope/internal/analysis"
)

const testBands = 32

func TestPublishAndSnapshot(t *testing.T) {
	st := NewState(testBands)

	m := analysis.NewMetrics(testBands)
	m.FrequencyHz = 440
	m.Volume = 37
	m.Bands[5] = 60

	st.Publish(m)
	snap := st.Snapshot()

	if snap.Metrics.FrequencyHz != 440 || snap.Metrics.Volume != 37 {
		t.Errorf("snapshot does not reflect published metrics: %+v", snap.Metrics)
	}
	if snap.Metrics.Bands[5] != 60 {
		t.Errorf("expected band 5 = 60, got %f", snap.Metrics.Bands[5])
	}

	// Mutating the published value or the snapshot must not leak back.
	m.Bands[5] = 99
	snap.Metrics.Bands[5] = 99
	if st.Snapshot().Metrics.Bands[5] != 60 {
		t.Error("state shares its bands slice with callers")
	}
}

func TestPublishErrorForcesRecordingOff(t *testing.T) {
	st := NewState(testBands)
	st.SetRecording(true)

	st.PublishError("microphone unavailable")

	if st.IsRecording() {
		t.Error("expected recording off after PublishError")
	}
	if st.LastError() != "microphone unavailable" {
		t.Errorf("expected error recorded, got %q", st.LastError())
	}
}

func TestResetRestoresDefaultsButKeepsError(t *testing.T) {
	st := NewState(testBands)

	m := analysis.NewMetrics(testBands)
	m.FrequencyHz = 880
	m.Volume = 12
	m.Bands[0] = 10
	st.Publish(m)
	st.SetRecording(true)
	st.PublishError("analysis failed")

	st.Reset()

	snap := st.Snapshot()
	if snap.IsRecording {
		t.Error("expected recording off after reset")
	}
	if snap.Metrics.FrequencyHz != 0 || snap.Metrics.Volume != 0 {
		t.Errorf("expected default metrics after reset, got %+v", snap.Metrics)
	}
	if len(snap.Metrics.Bands) != testBands {
		t.Fatalf("expected %d bands after reset, got %d", testBands, len(snap.Metrics.Bands))
	}
	for i, b := range snap.Metrics.Bands {
		if b != 0 {
			t.Errorf("band %d not reset: %f", i, b)
		}
	}
	// A stop issued from an error handler must not erase the error it
	// is reporting.
	if snap.Error != "analysis failed" {
		t.Errorf("expected error preserved across reset, got %q", snap.Error)
	}
}

func TestClearError(t *testing.T) {
	st := NewState(testBands)
	st.PublishError("boom")
	st.ClearError()
	if st.LastError() != "" {
		t.Errorf("expected empty error after clear, got %q", st.LastError())
	}
}

func TestSnapshotTimestamp(t *testing.T) {
	st := NewState(testBands)
	a := st.Snapshot()
	b := st.Snapshot()
	if a.TimestampNanos == 0 || b.TimestampNanos < a.TimestampNanos {
		t.Errorf("expected monotone non-zero timestamps, got %d then %d",
			a.TimestampNanos, b.TimestampNanos)
	}
}
