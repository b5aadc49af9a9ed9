// SPDX-License-Identifier: MIT

/*
Package analysis reduces spectral magnitude frames into presentation
metrics and drives the poll → reduce → publish cycle.

The Reducer is a pure function over one frame; the Loop schedules it at
display-refresh cadence and owns the Idle/Running/Cancelling lifecycle.
*/
package analysis

import (
	"fmt"
	"math"
)

// Metrics is one reduced snapshot of the live signal. Volume and band
// values are relative display units scaled by configurable factors, not
// calibrated dB SPL.
type Metrics struct {
	FrequencyHz int       `json:"frequency"` // Dominant frequency, rounded Hz
	Volume      int       `json:"volume"`    // Relative loudness, rounded
	Bands       []float64 `json:"bands"`     // Spectral envelope, each in [0,100]
}

// NewMetrics returns zero-valued metrics: frequency 0, volume at floor,
// all bands 0. These are the published defaults outside a session.
func NewMetrics(bandCount int) Metrics {
	return Metrics{Bands: make([]float64, bandCount)}
}

// Clone returns a deep copy so holders and observers never share the
// bands slice.
func (m Metrics) Clone() Metrics {
	c := m
	c.Bands = make([]float64, len(m.Bands))
	copy(c.Bands, m.Bands)
	return c
}

// Reducer converts a magnitude frame into Metrics. It holds only
// immutable calibration values and is safe to share.
type Reducer struct {
	sampleRate  float64
	bandCount   int
	volumeScale float64
	bandScale   float64
}

// NewReducer creates a Reducer for the given sample rate and band count.
func NewReducer(sampleRate float64, bandCount int, volumeScale, bandScale float64) (*Reducer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}
	if bandCount <= 0 {
		return nil, fmt.Errorf("band count must be positive, got %d", bandCount)
	}
	if volumeScale <= 0 || bandScale <= 0 {
		return nil, fmt.Errorf("scale factors must be positive")
	}
	return &Reducer{
		sampleRate:  sampleRate,
		bandCount:   bandCount,
		volumeScale: volumeScale,
		bandScale:   bandScale,
	}, nil
}

// BandCount returns the configured number of envelope bands.
func (r *Reducer) BandCount() int {
	return r.bandCount
}

// Reduce computes Metrics from one magnitude frame.
//
//   - Volume: mean absolute magnitude × volumeScale, rounded.
//   - FrequencyHz: argmax bin mapped via i*(sampleRate/2)/len(frame),
//     rounded; ties resolve to the lowest index.
//   - Bands: len(frame)/bandCount bins per band (truncating division,
//     tail remainder ignored), mean absolute magnitude × bandScale,
//     clamped to [0,100].
//
// A nil, empty, or shorter-than-bandCount frame yields no update: prev is
// returned unchanged with ok=false. Reduce never panics on malformed
// input.
func (r *Reducer) Reduce(frame []float64, prev Metrics) (m Metrics, ok bool) {
	n := len(frame)
	if n == 0 || n < r.bandCount {
		return prev, false
	}

	m = Metrics{Bands: make([]float64, r.bandCount)}

	var sum float64
	peakIdx := 0
	peakVal := math.Abs(frame[0])
	for i, v := range frame {
		abs := math.Abs(v)
		sum += abs
		if abs > peakVal {
			peakVal = abs
			peakIdx = i
		}
	}

	m.Volume = int(math.Round(finite(sum/float64(n)) * r.volumeScale))
	m.FrequencyHz = int(math.Round(float64(peakIdx) * (r.sampleRate / 2) / float64(n)))

	groupSize := n / r.bandCount
	for b := 0; b < r.bandCount; b++ {
		var bandSum float64
		start := b * groupSize
		for i := start; i < start+groupSize; i++ {
			bandSum += math.Abs(frame[i])
		}
		v := finite(bandSum/float64(groupSize)) * r.bandScale
		m.Bands[b] = clamp(v, 0, 100)
	}

	return m, true
}

// finite maps NaN and infinities to 0 so published metrics stay finite
// even on corrupt frames.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
