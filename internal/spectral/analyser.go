// SPDX-License-Identifier: MIT

/*
Package spectral turns raw capture buffers into frequency-domain magnitude
frames. The Analyser owns the FFT transform and its preallocated workspace:
the capture callback pushes samples in via Feed, the analysis loop pulls
the latest snapshot out via Poll. Feed never allocates, so it is safe to
call from the real-time audio callback.
*/
package spectral

import (
	"errors"
	"fmt"
	"math/cmplx"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"

	"micscope/pkg/bitint"
)

// ErrNotOpen is returned by Poll after the analyser has been closed.
// Polling a closed analyser is a contract violation by the caller.
var ErrNotOpen = errors.New("spectral: analyser is not open")

// workspace holds the preallocated transform buffers. The mutex guards the
// magnitude buffer, which is written by the capture callback and read by
// the analysis loop.
type workspace struct {
	input     []float64    // Windowed, normalized input samples
	fftOutput []complex128 // Complex FFT output
	magnitude []float64    // Magnitude spectrum (fftSize/2 + 1 bins)
	window    []float64    // Precomputed window coefficients
	mu        sync.RWMutex
}

// Analyser computes and holds the most recent magnitude spectrum of the
// input signal. It is the frame source for the analysis loop: one Feed
// produces one snapshot, one Poll reads it.
type Analyser struct {
	fftSize    int
	sampleRate float64
	fft        *fourier.FFT
	ws         workspace

	hasFrame bool // At least one buffer has been fed since open
	closed   bool // Set by Close; both guarded by ws.mu
}

// NewAnalyser creates an Analyser for the given transform size and sample
// rate. fftSize must be a power of 2.
func NewAnalyser(fftSize int, sampleRate float64, windowType WindowFunc) (*Analyser, error) {
	if !bitint.IsPowerOfTwo(fftSize) {
		return nil, fmt.Errorf("fft size must be a power of 2, got %d", fftSize)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}

	windowCoeffs := make([]float64, fftSize)
	applyWindow(windowCoeffs, windowType)

	// Real input of N samples yields N/2 + 1 complex coefficients.
	magnitudeSize := fftSize/2 + 1

	return &Analyser{
		fftSize:    fftSize,
		sampleRate: sampleRate,
		fft:        fourier.NewFFT(fftSize),
		ws: workspace{
			input:     make([]float64, fftSize),
			fftOutput: make([]complex128, magnitudeSize),
			magnitude: make([]float64, magnitudeSize),
			window:    windowCoeffs,
		},
	}, nil
}

// Feed applies the window, runs the transform, and stores the magnitude
// spectrum. Input shorter than the transform size is zero-padded; input
// fed after Close is dropped. No allocations.
func (a *Analyser) Feed(samples []int32) {
	a.ws.mu.Lock()
	defer a.ws.mu.Unlock()

	if a.closed {
		return
	}

	const normFactor = 1.0 / float64(0x80000000) // int32 -> [-1.0, 1.0)
	inputLen := len(samples)
	for i := 0; i < a.fftSize; i++ {
		if i < inputLen {
			a.ws.input[i] = float64(samples[i]) * normFactor * a.ws.window[i]
		} else {
			a.ws.input[i] = 0
		}
	}

	a.fft.Coefficients(a.ws.fftOutput, a.ws.input)
	for i, c := range a.ws.fftOutput {
		a.ws.magnitude[i] = cmplx.Abs(c)
	}
	a.hasFrame = true
}

// Poll returns a copy of the latest magnitude frame. The frame holds the
// lower half-spectrum (fftSize/2 bins, Nyquist dropped) so bin i maps to
// i * (sampleRate/2) / len(frame) Hz uniformly. Before the first buffer
// has been fed, Poll returns a nil frame and nil error: a no-update cycle,
// not a failure. Polling after Close returns ErrNotOpen.
func (a *Analyser) Poll() ([]float64, error) {
	a.ws.mu.RLock()
	defer a.ws.mu.RUnlock()

	if a.closed {
		return nil, ErrNotOpen
	}
	if !a.hasFrame {
		return nil, nil
	}

	frame := make([]float64, a.fftSize/2)
	copy(frame, a.ws.magnitude[:a.fftSize/2])
	return frame, nil
}

// PollInto copies the latest magnitude frame into dst without allocating.
// dst must have length FrameLen. Returns false with nil error when no
// frame is available yet.
func (a *Analyser) PollInto(dst []float64) (bool, error) {
	a.ws.mu.RLock()
	defer a.ws.mu.RUnlock()

	if a.closed {
		return false, ErrNotOpen
	}
	if !a.hasFrame {
		return false, nil
	}
	if len(dst) != a.fftSize/2 {
		return false, fmt.Errorf("destination length %d does not match frame length %d", len(dst), a.fftSize/2)
	}

	copy(dst, a.ws.magnitude[:a.fftSize/2])
	return true, nil
}

// FrameLen returns the length of frames produced by Poll (fftSize/2).
func (a *Analyser) FrameLen() int {
	return a.fftSize / 2
}

// FFTSize returns the configured transform size.
func (a *Analyser) FFTSize() int {
	return a.fftSize
}

// SampleRate returns the configured sample rate in Hz.
func (a *Analyser) SampleRate() float64 {
	return a.sampleRate
}

// FrequencyForBin returns the center frequency (Hz) for a frame bin index.
func (a *Analyser) FrequencyForBin(binIndex int) float64 {
	if binIndex < 0 || binIndex >= a.fftSize/2 {
		return 0.0
	}
	return float64(binIndex) * (a.sampleRate / float64(a.fftSize))
}

// Close releases the analyser. Subsequent Poll calls fail with ErrNotOpen
// and subsequent Feed calls are dropped. Idempotent.
func (a *Analyser) Close() error {
	a.ws.mu.Lock()
	defer a.ws.mu.Unlock()
	a.closed = true
	a.hasFrame = false
	return nil
}
