// SPDX-License-Identifier: MIT

// Package utils provides synthetic signal generators and small helpers
// for exercising the spectral pipeline in tests.
package utils

import "math"

// GenerateSineWave returns size samples of a sine wave at the given
// frequency, scaled to 90% of the int32 range.
func GenerateSineWave(size int, sampleRate, frequency float64) []int32 {
	buffer := make([]int32, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = int32(math.Sin(2*math.Pi*frequency*t) * math.MaxInt32 * 0.9)
	}
	return buffer
}

// GenerateComplexWave returns a 440Hz fundamental with two harmonics,
// scaled to 90% of the int32 range.
func GenerateComplexWave(size int, sampleRate float64) []int32 {
	buffer := make([]int32, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
		buffer[i] = int32(signal * math.MaxInt32 * 0.9)
	}
	return buffer
}

// SpikeFrame returns a magnitude frame of the given length that is zero
// everywhere except index idx, which holds magnitude.
func SpikeFrame(length, idx int, magnitude float64) []float64 {
	frame := make([]float64, length)
	if idx >= 0 && idx < length {
		frame[idx] = magnitude
	}
	return frame
}

// FindPeakBin returns the index of the largest magnitude in
// magnitudes[startBin..endBin].
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}
	if startBin < 0 {
		startBin = 0
	}
	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]
	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}
	return peakBin
}
