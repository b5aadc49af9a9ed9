// SPDX-License-Identifier: MIT
package spectral

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/dsp/window"
)

// WindowFunc selects the window applied to samples before the transform.
type WindowFunc int

const (
	Hann WindowFunc = iota
	Hamming
	Blackman
	BlackmanNuttall
	BartlettHann
	Lanczos
	Nuttall
)

// ParseWindowFunc converts a name (case-insensitive) to a WindowFunc.
// Unknown names return Hann and an error.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "bartletthann":
		return BartlettHann, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	default:
		return Hann, fmt.Errorf("unknown window function name: '%s'", name)
	}
}

// applyWindow fills coeffs with the coefficients of the selected window.
// The slice is initialized to 1.0 first since the gonum window functions
// multiply in place.
func applyWindow(coeffs []float64, windowType WindowFunc) {
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch windowType {
	case Hamming:
		window.Hamming(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		window.Hann(coeffs)
	}
}
