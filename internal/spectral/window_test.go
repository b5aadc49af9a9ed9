// SPDX-License-Identifier: MIT
package spectral

import "testing"

func TestParseWindowFunc(t *testing.T) {
	cases := []struct {
		name string
		want WindowFunc
	}{
		{"hann", Hann},
		{"Hanning", Hann},
		{"HAMMING", Hamming},
		{"blackman", Blackman},
		{"blackmannuttall", BlackmanNuttall},
		{"bartletthann", BartlettHann},
		{"lanczos", Lanczos},
		{"nuttall", Nuttall},
	}
	for _, tc := range cases {
		got, err := ParseWindowFunc(tc.name)
		if err != nil {
			t.Errorf("%q: unexpected error: %v", tc.name, err)
		}
		if got != tc.want {
			t.Errorf("%q: expected %d, got %d", tc.name, tc.want, got)
		}
	}

	got, err := ParseWindowFunc("rectangular")
	if err == nil {
		t.Error("expected error for unknown window name")
	}
	if got != Hann {
		t.Errorf("unknown name should fall back to Hann, got %d", got)
	}
}

func TestApplyWindowEndpoints(t *testing.T) {
	coeffs := make([]float64, 64)
	applyWindow(coeffs, Hann)

	// Hann tapers to zero at the edges and peaks mid-buffer.
	if coeffs[0] > 1e-9 || coeffs[len(coeffs)-1] > 1e-9 {
		t.Errorf("expected near-zero edges, got %f and %f", coeffs[0], coeffs[len(coeffs)-1])
	}
	mid := coeffs[len(coeffs)/2]
	if mid < 0.9 || mid > 1.0 {
		t.Errorf("expected mid coefficient near 1, got %f", mid)
	}
}
