// SPDX-License-Identifier: MIT
package audio

import (
	"time"

	"github.com/gordonklaus/portaudio"

	"micscope/internal/config"
	"micscope/internal/spectral"
)

// openPortAudioStream is the production streamOpener: it resolves the
// configured input device and opens a mono int32 capture stream whose
// callback feeds the analyser. One callback buffer equals one transform,
// so every fed buffer yields a complete frame.
func openPortAudioStream(cfg *config.Config, a *spectral.Analyser) (streamHandle, error) {
	device, err := InputDevice(cfg.Audio.InputDevice)
	if err != nil {
		return nil, err
	}

	var latency time.Duration
	if cfg.Audio.LowLatency {
		latency = device.DefaultLowInputLatency
	} else {
		latency = device.DefaultHighInputLatency
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: 1,
			Device:   device,
			Latency:  latency,
		},
		FramesPerBuffer: cfg.Audio.FFTSize,
		SampleRate:      cfg.Audio.SampleRate,
	}

	// Feed copies into the analyser workspace without allocating, so the
	// callback stays real-time safe.
	stream, err := portaudio.OpenStream(params, func(in []int32) {
		a.Feed(in)
	})
	if err != nil {
		return nil, err
	}
	return stream, nil
}
