// SPDX-License-Identifier: MIT

// Package config defines the runtime configuration for the capture and
// analysis pipeline. Values come from built-in defaults, then an optional
// YAML file, then environment overrides, then command line flags.
package config

import (
	"fmt"
	"time"

	"micscope/pkg/bitint"
)

// Defaults and limits for the audio pipeline.
const (
	DefaultInputDevice = MinDeviceID // System default input device
	DefaultSampleRate  = 44100       // CD-quality audio (Hz)
	DefaultFFTSize     = 2048        // Transform size in samples (power of 2)
	DefaultLowLatency  = false       // Standard latency mode

	// Reduction defaults. The scale factors are presentation tuning with
	// no physical derivation; volume and band values are relative units,
	// not calibrated dB SPL.
	DefaultBands       = 32     // Spectral envelope band count
	DefaultVolumeScale = 1000.0 // Mean-magnitude multiplier for volume
	DefaultBandScale   = 500.0  // Mean-magnitude multiplier per band
	DefaultRefreshRate = 60     // Analysis cycles per second

	// Hardware and processing limits.
	MinDeviceID   = -1     // -1 selects the system default device
	MinSampleRate = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate = 192000 // Maximum supported sample rate (Hz)
	MaxFFTSize    = 8192   // Maximum transform size (power of 2)
)

// Config holds all runtime options.
type Config struct {
	Debug    bool   `yaml:"debug"`     // Verbose logging and debug transports
	LogLevel string `yaml:"log_level"` // "debug", "info", "warn", "error"

	Audio     AudioConfig     `yaml:"audio"`     // Capture settings
	Analysis  AnalysisConfig  `yaml:"analysis"`  // Metric reduction settings
	Transport TransportConfig `yaml:"transport"` // Observer transports

	// Runtime-only options set by the CLI, never loaded from file.
	Command  string `yaml:"-"` // One-off command ("list", "")
	Headless bool   `yaml:"-"` // Run without the terminal meter view
}

// AudioConfig holds capture settings.
type AudioConfig struct {
	InputDevice int     `yaml:"input_device"` // PortAudio device index (-1 for default)
	SampleRate  float64 `yaml:"sample_rate"`  // Sample rate in Hz
	FFTSize     int     `yaml:"fft_size"`     // Transform size in samples (power of 2)
	LowLatency  bool    `yaml:"low_latency"`  // Request low latency from the device
}

// AnalysisConfig holds metric reduction settings.
type AnalysisConfig struct {
	Bands       int     `yaml:"bands"`        // Number of spectral envelope bands
	VolumeScale float64 `yaml:"volume_scale"` // Volume magnification factor
	BandScale   float64 `yaml:"band_scale"`   // Band magnification factor
	RefreshRate int     `yaml:"refresh_rate"` // Analysis cycles per second
}

// TransportConfig holds observer transport settings.
type TransportConfig struct {
	WSEnabled        bool          `yaml:"ws_enabled"`         // Serve metric snapshots over WebSocket
	WSAddr           string        `yaml:"ws_addr"`            // WebSocket listen address (e.g. ":8080")
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Send binary metric packets over UDP
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target for UDP packets (host:port)
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between UDP packets
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Debug:    false,
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice: DefaultInputDevice,
			SampleRate:  DefaultSampleRate,
			FFTSize:     DefaultFFTSize,
			LowLatency:  DefaultLowLatency,
		},
		Analysis: AnalysisConfig{
			Bands:       DefaultBands,
			VolumeScale: DefaultVolumeScale,
			BandScale:   DefaultBandScale,
			RefreshRate: DefaultRefreshRate,
		},
		Transport: TransportConfig{
			WSEnabled:        false,
			WSAddr:           ":8080",
			UDPEnabled:       false,
			UDPTargetAddress: "127.0.0.1:9090",
			UDPSendInterval:  16 * time.Millisecond, // ~60Hz
		},
	}
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if !bitint.IsPowerOfTwo(c.Audio.FFTSize) {
		return fmt.Errorf("audio.fft_size must be a power of 2, got %d", c.Audio.FFTSize)
	}
	if c.Audio.FFTSize > MaxFFTSize {
		return fmt.Errorf("audio.fft_size %d exceeds maximum %d", c.Audio.FFTSize, MaxFFTSize)
	}
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate %.0f outside supported range [%d, %d]",
			c.Audio.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if c.Audio.InputDevice < MinDeviceID {
		return fmt.Errorf("audio.input_device must be >= %d, got %d", MinDeviceID, c.Audio.InputDevice)
	}
	if c.Analysis.Bands <= 0 {
		return fmt.Errorf("analysis.bands must be positive, got %d", c.Analysis.Bands)
	}
	if c.Analysis.Bands > c.Audio.FFTSize {
		return fmt.Errorf("analysis.bands %d exceeds fft_size %d", c.Analysis.Bands, c.Audio.FFTSize)
	}
	if c.Analysis.VolumeScale <= 0 || c.Analysis.BandScale <= 0 {
		return fmt.Errorf("analysis scale factors must be positive")
	}
	if c.Analysis.RefreshRate <= 0 {
		return fmt.Errorf("analysis.refresh_rate must be positive, got %d", c.Analysis.RefreshRate)
	}
	if c.Transport.UDPEnabled && c.Transport.UDPSendInterval <= 0 {
		return fmt.Errorf("transport.udp_send_interval must be positive when UDP is enabled")
	}
	return nil
}
