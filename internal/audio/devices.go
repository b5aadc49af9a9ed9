// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"

	"micscope/internal/config"
)

// Initialize sets up the PortAudio subsystem. Must be called before any
// audio operations and paired with a Terminate call.
func Initialize() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

// Terminate shuts down the PortAudio subsystem. Defer immediately after
// Initialize.
func Terminate() error {
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// InputDevice resolves the input device for the given device ID.
// config.MinDeviceID (-1) selects the system default input device.
func InputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	if deviceID == config.MinDeviceID {
		device, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, err
		}
		return device, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	if deviceID < 0 || deviceID >= len(devices) {
		return nil, fmt.Errorf("invalid device ID: %d", deviceID)
	}
	return devices[deviceID], nil
}

// ListDevices prints all available audio devices with their channel
// counts, default sample rates, and latency ranges.
func ListDevices() error {
	devices, err := portaudio.Devices()
	if err != nil {
		return err
	}

	fmt.Printf("\nAvailable Audio Devices\n\n")

	for i, device := range devices {
		deviceType := ""
		switch {
		case device.MaxInputChannels > 0 && device.MaxOutputChannels > 0:
			deviceType = "Input/Output"
		case device.MaxInputChannels > 0:
			deviceType = "Input"
		case device.MaxOutputChannels > 0:
			deviceType = "Output"
		}

		fmt.Printf("[%d] %s (%s)\n", i, device.Name, deviceType)
		fmt.Printf("    Input channels: %d, Output channels: %d\n",
			device.MaxInputChannels, device.MaxOutputChannels)
		fmt.Printf("    Default sample rate: %.0f Hz\n", device.DefaultSampleRate)
		fmt.Printf("    Latency: Low=%.2fms, High=%.2fms\n",
			device.DefaultLowInputLatency.Seconds()*1000,
			device.DefaultHighInputLatency.Seconds()*1000)
		fmt.Println()
	}

	return nil
}
