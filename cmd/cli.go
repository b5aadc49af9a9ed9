// SPDX-License-Identifier: MIT

// Package cmd parses the command line into a runtime configuration.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"micscope/internal/config"
	"micscope/pkg/build"
)

// ParseArgs loads the configuration (file and environment first) and
// layers command line flags on top. Flag defaults are the loaded values,
// so flags win over file and environment.
func ParseArgs() (*config.Config, error) {
	buildInfo := build.GetFlags()

	options, err := config.LoadConfig(os.Getenv("MICSCOPE_CONFIG"))
	if err != nil {
		return nil, err
	}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Live microphone frequency, volume, and spectral envelope metrics",
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio input devices",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = "list"
		},
	}
	rootCmd.AddCommand(listCmd)

	// Audio device configuration
	rootCmd.PersistentFlags().IntVarP(&options.Audio.InputDevice, "device", "d", options.Audio.InputDevice,
		"Input device ID. Use 'list' to see available devices.")
	rootCmd.PersistentFlags().Float64VarP(&options.Audio.SampleRate, "sample-rate", "s", options.Audio.SampleRate,
		"Sample rate in Hertz (Hz)")
	rootCmd.PersistentFlags().IntVarP(&options.Audio.FFTSize, "fft-size", "f", options.Audio.FFTSize,
		"Spectral transform size in samples (power of 2)")
	rootCmd.PersistentFlags().BoolVarP(&options.Audio.LowLatency, "low-latency", "l", options.Audio.LowLatency,
		"Request low latency mode from the input device")

	// Analysis configuration
	rootCmd.PersistentFlags().IntVarP(&options.Analysis.Bands, "bands", "b", options.Analysis.Bands,
		"Number of spectral envelope bands")
	rootCmd.PersistentFlags().IntVar(&options.Analysis.RefreshRate, "refresh", options.Analysis.RefreshRate,
		"Analysis cycles per second")

	// Transport configuration
	rootCmd.PersistentFlags().BoolVar(&options.Transport.WSEnabled, "ws", options.Transport.WSEnabled,
		"Serve metric snapshots over WebSocket")
	rootCmd.PersistentFlags().StringVar(&options.Transport.WSAddr, "ws-addr", options.Transport.WSAddr,
		"WebSocket listen address")
	rootCmd.PersistentFlags().BoolVar(&options.Transport.UDPEnabled, "udp", options.Transport.UDPEnabled,
		"Send binary metric packets over UDP")
	rootCmd.PersistentFlags().StringVar(&options.Transport.UDPTargetAddress, "udp-target", options.Transport.UDPTargetAddress,
		"UDP target address (host:port)")

	// Runtime configuration
	rootCmd.PersistentFlags().BoolVar(&options.Headless, "headless", options.Headless,
		"Run without the terminal meter view")
	rootCmd.PersistentFlags().BoolVarP(&options.Debug, "verbose", "v", options.Debug,
		"Show verbose output")

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	if err := options.Validate(); err != nil {
		return nil, err
	}

	return options, nil
}
