// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at path. If path is
// empty, default locations are searched; if no file is found, built-in
// defaults are used. Environment overrides apply after loading, and the
// final configuration is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		candidates := []string{
			"micscope.yaml",
			"config.yaml",
		}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
		if path == "" {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides layers MICSCOPE_* environment variables over the
// loaded configuration. Environment wins over file, flags win over both.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("MICSCOPE_DEBUG"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Debug = b
		}
	}
	if val, ok := os.LookupEnv("MICSCOPE_LOG_LEVEL"); ok {
		c.LogLevel = val
	}
	if val, ok := os.LookupEnv("MICSCOPE_WS_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Transport.WSEnabled = b
		}
	}
	if val, ok := os.LookupEnv("MICSCOPE_WS_ADDR"); ok {
		c.Transport.WSAddr = val
	}
	if val, ok := os.LookupEnv("MICSCOPE_UDP_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = b
		}
	}
	if val, ok := os.LookupEnv("MICSCOPE_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
	}
	if val, ok := os.LookupEnv("MICSCOPE_UDP_SEND_INTERVAL"); ok {
		if d, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = d
		}
	}
}
