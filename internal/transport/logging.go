// SPDX-License-Identifier: MIT
package transport

import (
	applog "micscope/internal/log"
)

// LoggingTransport implements Transport by logging snapshots at debug
// level. Used in debug mode as a headless observer.
type LoggingTransport struct{}

// NewLoggingTransport creates a LoggingTransport.
func NewLoggingTransport() *LoggingTransport {
	applog.Infof("Transport: using logging transport")
	return &LoggingTransport{}
}

// Send logs the snapshot. Never fails.
func (lt *LoggingTransport) Send(data any) error {
	applog.Debugf("Transport: %+v", data)
	return nil
}

// Close is a no-op.
func (lt *LoggingTransport) Close() error {
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
