// SPDX-License-Identifier: MIT

// Package transport carries presentation snapshots to external observers.
// Implementations must be thread-safe and must never block the caller for
// long; slow observers drop updates rather than stall the pipeline.
package transport

// Transport is a generic sink for presentation snapshots.
type Transport interface {
	Send(data any) error
	Close() error
}
