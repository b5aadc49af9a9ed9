// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"

	applog "micscope/internal/log"
	"micscope/internal/state"
)

/*
Metric packet layout (BigEndian):

	+------------------+---------+--------------------------------------+
	| Field            | Type    | Description                          |
	+------------------+---------+--------------------------------------+
	| Sequence Number  | uint32  | Monotonically increasing             |
	| Timestamp        | int64   | Nanoseconds since epoch              |
	| Frequency        | uint32  | Dominant frequency (Hz)              |
	| Volume           | int32   | Relative loudness                    |
	| Recording        | uint8   | 1 while a session is live            |
	| Band Count       | uint16  | Number of band values (N)            |
	| Bands            | N×f32   | Envelope values in [0,100]           |
	+------------------+---------+--------------------------------------+
*/

// MetricsTransport packs presentation snapshots into binary packets and
// sends them through a Sender. Implements the transport.Transport
// interface; Send expects a state.Snapshot.
type MetricsTransport struct {
	sender      *Sender
	sequenceNum uint32

	// Reusable buffers; the broadcaster calls Send from one goroutine.
	f32Buffer    []float32
	packetBuffer *bytes.Buffer
}

// NewMetricsTransport creates a MetricsTransport over sender, sized for
// bandCount envelope values.
func NewMetricsTransport(sender *Sender, bandCount int) (*MetricsTransport, error) {
	if sender == nil {
		return nil, fmt.Errorf("metrics transport: sender cannot be nil")
	}
	if bandCount <= 0 {
		return nil, fmt.Errorf("metrics transport: band count must be positive, got %d", bandCount)
	}
	return &MetricsTransport{
		sender:       sender,
		f32Buffer:    make([]float32, bandCount),
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Send packs the snapshot and transmits it as one packet.
func (t *MetricsTransport) Send(data any) error {
	snap, ok := data.(state.Snapshot)
	if !ok {
		return fmt.Errorf("metrics transport: unexpected payload type %T", data)
	}

	t.sequenceNum++
	packet, err := t.encode(snap)
	if err != nil {
		return fmt.Errorf("metrics transport: %w", err)
	}

	if err := t.sender.Send(packet); err != nil {
		return err
	}
	applog.Debugf("UDP metrics: sent packet %d (%d bytes)", t.sequenceNum, len(packet))
	return nil
}

// encode writes the packet for snap into the reusable buffer and returns
// its bytes, valid until the next encode.
func (t *MetricsTransport) encode(snap state.Snapshot) ([]byte, error) {
	if len(t.f32Buffer) != len(snap.Metrics.Bands) {
		t.f32Buffer = make([]float32, len(snap.Metrics.Bands))
	}
	for i, v := range snap.Metrics.Bands {
		t.f32Buffer[i] = float32(v)
	}

	recording := uint8(0)
	if snap.IsRecording {
		recording = 1
	}

	t.packetBuffer.Reset()
	err := binary.Write(t.packetBuffer, binary.BigEndian, t.sequenceNum)
	if err == nil {
		err = binary.Write(t.packetBuffer, binary.BigEndian, snap.TimestampNanos)
	}
	if err == nil {
		err = binary.Write(t.packetBuffer, binary.BigEndian, uint32(snap.Metrics.FrequencyHz))
	}
	if err == nil {
		err = binary.Write(t.packetBuffer, binary.BigEndian, int32(snap.Metrics.Volume))
	}
	if err == nil {
		err = binary.Write(t.packetBuffer, binary.BigEndian, recording)
	}
	if err == nil {
		err = binary.Write(t.packetBuffer, binary.BigEndian, uint16(len(t.f32Buffer)))
	}
	if err == nil {
		err = binary.Write(t.packetBuffer, binary.BigEndian, t.f32Buffer)
	}
	if err != nil {
		return nil, fmt.Errorf("packing packet: %w", err)
	}
	return t.packetBuffer.Bytes(), nil
}

// Close closes the underlying sender.
func (t *MetricsTransport) Close() error {
	return t.sender.Close()
}
