// Copyright 2026 The Handscan Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package uart provides a serial transport for the R200 reader module.
//
// The R200 speaks 115200 8N1 over a TTL UART. Reads are non-blocking
// with a short timeout so the byte pump above this layer can interleave
// receive polling with outgoing commands on the same port.
package uart

import (
	"fmt"
	"time"

	"go.bug.st/serial"

	r200 "github.com/HandscanProject/go-r200"
)

const (
	baudRate = 115200

	// defaultReadTimeout keeps Read calls short so callers polling
	// byte-by-byte stay responsive without spinning.
	defaultReadTimeout = 50 * time.Millisecond
)

// Transport implements r200.Transport over a serial port.
type Transport struct {
	port     serial.Port
	portName string
	closed   bool
}

// New opens portName at 115200 8N1 and returns a ready transport.
func New(portName string) (*Transport, error) {
	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, r200.NewTransportError("open", portName, err, r200.ErrorTypeTransient)
	}

	if err := port.SetReadTimeout(defaultReadTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", portName, err)
	}

	// Discard anything the module sent while nobody was listening,
	// otherwise the first decode starts mid-frame.
	_ = port.ResetInputBuffer()

	return &Transport{port: port, portName: portName}, nil
}

// NewFromPort wraps an already-open serial port. Intended for tests and
// for callers that need custom port settings.
func NewFromPort(port serial.Port, portName string) *Transport {
	return &Transport{port: port, portName: portName}
}

// Write sends data to the reader.
func (t *Transport) Write(data []byte) error {
	if t.closed {
		return r200.ErrTransportClosed
	}

	n, err := t.port.Write(data)
	if err != nil {
		return r200.NewTransportError("write", t.portName, err, r200.ErrorTypeTransient)
	}
	if n < len(data) {
		return r200.NewTransportError("write", t.portName,
			fmt.Errorf("short write: %d of %d bytes", n, len(data)), r200.ErrorTypeTransient)
	}
	return nil
}

// Read fills buf with available bytes. A read timeout with no data
// returns (0, nil) per the r200.Transport contract.
func (t *Transport) Read(buf []byte) (int, error) {
	if t.closed {
		return 0, r200.ErrTransportClosed
	}

	n, err := t.port.Read(buf)
	if err != nil {
		return n, r200.NewTransportError("read", t.portName, err, r200.ErrorTypeTransient)
	}
	return n, nil
}

// SetReadTimeout adjusts how long Read blocks waiting for data.
func (t *Transport) SetReadTimeout(timeout time.Duration) error {
	if t.closed {
		return r200.ErrTransportClosed
	}
	if err := t.port.SetReadTimeout(timeout); err != nil {
		return r200.NewTransportError("set_timeout", t.portName, err, r200.ErrorTypePermanent)
	}
	return nil
}

// Close releases the serial port. Safe to call more than once.
func (t *Transport) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	if err := t.port.Close(); err != nil {
		return r200.NewTransportError("close", t.portName, err, r200.ErrorTypePermanent)
	}
	return nil
}

// IsConnected reports whether the port is still open.
func (t *Transport) IsConnected() bool {
	return !t.closed
}

// Type returns the transport type.
func (t *Transport) Type() r200.TransportType {
	return r200.TransportUART
}
