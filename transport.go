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

package r200

import (
	"time"

	"github.com/HandscanProject/go-r200/internal/syncutil"
)

// Transport is the byte stream connecting the driver to the R200 module.
// Unlike request/response transports, the R200 link is a plain serial
// stream: commands go out as whole frames, response and notification
// bytes trickle back and are reassembled by the Device.
type Transport interface {
	// Write sends raw bytes to the reader.
	Write(data []byte) error

	// Read fills buf with available bytes and returns the count. A read
	// that times out with no data returns (0, nil); the configured read
	// timeout bounds how long it blocks.
	Read(buf []byte) (int, error)

	// SetReadTimeout sets the per-Read blocking limit.
	SetReadTimeout(timeout time.Duration) error

	// Close closes the transport connection.
	Close() error

	// IsConnected returns true if the transport is connected.
	IsConnected() bool

	// Type returns the transport type.
	Type() TransportType
}

// TransportType represents the type of transport
type TransportType string

const (
	// TransportUART represents UART/serial transport.
	TransportUART TransportType = "uart"
	// TransportMock represents a mock transport for testing
	TransportMock TransportType = "mock"
)

// MockTransport provides a scripted in-memory Transport for testing.
// Bytes queued with QueueRead are returned by subsequent Read calls;
// everything written is recorded for inspection.
type MockTransport struct {
	writeErr  error
	readErr   error
	rx        []byte
	writes    [][]byte
	readChunk int
	timeout   time.Duration
	mu        syncutil.Mutex
	connected bool
}

// NewMockTransport creates a new mock transport
func NewMockTransport() *MockTransport {
	return &MockTransport{
		connected: true,
		timeout:   50 * time.Millisecond,
	}
}

// Write implements Transport
func (m *MockTransport) Write(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return NewTransportError("Write", "mock", ErrTransportClosed, ErrorTypePermanent)
	}
	if m.writeErr != nil {
		return m.writeErr
	}
	recorded := make([]byte, len(data))
	copy(recorded, data)
	m.writes = append(m.writes, recorded)
	return nil
}

// Read implements Transport. It drains queued bytes, honoring the
// configured chunk size so tests can exercise fragmented delivery.
func (m *MockTransport) Read(buf []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return 0, NewTransportError("Read", "mock", ErrTransportClosed, ErrorTypePermanent)
	}
	if m.readErr != nil {
		return 0, m.readErr
	}
	if len(m.rx) == 0 {
		// Simulates a read timeout with no data.
		return 0, nil
	}

	n := len(m.rx)
	if n > len(buf) {
		n = len(buf)
	}
	if m.readChunk > 0 && n > m.readChunk {
		n = m.readChunk
	}
	copy(buf, m.rx[:n])
	m.rx = m.rx[n:]
	return n, nil
}

// SetReadTimeout implements Transport
func (m *MockTransport) SetReadTimeout(timeout time.Duration) error {
	m.mu.Lock()
	m.timeout = timeout
	m.mu.Unlock()
	return nil
}

// Close implements Transport
func (m *MockTransport) Close() error {
	m.mu.Lock()
	m.connected = false
	m.mu.Unlock()
	return nil
}

// IsConnected implements Transport
func (m *MockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Type implements Transport
func (*MockTransport) Type() TransportType {
	return TransportMock
}

// Test helper methods

// QueueRead appends bytes to be returned by subsequent Read calls
func (m *MockTransport) QueueRead(data []byte) {
	m.mu.Lock()
	m.rx = append(m.rx, data...)
	m.mu.Unlock()
}

// SetReadChunk limits how many bytes a single Read returns, simulating
// a slow serial line delivering frames in fragments
func (m *MockTransport) SetReadChunk(n int) {
	m.mu.Lock()
	m.readChunk = n
	m.mu.Unlock()
}

// SetWriteError injects an error for subsequent Write calls
func (m *MockTransport) SetWriteError(err error) {
	m.mu.Lock()
	m.writeErr = err
	m.mu.Unlock()
}

// SetReadError injects an error for subsequent Read calls
func (m *MockTransport) SetReadError(err error) {
	m.mu.Lock()
	m.readErr = err
	m.mu.Unlock()
}

// Writes returns every buffer passed to Write, in order
func (m *MockTransport) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.writes))
	copy(out, m.writes)
	return out
}

// WrittenBytes returns all written bytes concatenated
func (m *MockTransport) WrittenBytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []byte
	for _, w := range m.writes {
		out = append(out, w...)
	}
	return out
}

// Reset clears recorded writes and queued reads and reconnects
func (m *MockTransport) Reset() {
	m.mu.Lock()
	m.writes = nil
	m.rx = nil
	m.readErr = nil
	m.writeErr = nil
	m.connected = true
	m.mu.Unlock()
}
