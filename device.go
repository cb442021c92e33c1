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

// Package r200 drives the R200 UHF RFID reader module over a serial
// byte stream. It reassembles the reader's binary frames, decodes tag
// notifications, and issues poll, write and version commands.
package r200

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/HandscanProject/go-r200/internal/frame"
)

// DeviceConfig contains configuration options for the Device
type DeviceConfig struct {
	// AckTimeout bounds how long WaitWriteOutcome pumps the stream for a
	// write acknowledgement before reporting a timeout.
	AckTimeout time.Duration
	// VersionTimeout bounds how long Version waits for the reply frame.
	VersionTimeout time.Duration
	// ValidateChecksum enables receive-side checksum verification.
	// The reader firmware in the field computes checksums when sending
	// but never verifies them on receipt, so this defaults to off to
	// keep wire behavior identical; enable it on noisy links.
	ValidateChecksum bool
}

// DefaultDeviceConfig returns default device configuration
func DefaultDeviceConfig() *DeviceConfig {
	return &DeviceConfig{
		AckTimeout:     DefaultAckTimeout,
		VersionTimeout: DefaultVersionTimeout,
	}
}

// Option configures a Device during New
type Option func(*Device) error

// WithConfig replaces the entire device configuration
func WithConfig(config *DeviceConfig) Option {
	return func(d *Device) error {
		if config == nil {
			return fmt.Errorf("%w: nil config", ErrInvalidParameter)
		}
		d.config = config
		return nil
	}
}

// WithAckTimeout sets the write acknowledgement window
func WithAckTimeout(timeout time.Duration) Option {
	return func(d *Device) error {
		d.config.AckTimeout = timeout
		return nil
	}
}

// WithChecksumValidation enables receive-side checksum verification.
// Frames failing verification are discarded silently, like any other
// malformed frame.
func WithChecksumValidation() Option {
	return func(d *Device) error {
		d.config.ValidateChecksum = true
		return nil
	}
}

// WriteStatus is the tri-state result of the last EPC write attempt
type WriteStatus int

const (
	// WritePending means no acknowledgement or error frame has arrived yet.
	WritePending WriteStatus = iota
	// WriteSuccess means the reader acknowledged the write.
	WriteSuccess
	// WriteFailed means the reader answered with an error frame.
	WriteFailed
)

// WriteOutcome holds the status of the last write attempt and, when
// failed, the reader's status code.
type WriteOutcome struct {
	Status WriteStatus
	Code   byte
}

// Err converts a failed outcome into a typed error, nil otherwise.
func (o WriteOutcome) Err() error {
	if o.Status != WriteFailed {
		return nil
	}
	return &ReaderError{Command: "WriteEPC", Code: o.Code}
}

// Device drives one R200 module over a Transport. It owns the receive
// buffer and the byte-accumulation state machine.
//
// Thread Safety: Device is NOT thread-safe. All methods must be called
// from a single goroutine or serialized externally. The coord package
// provides the transport lease that arbitrates poller and writer access.
type Device struct {
	transport   Transport
	config      *DeviceConfig
	lastVersion []byte
	buf         [frame.MaxFrameLength]byte
	idx         int
	outcome     WriteOutcome
}

// New creates a new R200 device driver on the given transport
func New(transport Transport, opts ...Option) (*Device, error) {
	device := &Device{
		transport: transport,
		config:    DefaultDeviceConfig(),
	}

	for _, opt := range opts {
		if err := opt(device); err != nil {
			return nil, err
		}
	}

	return device, nil
}

// Transport returns the underlying transport
func (d *Device) Transport() Transport {
	return d.transport
}

// WriteOutcome returns the result of the last write attempt. It must be
// reset (RequestWriteEPC does this) before every new write command so a
// stale value cannot read as a false success or failure.
func (d *Device) WriteOutcome() WriteOutcome {
	return d.outcome
}

// ResetWriteOutcome clears the write result back to pending
func (d *Device) ResetWriteOutcome() {
	d.outcome = WriteOutcome{}
}

// Feed advances the byte-accumulation state machine by one byte and
// returns a decoded event once a complete frame has been dispatched.
// The single state variable is the buffer fill index:
//
//   - index 0: discard anything that is not the head marker (sync)
//   - otherwise: accumulate; a buffer filling to capacity without a
//     complete frame resets to sync, so noise can never overflow it
//   - end marker with at least the minimum frame length: dispatch
//
// Feed never blocks; each call is one bounded synchronous step.
func (d *Device) Feed(b byte) (Event, bool) {
	if d.idx == 0 && b != frame.Head {
		return Event{}, false
	}

	d.buf[d.idx] = b
	d.idx++

	if b == frame.End && d.idx >= frame.MinFrameLength {
		if ev, ok := d.dispatch(); ok {
			return ev, true
		}
	}

	// Overflow protection: a malformed or noisy stream must never grow
	// the buffer unbounded.
	if d.idx >= len(d.buf) {
		d.idx = 0
	}
	return Event{}, false
}

// dispatch routes one accumulated frame by (type, command). It resets
// the fill index for everything except a frame whose declared length
// says more bytes are still in flight (an end-marker byte inside the
// parameter section).
func (d *Device) dispatch() (Event, bool) {
	f, err := frame.Decode(d.buf[:d.idx])
	if err != nil {
		if errors.Is(err, frame.ErrIncomplete) {
			// An end-marker byte inside the payload; the frame continues.
			return Event{}, false
		}
		Debugf("discarding malformed frame: %v", err)
		d.idx = 0
		return Event{}, false
	}

	if d.config.ValidateChecksum && !f.ChecksumValid() {
		Debugf("discarding frame with bad checksum: cmd=0x%02X", f.Command)
		d.idx = 0
		return Event{}, false
	}

	switch {
	case f.Type == frame.TypeNotification && f.Command == cmdSinglePoll:
		tag, perr := parseTagNotification(f)
		d.idx = 0
		if perr != nil {
			Debugf("discarding tag notification: %v", perr)
			return Event{}, false
		}
		return Event{Kind: EventTagDecoded, Tag: tag}, true

	case f.Command == cmdWriteEPC:
		d.outcome = WriteOutcome{Status: WriteSuccess}
		d.idx = 0
		return Event{Kind: EventWriteAck}, true

	case f.Command == cmdErrorFrame:
		code := byte(0)
		if len(f.Params) > 0 {
			code = f.Params[0]
		}
		d.outcome = WriteOutcome{Status: WriteFailed, Code: code}
		d.idx = 0
		return Event{Kind: EventWriteError, Code: code}, true

	case f.Command == cmdGetVersion:
		raw := make([]byte, d.idx)
		copy(raw, d.buf[:d.idx])
		d.lastVersion = raw
		d.idx = 0
		return Event{Kind: EventVersionInfo, Raw: raw}, true
	}

	// Unrecognized (type, command): discard silently and resynchronize.
	d.idx = 0
	return Event{}, false
}

// ProcessIncoming drains the transport's available bytes through the
// state machine. It returns a Tag as soon as one notification decodes,
// leaving any further buffered bytes for the next call, and (nil, nil)
// once the stream is exhausted for this cycle. Write acknowledgements
// and version replies encountered along the way update the device state
// but do not stop the drain.
func (d *Device) ProcessIncoming(ctx context.Context) (*Tag, error) {
	var b [1]byte
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		n, err := d.transport.Read(b[:])
		if err != nil {
			return nil, fmt.Errorf("reading from transport: %w", err)
		}
		if n == 0 {
			return nil, nil
		}

		if ev, ok := d.Feed(b[0]); ok && ev.Kind == EventTagDecoded {
			return ev.Tag, nil
		}
	}
}

// WaitWriteOutcome pumps the stream until the pending write resolves or
// the timeout elapses. A timeout is reported as a distinct failure from
// a reader error frame and is never treated as success.
func (d *Device) WaitWriteOutcome(ctx context.Context, timeout time.Duration) (WriteOutcome, error) {
	deadline := time.Now().Add(timeout)
	var b [1]byte
	for {
		if o := d.outcome; o.Status != WritePending {
			return o, nil
		}

		select {
		case <-ctx.Done():
			return WriteOutcome{}, ctx.Err()
		default:
		}
		if time.Now().After(deadline) {
			return WriteOutcome{}, NewTimeoutError("WaitWriteOutcome", string(d.transport.Type()))
		}

		n, err := d.transport.Read(b[:])
		if err != nil {
			return WriteOutcome{}, fmt.Errorf("reading from transport: %w", err)
		}
		if n == 0 {
			if err := waitEmptyRead(ctx); err != nil {
				return WriteOutcome{}, err
			}
			continue
		}
		d.Feed(b[0])
	}
}

// waitEmptyRead suspends briefly after a read returned no bytes, so
// response waits never spin regardless of the transport's pacing.
func waitEmptyRead(ctx context.Context) error {
	timer := time.NewTimer(emptyReadDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Version requests the hardware version and waits for the reply frame.
// The raw frame bytes are returned for diagnostics.
func (d *Device) Version(ctx context.Context) ([]byte, error) {
	d.lastVersion = nil
	if err := d.RequestVersion(); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(d.config.VersionTimeout)
	var b [1]byte
	for {
		if d.lastVersion != nil {
			return d.lastVersion, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if time.Now().After(deadline) {
			return nil, NewTimeoutError("Version", string(d.transport.Type()))
		}

		n, err := d.transport.Read(b[:])
		if err != nil {
			return nil, fmt.Errorf("reading from transport: %w", err)
		}
		if n == 0 {
			if err := waitEmptyRead(ctx); err != nil {
				return nil, err
			}
			continue
		}
		d.Feed(b[0])
	}
}
