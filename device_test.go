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
	"context"
	"testing"
	"time"

	"github.com/HandscanProject/go-r200/internal/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mustFrame builds a wire frame or fails the test
func mustFrame(t *testing.T, frameType, command byte, params []byte) []byte {
	t.Helper()
	data, err := frame.Encode(frameType, command, params)
	require.NoError(t, err)
	return data
}

// tagNotification builds a (0x02, 0x22) notification for the given EPC bytes
func tagNotification(t *testing.T, rssi byte, epc []byte) []byte {
	t.Helper()
	params := []byte{rssi, 0x34, 0x00}
	params = append(params, epc...)
	params = append(params, 0xAB, 0xCD) // tag CRC
	return mustFrame(t, frame.TypeNotification, 0x22, params)
}

func feedAll(d *Device, data []byte) (Event, bool) {
	var last Event
	var got bool
	for _, b := range data {
		if ev, ok := d.Feed(b); ok {
			last = ev
			got = true
		}
	}
	return last, got
}

func TestFeedDecodesTagNotification(t *testing.T) {
	t.Parallel()

	device, err := New(NewMockTransport())
	require.NoError(t, err)

	// PL = 9: RSSI + PC(2) + EPC(2) + CRC(2) means a 2-byte EPC.
	data := tagNotification(t, 0xC5, []byte{0x11, 0x22})

	var events int
	var tag *Tag
	for _, b := range data {
		if ev, ok := device.Feed(b); ok {
			events++
			require.Equal(t, EventTagDecoded, ev.Kind)
			tag = ev.Tag
		}
	}

	require.Equal(t, 1, events, "exactly one event per frame")
	require.NotNil(t, tag)
	assert.True(t, tag.Valid)
	assert.Equal(t, "1122", tag.EPC, "2-byte EPC decodes to 4 uppercase hex characters")
	assert.Equal(t, byte(0xC5), tag.RSSI)
}

func TestFeedNoEventWithoutCompleteFrame(t *testing.T) {
	t.Parallel()

	device, err := New(NewMockTransport())
	require.NoError(t, err)

	data := tagNotification(t, 0xC5, []byte{0x11, 0x22})
	for _, b := range data[:len(data)-1] {
		_, ok := device.Feed(b)
		assert.False(t, ok, "no event before the end marker arrives")
	}
}

func TestFeedDiscardsLeadingNoise(t *testing.T) {
	t.Parallel()

	device, err := New(NewMockTransport())
	require.NoError(t, err)

	stream := []byte{0x00, 0xFF, 0x13, 0x37}
	stream = append(stream, tagNotification(t, 0x80, []byte{0xAB, 0xCD})...)

	ev, ok := feedAll(device, stream)
	require.True(t, ok)
	require.Equal(t, EventTagDecoded, ev.Kind)
	assert.Equal(t, "ABCD", ev.Tag.EPC)
}

func TestFeedOverflowResynchronizes(t *testing.T) {
	t.Parallel()

	device, err := New(NewMockTransport())
	require.NoError(t, err)

	// A head marker followed by noise that never completes a frame must
	// fill to capacity, reset, and leave the driver able to decode the
	// next valid frame.
	_, ok := device.Feed(frame.Head)
	require.False(t, ok)
	for range frame.MaxFrameLength + 16 {
		_, ok := device.Feed(0x42)
		require.False(t, ok)
	}

	ev, ok := feedAll(device, tagNotification(t, 0x70, []byte{0xDE, 0xAD}))
	require.True(t, ok, "driver must resynchronize after overflow")
	assert.Equal(t, "DEAD", ev.Tag.EPC)
}

func TestFeedEndMarkerInsidePayload(t *testing.T) {
	t.Parallel()

	device, err := New(NewMockTransport())
	require.NoError(t, err)

	// An EPC containing the end-marker byte: the premature dispatch sees
	// an incomplete frame and keeps accumulating.
	ev, ok := feedAll(device, tagNotification(t, 0x66, []byte{0xDD, 0x01}))
	require.True(t, ok)
	assert.Equal(t, "DD01", ev.Tag.EPC)
}

func TestFeedWriteAck(t *testing.T) {
	t.Parallel()

	device, err := New(NewMockTransport())
	require.NoError(t, err)

	ev, ok := feedAll(device, mustFrame(t, frame.TypeResponse, 0x49, []byte{0x00}))
	require.True(t, ok)
	assert.Equal(t, EventWriteAck, ev.Kind)
	assert.Equal(t, WriteSuccess, device.WriteOutcome().Status)
}

func TestFeedWriteError(t *testing.T) {
	t.Parallel()

	device, err := New(NewMockTransport())
	require.NoError(t, err)

	ev, ok := feedAll(device, mustFrame(t, frame.TypeResponse, 0xFF, []byte{CodeAccessDenied}))
	require.True(t, ok)
	assert.Equal(t, EventWriteError, ev.Kind)
	assert.Equal(t, CodeAccessDenied, ev.Code)

	outcome := device.WriteOutcome()
	assert.Equal(t, WriteFailed, outcome.Status)
	assert.Equal(t, CodeAccessDenied, outcome.Code)

	var re *ReaderError
	require.ErrorAs(t, outcome.Err(), &re)
	assert.True(t, re.IsAccessDenied())
}

func TestFeedVersionInfo(t *testing.T) {
	t.Parallel()

	device, err := New(NewMockTransport())
	require.NoError(t, err)

	raw := mustFrame(t, frame.TypeResponse, 0x03, []byte("v2.3.3"))
	ev, ok := feedAll(device, raw)
	require.True(t, ok)
	assert.Equal(t, EventVersionInfo, ev.Kind)
	assert.Equal(t, raw, ev.Raw)
}

func TestFeedUnknownFrameDiscardedSilently(t *testing.T) {
	t.Parallel()

	device, err := New(NewMockTransport())
	require.NoError(t, err)

	_, ok := feedAll(device, mustFrame(t, frame.TypeResponse, 0x77, []byte{0x01, 0x02}))
	assert.False(t, ok, "unrecognized (type, command) produces no event")

	// Subsequent valid frames still decode.
	ev, ok := feedAll(device, tagNotification(t, 0x55, []byte{0xBE, 0xEF}))
	require.True(t, ok)
	assert.Equal(t, "BEEF", ev.Tag.EPC)
}

func TestChecksumValidationOptIn(t *testing.T) {
	t.Parallel()

	corrupted := tagNotification(t, 0x42, []byte{0x12, 0x34})
	corrupted[len(corrupted)-2] ^= 0xFF

	// Default: checksum not verified, frame accepted (wire parity with
	// the shipped firmware).
	lenient, err := New(NewMockTransport())
	require.NoError(t, err)
	_, ok := feedAll(lenient, corrupted)
	assert.True(t, ok, "default device accepts bad checksums")

	// Opt-in: frame silently discarded.
	strict, err := New(NewMockTransport(), WithChecksumValidation())
	require.NoError(t, err)
	_, ok = feedAll(strict, corrupted)
	assert.False(t, ok, "strict device discards bad checksums")

	// And the strict device still resynchronizes.
	ev, ok := feedAll(strict, tagNotification(t, 0x42, []byte{0x12, 0x34}))
	require.True(t, ok)
	assert.Equal(t, "1234", ev.Tag.EPC)
}

func TestProcessIncomingReturnsTagImmediately(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	device, err := New(mock)
	require.NoError(t, err)

	mock.QueueRead(tagNotification(t, 0x90, []byte{0x11, 0x11}))
	mock.QueueRead(tagNotification(t, 0x91, []byte{0x22, 0x22}))

	tag, err := device.ProcessIncoming(context.Background())
	require.NoError(t, err)
	require.NotNil(t, tag)
	assert.Equal(t, "1111", tag.EPC)

	// The second frame is still buffered for the next cycle.
	tag, err = device.ProcessIncoming(context.Background())
	require.NoError(t, err)
	require.NotNil(t, tag)
	assert.Equal(t, "2222", tag.EPC)

	// Stream exhausted.
	tag, err = device.ProcessIncoming(context.Background())
	require.NoError(t, err)
	assert.Nil(t, tag)
}

func TestProcessIncomingUpdatesWriteOutcome(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	device, err := New(mock)
	require.NoError(t, err)

	mock.QueueRead(mustFrame(t, frame.TypeResponse, 0x49, []byte{0x00}))
	mock.QueueRead(tagNotification(t, 0x92, []byte{0x33, 0x33}))

	tag, err := device.ProcessIncoming(context.Background())
	require.NoError(t, err)
	require.NotNil(t, tag, "ack frames do not stop the drain")
	assert.Equal(t, "3333", tag.EPC)
	assert.Equal(t, WriteSuccess, device.WriteOutcome().Status)
}

func TestWaitWriteOutcomeAck(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	device, err := New(mock)
	require.NoError(t, err)

	mock.QueueRead(mustFrame(t, frame.TypeResponse, 0x49, []byte{0x00}))

	outcome, err := device.WaitWriteOutcome(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, WriteSuccess, outcome.Status)
}

func TestWaitWriteOutcomeTimeout(t *testing.T) {
	t.Parallel()

	device, err := New(NewMockTransport())
	require.NoError(t, err)

	_, err = device.WaitWriteOutcome(context.Background(), 20*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransportTimeout, "silence is a timeout, never a success")
}

func TestWaitWriteOutcomeCancellation(t *testing.T) {
	t.Parallel()

	device, err := New(NewMockTransport())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = device.WaitWriteOutcome(ctx, time.Second)
	require.ErrorIs(t, err, context.Canceled)
}

// countingTransport counts reads to catch hot polling loops.
type countingTransport struct {
	*MockTransport
	reads int
}

func (c *countingTransport) Read(buf []byte) (int, error) {
	c.reads++
	return c.MockTransport.Read(buf)
}

// A transport that answers empty reads immediately must not be read in
// a hot loop; the acknowledgement wait suspends between empty reads.
func TestWaitWriteOutcomePacesEmptyReads(t *testing.T) {
	t.Parallel()

	mock := &countingTransport{MockTransport: NewMockTransport()}
	device, err := New(mock)
	require.NoError(t, err)

	_, err = device.WaitWriteOutcome(context.Background(), 30*time.Millisecond)
	require.ErrorIs(t, err, ErrTransportTimeout)
	assert.Less(t, mock.reads, 1000, "empty reads paced by a real suspension")
}

func TestVersionRoundTrip(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	device, err := New(mock)
	require.NoError(t, err)

	reply := mustFrame(t, frame.TypeResponse, 0x03, []byte("R200 v2.3.3"))
	mock.QueueRead(reply)

	raw, err := device.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, reply, raw)

	// The query itself went out on the wire.
	writes := mock.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, []byte{0xAA, 0x00, 0x03, 0x00, 0x00, 0x03, 0xDD}, writes[0])
}
