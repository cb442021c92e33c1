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

// Package frame implements the R200 UHF reader wire format:
//
//	AA | type(1) | cmd(1) | PL_hi(1) | PL_lo(1) | params(PL) | checksum(1) | DD
//
// The checksum is the low byte of the sum of everything between the head
// and end markers, excluding the checksum itself.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Codec errors
var (
	// ErrTooLarge is returned by Encode when the parameter section would
	// exceed the maximum frame size.
	ErrTooLarge = errors.New("frame too large")

	// ErrIncomplete indicates the buffer ends before the declared frame does.
	ErrIncomplete = errors.New("frame incomplete")

	// ErrMalformed indicates the buffer cannot be a valid frame: bad
	// markers, impossible declared length, or below minimum size.
	ErrMalformed = errors.New("frame malformed")
)

// Frame is a decoded R200 frame. Params aliases the decode buffer and is
// only valid until the caller reuses it.
type Frame struct {
	Params   []byte
	Type     byte
	Command  byte
	Checksum byte
}

// ChecksumValid reports whether the received checksum matches the sum of
// the type, command, length and parameter bytes. Decode deliberately does
// not enforce this; the reader module in the field emits frames that some
// hosts accept without verification, so rejection is the caller's choice.
func (f *Frame) ChecksumValid() bool {
	sum := f.Type + f.Command
	paramLen := len(f.Params)
	sum += byte(paramLen>>8) + byte(paramLen&0xFF)
	return sum+Checksum(f.Params) == f.Checksum
}

// Encode builds a complete wire frame for the given type, command and
// parameters. It fails with ErrTooLarge rather than truncating when the
// parameter section exceeds MaxParamLength.
func Encode(frameType, command byte, params []byte) ([]byte, error) {
	if len(params) > MaxParamLength {
		return nil, fmt.Errorf("%w: %d parameter bytes (max %d)", ErrTooLarge, len(params), MaxParamLength)
	}

	buf := make([]byte, 0, FixedOverhead+len(params))
	buf = append(buf, Head, frameType, command)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(params)))
	buf = append(buf, params...)
	buf = append(buf, Checksum(buf[offType:]), End)
	return buf, nil
}

// Decode validates and extracts one frame from buf. The buffer must hold
// exactly one complete frame starting at index 0.
//
// It returns ErrIncomplete when more bytes are needed and ErrMalformed
// when the buffer cannot become a valid frame, in particular when the
// declared parameter length could never fit the reassembly cap. A frame
// whose checksum does not match is still returned; see ChecksumValid.
func Decode(buf []byte) (*Frame, error) {
	if len(buf) < MinFrameLength {
		return nil, ErrIncomplete
	}
	if buf[0] != Head {
		return nil, fmt.Errorf("%w: missing head marker", ErrMalformed)
	}

	paramLen := int(binary.BigEndian.Uint16(buf[offLenHi:]))
	total := FixedOverhead + paramLen
	if total > MaxFrameLength {
		return nil, fmt.Errorf("%w: declared length %d exceeds frame cap", ErrMalformed, paramLen)
	}
	if len(buf) < total {
		return nil, ErrIncomplete
	}
	if buf[total-1] != End {
		return nil, fmt.Errorf("%w: missing end marker", ErrMalformed)
	}

	return &Frame{
		Type:     buf[offType],
		Command:  buf[offCommand],
		Params:   buf[offParams : offParams+paramLen],
		Checksum: buf[total-2],
	}, nil
}
