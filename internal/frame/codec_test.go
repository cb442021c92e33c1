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

package frame

import (
	"bytes"
	"errors"
	"testing"
)

func TestChecksum(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		data []byte
		want byte
	}{
		{
			name: "empty data",
			data: []byte{},
			want: 0,
		},
		{
			name: "single byte",
			data: []byte{0x42},
			want: 0x42,
		},
		{
			name: "overflow truncates to low byte",
			data: []byte{0xFF, 0x01},
			want: 0x00,
		},
		{
			name: "single poll command body",
			data: []byte{0x00, 0x22, 0x00, 0x00},
			want: 0x22,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Checksum(tt.data); got != tt.want {
				t.Errorf("Checksum() = %#02x, want %#02x", got, tt.want)
			}
		})
	}
}

func TestEncodeSinglePoll(t *testing.T) {
	t.Parallel()
	got, err := Encode(TypeCommand, 0x22, nil)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	want := []byte{0xAA, 0x00, 0x22, 0x00, 0x00, 0x22, 0xDD}
	if !bytes.Equal(got, want) {
		t.Errorf("Encode() = % 02X, want % 02X", got, want)
	}
}

func TestEncodeTooLarge(t *testing.T) {
	t.Parallel()
	_, err := Encode(TypeCommand, 0x49, make([]byte, MaxParamLength+1))
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("Encode() error = %v, want ErrTooLarge", err)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		frameType byte
		command   byte
		params    []byte
	}{
		{"no params", TypeCommand, 0x03, nil},
		{"one param", TypeCommand, 0x22, []byte{0x01}},
		{"tag notification payload", TypeNotification, 0x22, []byte{0xC5, 0x34, 0x00, 0x11, 0x22, 0x33, 0x44, 0xAB, 0xCD}},
		{"max params", TypeCommand, 0x49, bytes.Repeat([]byte{0x5A}, MaxParamLength)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			encoded, err := Encode(tt.frameType, tt.command, tt.params)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}

			decoded, err := Decode(encoded)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if decoded.Type != tt.frameType {
				t.Errorf("Type = %#02x, want %#02x", decoded.Type, tt.frameType)
			}
			if decoded.Command != tt.command {
				t.Errorf("Command = %#02x, want %#02x", decoded.Command, tt.command)
			}
			if len(tt.params) != len(decoded.Params) || (len(tt.params) > 0 && !bytes.Equal(decoded.Params, tt.params)) {
				t.Errorf("Params = % 02X, want % 02X", decoded.Params, tt.params)
			}
			if !decoded.ChecksumValid() {
				t.Error("ChecksumValid() = false for freshly encoded frame")
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		buf  []byte
		want error
	}{
		{
			name: "below minimum length",
			buf:  []byte{0xAA, 0x00, 0x22, 0x00, 0x00, 0x22},
			want: ErrIncomplete,
		},
		{
			name: "missing head marker",
			buf:  []byte{0x00, 0x00, 0x22, 0x00, 0x00, 0x22, 0xDD},
			want: ErrMalformed,
		},
		{
			name: "declared length exceeds cap",
			buf:  []byte{0xAA, 0x00, 0x22, 0xFF, 0xFF, 0x22, 0xDD},
			want: ErrMalformed,
		},
		{
			name: "declared length past end of buffer",
			buf:  []byte{0xAA, 0x02, 0x22, 0x00, 0x09, 0xC5, 0xDD},
			want: ErrIncomplete,
		},
		{
			name: "missing end marker",
			buf:  []byte{0xAA, 0x00, 0x22, 0x00, 0x00, 0x22, 0x00},
			want: ErrMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode(tt.buf)
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecodeBadChecksumStillDecodes(t *testing.T) {
	t.Parallel()
	encoded, err := Encode(TypeCommand, 0x22, []byte{0x01})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	encoded[len(encoded)-2] ^= 0xFF

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode() error = %v, corrupted checksum must not reject the frame", err)
	}
	if decoded.ChecksumValid() {
		t.Error("ChecksumValid() = true for corrupted checksum")
	}
}
