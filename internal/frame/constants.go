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

// Frame markers
const (
	Head = 0xAA // First byte of every frame
	End  = 0xDD // Last byte of every frame
)

// Frame type bytes - these indicate the direction of data flow
const (
	TypeCommand      = 0x00 // Commands from host to reader
	TypeResponse     = 0x01 // Responses from reader to host
	TypeNotification = 0x02 // Unsolicited notifications from reader
)

// Frame size limits
const (
	// MaxParamLength is the largest parameter section Encode accepts.
	// The R200 command set never needs more than a 64-byte frame.
	MaxParamLength = 64 - FixedOverhead

	// MaxFrameLength is the receive-side reassembly cap. A stream that
	// produces this many bytes without a complete frame is noise.
	MaxFrameLength = 256

	// MinFrameLength is head + type + command + 2 length bytes + checksum + end.
	MinFrameLength = 7

	// FixedOverhead is the byte count of a frame with no parameters.
	FixedOverhead = 7
)

// Field offsets within a frame
const (
	offType     = 1
	offCommand  = 2
	offLenHi    = 3
	offLenLo    = 4
	offParams   = 5
	checksumLen = 1
)
