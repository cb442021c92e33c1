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

package ota

// Inbound opcodes. The first payload byte of an update message selects
// the operation; the remaining bytes are operation-specific.
const (
	// OpChunkData carries part data: opcode, part index (u16 BE),
	// then up to MTU bytes of image data.
	OpChunkData = 0xFB
	// OpChunkComplete closes the chunk being filled: opcode, chunk
	// index (u16 BE), byte length actually sent (u16 BE).
	OpChunkComplete = 0xFC
	// OpReset discards any pending image and returns the session to idle.
	OpReset = 0xFD
	// OpSizeAnnounce declares the total image size: opcode, size (u32 BE).
	OpSizeAnnounce = 0xFE
	// OpBegin starts a transfer: opcode, total chunks (u16 BE),
	// MTU (u16 BE).
	OpBegin = 0xFF
	// OpFormat erases the staging storage.
	OpFormat = 0xEF
)

// Outbound opcodes, sent back over the wireless link through the Sink.
const (
	// OpOutFastMode announces the fast-mode capability: opcode, 0/1.
	OpOutFastMode = 0xAA
	// OpOutStorageReport carries free then used bytes (two u32 BE).
	OpOutStorageReport = 0xEF
	// OpOutRequestChunk asks the sender for chunk N (u16 BE).
	OpOutRequestChunk = 0xF1
	// OpOutComplete acknowledges a fully received image.
	OpOutComplete = 0xF2
)
