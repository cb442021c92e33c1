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

// State is the transfer session state.
type State int

const (
	// StateIdle means no transfer is in progress.
	StateIdle State = iota
	// StateNegotiating means a transfer was announced but no data has
	// arrived yet.
	StateNegotiating
	// StateTransferring means chunk data is flowing.
	StateTransferring
	// StateFinalizing means every expected byte has been written to
	// storage and the image is being handed off.
	StateFinalizing
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateNegotiating:
		return "negotiating"
	case StateTransferring:
		return "transferring"
	case StateFinalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}

// bufferID identifies one of the two staging buffers.
type bufferID int

const (
	bufferA bufferID = iota
	bufferB
)

func (b bufferID) other() bufferID {
	if b == bufferA {
		return bufferB
	}
	return bufferA
}

func (b bufferID) String() string {
	if b == bufferA {
		return "A"
	}
	return "B"
}

// Session tracks one firmware transfer. ReceivedBytes grows only
// through successful storage appends; the session reaches
// StateFinalizing only when ReceivedBytes equals ExpectedBytes.
type Session struct {
	State         State
	TotalChunks   uint16
	MTU           uint16
	ExpectedBytes uint32
	ReceivedBytes uint32
	CurrentChunk  uint16
	ActiveBuffer  bufferID
	LastChunkSeen bool
}

// reset returns the session to idle, keeping nothing.
func (s *Session) reset() {
	*s = Session{}
}
