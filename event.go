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

import "fmt"

// EventKind identifies the class of a decoded protocol event. The set of
// frames the R200 emits is fixed, so events are a closed tagged union
// dispatched by switch rather than callback interfaces.
type EventKind int

const (
	// EventNone is the zero value; Feed returns it while a frame is still
	// being accumulated.
	EventNone EventKind = iota
	// EventTagDecoded carries a tag read from a poll notification frame.
	EventTagDecoded
	// EventWriteAck acknowledges a successful EPC write.
	EventWriteAck
	// EventWriteError carries the status code from a reader error frame.
	EventWriteError
	// EventVersionInfo carries the raw hardware version response.
	EventVersionInfo
)

func (k EventKind) String() string {
	switch k {
	case EventNone:
		return "none"
	case EventTagDecoded:
		return "tag"
	case EventWriteAck:
		return "write-ack"
	case EventWriteError:
		return "write-error"
	case EventVersionInfo:
		return "version"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is one decoded protocol event. Only the fields relevant to Kind
// are populated.
type Event struct {
	// Tag is set for EventTagDecoded.
	Tag *Tag
	// Raw is set for EventVersionInfo and holds the full frame bytes.
	Raw []byte
	// Kind selects the variant.
	Kind EventKind
	// Code is set for EventWriteError.
	Code byte
}
