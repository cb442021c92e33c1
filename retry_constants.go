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

import "time"

// Tag write retry constants. A write fails transiently whenever the tag
// sits at the edge of the antenna's field, so the writer task gets a
// handful of quick attempts before giving up.
const (
	// WriteMaxAttempts is the number of write attempts per pending payload.
	WriteMaxAttempts = 5
	// WriteRetryBackoff is the delay between write attempts.
	WriteRetryBackoff = 100 * time.Millisecond
	// WriteRetryTimeout is the overall budget for all write attempts,
	// including their acknowledgement windows.
	WriteRetryTimeout = 5 * time.Second
)

// Protocol response windows. Each blocking wait on a reader response
// uses an explicit deadline; a window elapsing is a timeout failure,
// never a success.
const (
	// DefaultAckTimeout is the write acknowledgement window.
	DefaultAckTimeout = 800 * time.Millisecond
	// DefaultVersionTimeout is the version reply window.
	DefaultVersionTimeout = 500 * time.Millisecond
	// emptyReadDelay paces response waits when a read returns no bytes.
	// The UART transport blocks on its own read timeout; in-memory
	// transports return immediately.
	emptyReadDelay = time.Millisecond
)
