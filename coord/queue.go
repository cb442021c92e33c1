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

package coord

import (
	"context"
	"time"
)

// Status classifies an outbound record.
type Status string

const (
	// StatusSuccess reports a completed operation.
	StatusSuccess Status = "success"
	// StatusError reports a failed operation.
	StatusError Status = "error"
	// StatusInfo reports state changes and acknowledgements.
	StatusInfo Status = "info"
)

// Outcome is one record bound for the wireless notifier. The link
// adapter owns the wire encoding; this stays a plain struct.
type Outcome struct {
	Status  Status
	Message string
	UID     string
	Data    string
}

// Queue is the bounded outbound queue between the engines and the
// notifier. Producers wait a bounded time and then drop; a lost
// notification is acceptable, a stalled producer is not.
type Queue struct {
	ch   chan Outcome
	wait time.Duration
}

// NewQueue creates a queue holding up to depth records. Publish waits
// at most wait before dropping.
func NewQueue(depth int, wait time.Duration) *Queue {
	return &Queue{
		ch:   make(chan Outcome, depth),
		wait: wait,
	}
}

// Publish enqueues out, waiting up to the configured bound when the
// queue is full. Returns false if the record was dropped.
func (q *Queue) Publish(out Outcome) bool {
	select {
	case q.ch <- out:
		return true
	default:
	}

	timer := time.NewTimer(q.wait)
	defer timer.Stop()

	select {
	case q.ch <- out:
		return true
	case <-timer.C:
		return false
	}
}

// Receive blocks for the next record. Returns false when ctx ends.
func (q *Queue) Receive(ctx context.Context) (Outcome, bool) {
	select {
	case out := <-q.ch:
		return out, true
	case <-ctx.Done():
		return Outcome{}, false
	}
}

// Len returns the number of queued records.
func (q *Queue) Len() int {
	return len(q.ch)
}
