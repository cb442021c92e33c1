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

import "context"

// Signal is a binary semaphore for the feedback task. Raises coalesce:
// a raise while one is already pending is a no-op.
type Signal struct {
	ch chan struct{}
}

// NewSignal returns an unraised signal.
func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{}, 1)}
}

// Raise marks the signal pending without blocking.
func (s *Signal) Raise() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// Wait blocks until the signal is raised or ctx ends. Returns false
// when ctx ended first.
func (s *Signal) Wait(ctx context.Context) bool {
	select {
	case <-s.ch:
		return true
	case <-ctx.Done():
		return false
	}
}
