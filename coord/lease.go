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

// Lease serializes full request/response cycles on the UHF UART. One
// task holds the lease for the whole cycle, so a write acknowledgement
// can never be interleaved with poll traffic.
type Lease struct {
	token chan struct{}
}

// NewLease returns a released lease.
func NewLease() *Lease {
	l := &Lease{token: make(chan struct{}, 1)}
	l.token <- struct{}{}
	return l
}

// Acquire blocks until the lease is held or ctx ends.
func (l *Lease) Acquire(ctx context.Context) error {
	select {
	case <-l.token:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire attempts to take the lease within the given wait.
func (l *Lease) TryAcquire(wait time.Duration) bool {
	select {
	case <-l.token:
		return true
	default:
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-l.token:
		return true
	case <-timer.C:
		return false
	}
}

// Release returns the lease. Must only be called by the holder.
func (l *Lease) Release() {
	l.token <- struct{}{}
}
