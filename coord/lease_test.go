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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaseMutualExclusion(t *testing.T) {
	t.Parallel()

	l := NewLease()
	require.True(t, l.TryAcquire(time.Millisecond))
	assert.False(t, l.TryAcquire(time.Millisecond))

	l.Release()
	assert.True(t, l.TryAcquire(time.Millisecond))
	l.Release()
}

func TestLeaseAcquireBlocksUntilReleased(t *testing.T) {
	t.Parallel()

	l := NewLease()
	require.NoError(t, l.Acquire(context.Background()))

	acquired := make(chan struct{})
	go func() {
		_ = l.Acquire(context.Background())
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("lease acquired while held")
	case <-time.After(10 * time.Millisecond):
	}

	l.Release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lease never handed over")
	}
}

func TestLeaseAcquireHonorsContext(t *testing.T) {
	t.Parallel()

	l := NewLease()
	require.NoError(t, l.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, l.Acquire(ctx), context.DeadlineExceeded)
}

func TestSignalCoalesces(t *testing.T) {
	t.Parallel()

	s := NewSignal()
	s.Raise()
	s.Raise()
	s.Raise()

	assert.True(t, s.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	assert.False(t, s.Wait(ctx))
}
