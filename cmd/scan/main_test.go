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

package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	r200 "github.com/HandscanProject/go-r200"
)

func TestPollOnceNoTag(t *testing.T) {
	t.Parallel()

	mock := r200.NewMockTransport()
	dev, err := r200.New(mock)
	require.NoError(t, err)

	tag, err := pollOnce(context.Background(), dev, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, tag)
	// The poll command went out even though nothing answered.
	assert.NotEmpty(t, mock.WrittenBytes())
}

func TestPollOnceDecodesTag(t *testing.T) {
	t.Parallel()

	mock := r200.NewMockTransport()
	dev, err := r200.New(mock)
	require.NoError(t, err)

	// Notification frame carrying a 2-byte EPC.
	params := []byte{0xC5, 0x34, 0x00, 0x11, 0x22, 0xAB, 0xCD}
	sum := byte(0x02) + byte(0x22) + byte(len(params))
	for _, b := range params {
		sum += b
	}
	notification := append([]byte{0xAA, 0x02, 0x22, 0x00, byte(len(params))}, params...)
	notification = append(notification, sum, 0xDD)
	mock.QueueRead(notification)

	tag, err := pollOnce(context.Background(), dev, 100*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, tag)
	assert.Equal(t, "1122", tag.EPC)
}
