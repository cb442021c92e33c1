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

import (
	"strings"
	"testing"

	"github.com/HandscanProject/go-r200/internal/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTagNotification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		params   []byte
		wantEPC  string
		wantRSSI byte
	}{
		{
			name:     "two byte EPC",
			params:   []byte{0xC5, 0x34, 0x00, 0x11, 0x22, 0xAB, 0xCD},
			wantEPC:  "1122",
			wantRSSI: 0xC5,
		},
		{
			name: "96-bit EPC",
			params: append([]byte{0xB0, 0x30, 0x00},
				append([]byte{0xE2, 0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88, 0x99, 0xAA}, 0xAB, 0xCD)...),
			wantEPC:  "E2001122334455667788" + "99AA",
			wantRSSI: 0xB0,
		},
		{
			name:     "empty EPC",
			params:   []byte{0x10, 0x00, 0x00, 0xAB, 0xCD},
			wantEPC:  "",
			wantRSSI: 0x10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tag, err := parseTagNotification(&frame.Frame{
				Type:    frame.TypeNotification,
				Command: 0x22,
				Params:  tt.params,
			})
			require.NoError(t, err)
			assert.True(t, tag.Valid)
			assert.Equal(t, tt.wantEPC, tag.EPC)
			assert.Equal(t, tt.wantRSSI, tag.RSSI)
			assert.Equal(t, strings.ToUpper(tag.EPC), tag.EPC, "EPC is always uppercase")
		})
	}
}

func TestParseTagNotificationTooShort(t *testing.T) {
	t.Parallel()

	_, err := parseTagNotification(&frame.Frame{
		Type:    frame.TypeNotification,
		Command: 0x22,
		Params:  []byte{0xC5, 0x34},
	})
	require.ErrorIs(t, err, ErrFrameMalformed)
}

func TestTagZeroValueInvalid(t *testing.T) {
	t.Parallel()

	var tag Tag
	assert.False(t, tag.Valid)
	assert.Empty(t, tag.EPC)
}
