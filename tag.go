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
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/HandscanProject/go-r200/internal/frame"
)

// Tag holds one decoded tag notification. A Tag is populated exactly once
// per successfully decoded notification frame and is meant to be consumed
// immediately; the driver keeps no reference to it.
type Tag struct {
	// EPC is the Electronic Product Code as an uppercase hex string.
	EPC string
	// RSSI is the received signal strength reported with the read.
	// Higher values mean a stronger coupling.
	RSSI byte
	// Valid is false for the zero Tag and true once populated.
	Valid bool
}

func (t *Tag) String() string {
	return fmt.Sprintf("EPC=%s RSSI=0x%02X", t.EPC, t.RSSI)
}

// Tag notification parameter layout after the length field:
//
//	[0]    RSSI
//	[1..2] PC (protocol control) word
//	[3..]  EPC bytes
//	[n-2..n-1] tag CRC
//
// The EPC byte count is therefore the parameter length minus 5.
const tagParamOverhead = 5

// parseTagNotification extracts a Tag from a (0x02, 0x22) notification
// frame. The frame's declared parameter length must cover at least the
// RSSI, PC and CRC fields.
func parseTagNotification(f *frame.Frame) (*Tag, error) {
	epcLen := len(f.Params) - tagParamOverhead
	if epcLen < 0 {
		return nil, fmt.Errorf("%w: tag notification with %d parameter bytes", ErrFrameMalformed, len(f.Params))
	}

	return &Tag{
		EPC:   strings.ToUpper(hex.EncodeToString(f.Params[3 : 3+epcLen])),
		RSSI:  f.Params[0],
		Valid: true,
	}, nil
}
