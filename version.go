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
	"fmt"

	"github.com/HandscanProject/go-r200/internal/frame"
)

// FormatVersion renders a raw version reply for diagnostics. The R200
// answers with printable module info; anything else falls back to a
// hex dump of the whole frame.
func FormatVersion(raw []byte) string {
	f, err := frame.Decode(raw)
	if err == nil && isPrintable(f.Params) {
		return string(f.Params)
	}
	return fmt.Sprintf("% X", raw)
}

func isPrintable(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	for _, b := range data {
		if b < 0x20 || b > 0x7E {
			return false
		}
	}
	return true
}
