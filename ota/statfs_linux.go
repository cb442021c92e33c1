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

//go:build linux

package ota

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// fsUsage reports free and used bytes of the filesystem holding dir.
func fsUsage(dir string) (free, used uint64, err error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return 0, 0, fmt.Errorf("failed to statfs %s: %w", dir, err)
	}
	blockSize := uint64(stat.Bsize)
	free = stat.Bavail * blockSize
	used = (stat.Blocks - stat.Bfree) * blockSize
	return free, used, nil
}
