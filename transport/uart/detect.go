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

package uart

import (
	"context"
	"strings"
	"time"

	"go.bug.st/serial/enumerator"

	r200 "github.com/HandscanProject/go-r200"
)

// knownBridges are the USB-UART chips R200 breakout boards ship with.
var knownBridges = []string{
	"1A86:7523", // QinHeng CH340
	"10C4:EA60", // Silicon Labs CP210x
	"0403:6001", // FTDI FT232
	"067B:2303", // Prolific PL2303
}

// Detect lists serial ports that may host an R200 front-end, ports on
// known USB-UART bridges first. It does not open anything; pair with
// Probe to confirm a module answers.
func Detect() ([]string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}

	var likely, other []string
	for _, port := range ports {
		if port.IsUSB && isKnownBridge(port.VID, port.PID) {
			likely = append(likely, port.Name)
			continue
		}
		other = append(other, port.Name)
	}
	return append(likely, other...), nil
}

func isKnownBridge(vid, pid string) bool {
	vidpid := strings.ToUpper(vid + ":" + pid)
	for _, known := range knownBridges {
		if vidpid == known {
			return true
		}
	}
	return false
}

// Probe opens path and asks for the module version once. A single
// attempt only: retrying against ports that are not an R200 can stall
// detection or upset unrelated devices.
func Probe(path string, timeout time.Duration) bool {
	transport, err := New(path)
	if err != nil {
		return false
	}
	defer func() { _ = transport.Close() }()

	dev, err := r200.New(transport)
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	_, err = dev.Version(ctx)
	return err == nil
}
