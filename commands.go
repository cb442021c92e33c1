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
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/HandscanProject/go-r200/internal/frame"
)

// R200 command codes from the vendor protocol document
const (
	cmdGetVersion = 0x03 // Hardware version query
	cmdSinglePoll = 0x22 // Single inventory round, antenna off afterwards
	cmdWriteEPC   = 0x49 // Write to tag memory
	cmdErrorFrame = 0xFF // Error response, status code at params[0]
)

// Write command payload layout:
//
//	[0..3] access password, big-endian
//	[4]    memory bank selector
//	[5..6] start word address
//	[7..8] word count
//	[9..]  data bytes
const (
	epcMemoryBank = 0x01
	// epcStartWord skips the tag CRC and PC words at the front of the
	// EPC bank.
	epcStartWord = 0x0002
)

// RequestVersion sends the hardware version query (0x03). Useful as a
// health check that the module is responding and the wiring is right.
func (d *Device) RequestVersion() error {
	return d.sendCommand(cmdGetVersion, nil)
}

// RequestSinglePoll sends a single inventory command (0x22). The module
// energizes the antenna, looks for tags briefly, reports and powers
// back down.
func (d *Device) RequestSinglePoll() error {
	return d.sendCommand(cmdSinglePoll, nil)
}

// RequestWriteEPC composes and sends an EPC write command (0x49).
//
// newEPC is the replacement EPC as a hex string whose length must be a
// multiple of 4 characters (whole 16-bit words); password is the 4-byte
// access password as a hex string, "" for the factory default of zero.
// Argument validation fails before any bytes reach the wire, and the
// pending write outcome is reset so a stale result cannot leak into
// this attempt.
func (d *Device) RequestWriteEPC(newEPC, password string) error {
	params, err := buildWriteEPCParams(newEPC, password)
	if err != nil {
		return err
	}

	d.ResetWriteOutcome()
	return d.sendCommand(cmdWriteEPC, params)
}

// sendCommand encodes and writes one command frame
func (d *Device) sendCommand(command byte, params []byte) error {
	data, err := frame.Encode(frame.TypeCommand, command, params)
	if err != nil {
		return err
	}
	if err := d.transport.Write(data); err != nil {
		return fmt.Errorf("sending command 0x%02X: %w", command, err)
	}
	return nil
}

// buildWriteEPCParams assembles the 0x49 payload:
// password(4) + bank(1) + start word(2) + word count(2) + EPC bytes.
func buildWriteEPCParams(newEPC, password string) ([]byte, error) {
	if len(newEPC) == 0 || len(newEPC)%4 != 0 {
		return nil, fmt.Errorf("%w: EPC must be a multiple of 4 hex characters, got %d",
			ErrInvalidParameter, len(newEPC))
	}

	epcBytes, err := hex.DecodeString(newEPC)
	if err != nil {
		return nil, fmt.Errorf("%w: EPC is not valid hex: %v", ErrInvalidParameter, err)
	}

	var pwd uint64
	if password != "" {
		pwd, err = strconv.ParseUint(password, 16, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: password is not a 32-bit hex value: %v", ErrInvalidParameter, err)
		}
	}

	wordCount := len(epcBytes) / 2

	params := make([]byte, 0, 9+len(epcBytes))
	params = binary.BigEndian.AppendUint32(params, uint32(pwd))
	params = append(params, epcMemoryBank)
	params = binary.BigEndian.AppendUint16(params, epcStartWord)
	params = binary.BigEndian.AppendUint16(params, uint16(wordCount))
	params = append(params, epcBytes...)
	return params, nil
}
