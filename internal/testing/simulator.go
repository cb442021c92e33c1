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

// Package testing provides a wire-level R200 simulator for
// integration tests. VirtualR200 speaks the module's framed UART
// protocol: commands written to it produce the byte-exact response
// frames a real module would send, optionally split into small reads
// to exercise reassembly.
package testing

import (
	"encoding/hex"
	"time"

	"github.com/HandscanProject/go-r200/internal/frame"
)

const (
	cmdGetVersion = 0x03
	cmdSinglePoll = 0x22
	cmdWriteEPC   = 0x49
	cmdError      = 0xFF

	codeNoTagInPoll = 0x15
)

// SimTag is one tag present in the simulated field.
type SimTag struct {
	EPC  []byte
	RSSI byte
}

// CommandLogEntry records one decoded command frame.
type CommandLogEntry struct {
	Timestamp time.Time
	Params    []byte
	Command   byte
}

// VirtualR200 simulates the reader module behind a byte stream.
// Not safe for concurrent use; drive it from one goroutine like a
// real serial port.
type VirtualR200 struct {
	Version    string
	CommandLog []CommandLogEntry

	tags      []SimTag
	inbound   []byte
	outbound  []byte
	writeCode byte // 0 means writes succeed
	maxRead   int  // 0 means unchunked
	closed    bool
}

// NewVirtualR200 returns a simulator with an empty field.
func NewVirtualR200() *VirtualR200 {
	return &VirtualR200{Version: "R200 26dBm V1.0"}
}

// AddTag places a tag (EPC as hex) into the field. Polls return tags
// in insertion order, consuming one per poll.
func (v *VirtualR200) AddTag(epcHex string, rssi byte) error {
	epc, err := hex.DecodeString(epcHex)
	if err != nil {
		return err
	}
	v.tags = append(v.tags, SimTag{EPC: epc, RSSI: rssi})
	return nil
}

// FailWrites makes write commands answer with the given error code.
func (v *VirtualR200) FailWrites(code byte) {
	v.writeCode = code
}

// PassWrites restores successful write acknowledgements.
func (v *VirtualR200) PassWrites() {
	v.writeCode = 0
}

// ChunkReads caps how many bytes a single Read returns, simulating
// slow byte-at-a-time UART delivery.
func (v *VirtualR200) ChunkReads(n int) {
	v.maxRead = n
}

// InjectNoise appends raw bytes to the outbound stream ahead of any
// queued frames.
func (v *VirtualR200) InjectNoise(data []byte) {
	v.outbound = append(v.outbound, data...)
}

// Write receives host bytes, reassembles command frames, and queues
// the module's responses.
func (v *VirtualR200) Write(data []byte) error {
	v.inbound = append(v.inbound, data...)
	v.drainInbound()
	return nil
}

// Read pops queued response bytes. Returns (0, nil) when idle, like a
// serial read timeout.
func (v *VirtualR200) Read(buf []byte) (int, error) {
	if len(v.outbound) == 0 {
		return 0, nil
	}
	limit := len(buf)
	if v.maxRead > 0 && v.maxRead < limit {
		limit = v.maxRead
	}
	n := copy(buf[:limit], v.outbound)
	v.outbound = v.outbound[n:]
	return n, nil
}

// SetReadTimeout is accepted and ignored; the simulator never blocks.
func (v *VirtualR200) SetReadTimeout(time.Duration) error { return nil }

// Close marks the simulator disconnected.
func (v *VirtualR200) Close() error {
	v.closed = true
	return nil
}

// IsConnected reports whether Close has been called.
func (v *VirtualR200) IsConnected() bool { return !v.closed }

// drainInbound consumes complete frames from the inbound buffer.
func (v *VirtualR200) drainInbound() {
	for {
		start := -1
		for i, b := range v.inbound {
			if b == frame.Head {
				start = i
				break
			}
		}
		if start < 0 {
			v.inbound = nil
			return
		}
		v.inbound = v.inbound[start:]
		if len(v.inbound) < frame.MinFrameLength {
			return
		}

		paramLen := int(v.inbound[3])<<8 | int(v.inbound[4])
		total := frame.FixedOverhead + paramLen
		if len(v.inbound) < total {
			return
		}

		f, err := frame.Decode(v.inbound[:total])
		v.inbound = v.inbound[total:]
		if err != nil {
			continue
		}
		v.handleCommand(f)
	}
}

func (v *VirtualR200) handleCommand(f *frame.Frame) {
	v.CommandLog = append(v.CommandLog, CommandLogEntry{
		Timestamp: time.Now(),
		Params:    append([]byte(nil), f.Params...),
		Command:   f.Command,
	})

	switch f.Command {
	case cmdGetVersion:
		v.queueFrame(frame.TypeResponse, cmdGetVersion, []byte(v.Version))
	case cmdSinglePoll:
		if len(v.tags) == 0 {
			v.queueFrame(frame.TypeResponse, cmdError, []byte{codeNoTagInPoll})
			return
		}
		tag := v.tags[0]
		v.tags = v.tags[1:]
		v.queueFrame(frame.TypeNotification, cmdSinglePoll, tagParams(tag))
	case cmdWriteEPC:
		if v.writeCode != 0 {
			v.queueFrame(frame.TypeResponse, cmdError, []byte{v.writeCode})
			return
		}
		v.queueFrame(frame.TypeResponse, cmdWriteEPC, []byte{0x00})
	default:
		// Real modules stay silent on commands they do not know.
	}
}

// tagParams lays out a poll notification: RSSI, PC word, EPC, CRC.
func tagParams(tag SimTag) []byte {
	params := make([]byte, 0, 5+len(tag.EPC))
	params = append(params, tag.RSSI)
	params = append(params, 0x34, 0x00)
	params = append(params, tag.EPC...)
	crc := crc16(tag.EPC)
	return append(params, byte(crc>>8), byte(crc))
}

// crc16 is the CCITT checksum tags report over PC+EPC. The driver
// never verifies it, so fidelity here is cosmetic.
func crc16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

func (v *VirtualR200) queueFrame(frameType, command byte, params []byte) {
	raw, err := frame.Encode(frameType, command, params)
	if err != nil {
		return
	}
	v.outbound = append(v.outbound, raw...)
}
