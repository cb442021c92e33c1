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

package testing

import (
	stdtesting "testing"

	"github.com/HandscanProject/go-r200/internal/frame"
)

func writeFrame(t *stdtesting.T, v *VirtualR200, frameType, command byte, params []byte) {
	t.Helper()
	raw, err := frame.Encode(frameType, command, params)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := v.Write(raw); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readFrame(t *stdtesting.T, v *VirtualR200) *frame.Frame {
	t.Helper()
	buf := make([]byte, frame.MaxFrameLength)
	n, err := v.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n == 0 {
		t.Fatal("no response queued")
	}
	f, err := frame.Decode(buf[:n])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return f
}

func TestSimulatorVersion(t *stdtesting.T) {
	v := NewVirtualR200()
	writeFrame(t, v, frame.TypeCommand, cmdGetVersion, nil)

	f := readFrame(t, v)
	if f.Command != cmdGetVersion {
		t.Fatalf("command = %#x, want %#x", f.Command, cmdGetVersion)
	}
	if got := string(f.Params); got != "R200 26dBm V1.0" {
		t.Fatalf("version = %q", got)
	}
}

func TestSimulatorPoll(t *stdtesting.T) {
	v := NewVirtualR200()
	if err := v.AddTag("E2801170200012345678ABCD", 0xC5); err != nil {
		t.Fatal(err)
	}

	writeFrame(t, v, frame.TypeCommand, cmdSinglePoll, nil)
	f := readFrame(t, v)
	if f.Type != frame.TypeNotification || f.Command != cmdSinglePoll {
		t.Fatalf("got type %#x command %#x", f.Type, f.Command)
	}
	if f.Params[0] != 0xC5 {
		t.Fatalf("rssi = %#x", f.Params[0])
	}
	if len(f.Params) != 5+12 {
		t.Fatalf("params length = %d", len(f.Params))
	}

	// Field is now empty.
	writeFrame(t, v, frame.TypeCommand, cmdSinglePoll, nil)
	f = readFrame(t, v)
	if f.Command != cmdError || f.Params[0] != codeNoTagInPoll {
		t.Fatalf("expected no-tag error, got command %#x params %v", f.Command, f.Params)
	}
}

func TestSimulatorWriteOutcomes(t *stdtesting.T) {
	v := NewVirtualR200()

	writeFrame(t, v, frame.TypeCommand, cmdWriteEPC, []byte{0, 0, 0, 0})
	if f := readFrame(t, v); f.Command != cmdWriteEPC {
		t.Fatalf("command = %#x", f.Command)
	}

	v.FailWrites(0x16)
	writeFrame(t, v, frame.TypeCommand, cmdWriteEPC, []byte{0, 0, 0, 0})
	f := readFrame(t, v)
	if f.Command != cmdError || f.Params[0] != 0x16 {
		t.Fatalf("expected error 0x16, got command %#x params %v", f.Command, f.Params)
	}
}

func TestSimulatorChunkedReads(t *stdtesting.T) {
	v := NewVirtualR200()
	v.ChunkReads(1)
	writeFrame(t, v, frame.TypeCommand, cmdGetVersion, nil)

	buf := make([]byte, 8)
	n, err := v.Read(buf)
	if err != nil || n != 1 {
		t.Fatalf("chunked read returned n=%d err=%v", n, err)
	}
}

func TestSimulatorSplitCommandWrites(t *stdtesting.T) {
	v := NewVirtualR200()
	raw, err := frame.Encode(frame.TypeCommand, cmdGetVersion, nil)
	if err != nil {
		t.Fatal(err)
	}

	// Feed the command one byte at a time.
	for _, b := range raw {
		if err := v.Write([]byte{b}); err != nil {
			t.Fatal(err)
		}
	}
	if f := readFrame(t, v); f.Command != cmdGetVersion {
		t.Fatalf("command = %#x", f.Command)
	}
}
