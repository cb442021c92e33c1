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

// Package ota receives a firmware image over the wireless link in
// chunks, stages it to local storage with integrity tracking, and
// hands the finished image to the platform's update mechanism.
//
// The transfer is double-buffered: the link fills one staging buffer
// while the flush loop appends the other to storage, so the two paths
// never contend on the same memory. Received-byte accounting advances
// only through successful storage appends; a shortfall after the last
// declared chunk is recovered by re-requesting, never by fabricating
// data.
package ota

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/HandscanProject/go-r200/internal/syncutil"
)

// Sink delivers outbound update messages to the wireless link.
type Sink interface {
	SendUpdate(opcode byte, payload []byte) error
}

// Hooks are the platform collaborators invoked when an image is
// fully received.
type Hooks struct {
	// Apply hands the staged image of the given size to the platform
	// update mechanism.
	Apply func(size int64) error
	// Reboot restarts the device after a successful apply. May be nil.
	Reboot func()
}

// Config tunes the transfer engine.
type Config struct {
	// FastMode suppresses per-chunk flow-control requests. Off by
	// default: under a lossy link the sender can outrun the flush
	// loop, so the conservative setting is to request each chunk.
	FastMode bool
	// FlushInterval is the staging-buffer flush cadence.
	FlushInterval time.Duration
	// ChunkBufferSize is the capacity of each staging buffer, and
	// therefore the largest chunk a sender may transfer.
	ChunkBufferSize int
	// MaxChunkRetries bounds shortfall re-requests before the
	// transfer is abandoned.
	MaxChunkRetries int
}

// DefaultConfig returns the settings used on the handheld.
func DefaultConfig() Config {
	return Config{
		FastMode:        false,
		FlushInterval:   50 * time.Millisecond,
		ChunkBufferSize: 4096,
		MaxChunkRetries: 5,
	}
}

var (
	// ErrStorageFull means the announced image exceeds free storage.
	ErrStorageFull = errors.New("insufficient storage for announced image size")
	// ErrShortPayload means an update message was missing required bytes.
	ErrShortPayload = errors.New("update payload too short")
)

// stagingBuffer is one half of the double buffer.
type stagingBuffer struct {
	data       []byte
	length     int
	chunkIndex uint16
	ready      bool
}

// Engine is the chunked-transfer state machine.
type Engine struct {
	store Store
	sink  Sink
	hooks Hooks
	log   zerolog.Logger
	cfg   Config

	mu      syncutil.Mutex
	session Session
	buffers [2]stagingBuffer

	flushedChunks      uint16
	shortfallRequested bool
	shortfallRetries   int
}

// New creates a transfer engine. The sink and store must be non-nil;
// hooks may be zero for tests.
func New(store Store, sink Sink, hooks Hooks, cfg Config, logger zerolog.Logger) *Engine {
	e := &Engine{
		store: store,
		sink:  sink,
		hooks: hooks,
		cfg:   cfg,
		log:   logger.With().Str("component", "ota").Logger(),
	}
	e.buffers[bufferA].data = make([]byte, cfg.ChunkBufferSize)
	e.buffers[bufferB].data = make([]byte, cfg.ChunkBufferSize)
	return e
}

// Session returns a snapshot of the current session.
func (e *Engine) Session() Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

// HandleMessage dispatches one inbound update message. The first
// payload byte selects the operation.
func (e *Engine) HandleMessage(payload []byte) error {
	if len(payload) == 0 {
		return ErrShortPayload
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch payload[0] {
	case OpBegin:
		return e.handleBegin(payload[1:])
	case OpSizeAnnounce:
		return e.handleSizeAnnounce(payload[1:])
	case OpChunkData:
		return e.handleChunkData(payload[1:])
	case OpChunkComplete:
		return e.handleChunkComplete(payload[1:])
	case OpReset:
		return e.handleReset()
	case OpFormat:
		return e.handleFormat()
	default:
		e.log.Debug().Uint8("opcode", payload[0]).Msg("unknown update opcode ignored")
		return nil
	}
}

func (e *Engine) handleBegin(params []byte) error {
	if len(params) < 4 {
		return ErrShortPayload
	}
	totalChunks := binary.BigEndian.Uint16(params[0:2])
	mtu := binary.BigEndian.Uint16(params[2:4])
	if totalChunks == 0 || mtu == 0 {
		return fmt.Errorf("invalid transfer parameters: chunks=%d mtu=%d", totalChunks, mtu)
	}
	if int(mtu) > e.cfg.ChunkBufferSize {
		return fmt.Errorf("mtu %d exceeds staging buffer size %d", mtu, e.cfg.ChunkBufferSize)
	}

	// Preserve a size announced before the begin opcode.
	expected := e.session.ExpectedBytes

	if err := e.store.Remove(); err != nil {
		e.log.Error().Err(err).Msg("failed to discard previous pending image")
		return err
	}

	e.session.reset()
	e.resetBuffers()
	e.session.State = StateNegotiating
	e.session.TotalChunks = totalChunks
	e.session.MTU = mtu
	e.session.ExpectedBytes = expected
	e.flushedChunks = 0
	e.shortfallRequested = false
	e.shortfallRetries = 0

	e.log.Info().
		Uint16("chunks", totalChunks).
		Uint16("mtu", mtu).
		Msg("transfer started")

	e.sendFastMode()
	e.sendStorageReport()
	e.requestChunk(0)
	return nil
}

func (e *Engine) handleSizeAnnounce(params []byte) error {
	if len(params) < 4 {
		return ErrShortPayload
	}
	size := binary.BigEndian.Uint32(params)

	free, err := e.store.Free()
	if err != nil {
		e.log.Error().Err(err).Msg("failed to probe free storage")
		return err
	}
	if uint64(size) > free {
		e.log.Error().
			Uint32("announced", size).
			Uint64("free", free).
			Msg("announced image does not fit, aborting transfer")
		e.sendStorageReport()
		e.session.reset()
		e.resetBuffers()
		return ErrStorageFull
	}

	e.session.ExpectedBytes = size
	e.log.Info().Uint32("bytes", size).Msg("image size announced")
	return nil
}

func (e *Engine) handleChunkData(params []byte) error {
	if len(params) < 2 {
		return ErrShortPayload
	}
	if e.session.State != StateNegotiating && e.session.State != StateTransferring {
		e.log.Debug().Str("state", e.session.State.String()).Msg("chunk data outside transfer ignored")
		return nil
	}

	partIndex := binary.BigEndian.Uint16(params[0:2])
	data := params[2:]
	if len(data) > int(e.session.MTU) {
		e.log.Warn().
			Int("len", len(data)).
			Uint16("mtu", e.session.MTU).
			Msg("oversized part discarded")
		return nil
	}

	offset := int(partIndex) * int(e.session.MTU)
	buf := &e.buffers[e.session.ActiveBuffer]
	if offset+len(data) > len(buf.data) {
		e.log.Warn().
			Uint16("part", partIndex).
			Int("offset", offset).
			Msg("part beyond staging buffer discarded")
		return nil
	}

	copy(buf.data[offset:], data)
	e.session.State = StateTransferring
	e.shortfallRequested = false
	return nil
}

func (e *Engine) handleChunkComplete(params []byte) error {
	if len(params) < 4 {
		return ErrShortPayload
	}
	if e.session.State != StateTransferring {
		e.log.Debug().Str("state", e.session.State.String()).Msg("chunk complete outside transfer ignored")
		return nil
	}

	chunkIndex := binary.BigEndian.Uint16(params[0:2])
	length := binary.BigEndian.Uint16(params[2:4])
	if int(length) > e.cfg.ChunkBufferSize {
		return fmt.Errorf("declared chunk length %d exceeds staging buffer", length)
	}

	// The link can outrun the flush ticker, always in fast mode. If the
	// buffer about to be handed back still holds an unflushed chunk,
	// drain it now; if storage is wedged, refuse this chunk and ask for
	// it again rather than overwrite staged data.
	other := e.session.ActiveBuffer.other()
	if e.buffers[other].ready {
		e.flushReadyBuffers()
	}
	if e.buffers[other].ready {
		e.log.Warn().
			Uint16("chunk", chunkIndex).
			Msg("staging backlog, chunk refused for replay")
		e.requestChunk(chunkIndex)
		return nil
	}

	buf := &e.buffers[e.session.ActiveBuffer]
	buf.length = int(length)
	buf.chunkIndex = chunkIndex
	buf.ready = true

	// Hand the other buffer to the link so streaming continues while
	// this one drains to storage.
	e.session.ActiveBuffer = other
	e.session.CurrentChunk = chunkIndex + 1

	if chunkIndex == e.session.TotalChunks-1 {
		e.session.LastChunkSeen = true
	} else if !e.cfg.FastMode {
		e.requestChunk(chunkIndex + 1)
	}
	return nil
}

func (e *Engine) handleReset() error {
	e.log.Info().Msg("transfer reset, discarding pending image")
	if err := e.store.Remove(); err != nil {
		e.log.Error().Err(err).Msg("failed to remove pending image")
		return err
	}
	e.session.reset()
	e.resetBuffers()
	e.flushedChunks = 0
	e.shortfallRequested = false
	e.shortfallRetries = 0
	return nil
}

func (e *Engine) handleFormat() error {
	e.log.Info().Msg("formatting staging storage")
	if err := e.store.Format(); err != nil {
		e.log.Error().Err(err).Msg("format failed")
		return err
	}
	e.session.reset()
	e.resetBuffers()
	e.sendStorageReport()
	return nil
}

// Run drives the flush loop until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Flush()
		}
	}
}

// Flush performs one flush-loop step: drain any ready staging buffer
// to storage and advance the session if the image is complete or
// short. Exposed so tests can step the engine without real time.
func (e *Engine) Flush() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.flushReadyBuffers()

	if e.session.State != StateTransferring {
		return
	}

	if e.session.ExpectedBytes > 0 && e.session.ReceivedBytes == e.session.ExpectedBytes {
		e.finalize()
		return
	}

	if e.session.LastChunkSeen && !e.anyBufferReady() &&
		e.session.ReceivedBytes < e.session.ExpectedBytes {
		e.recoverShortfall()
	}
}

// flushReadyBuffers appends every ready buffer to storage in chunk
// order. ReceivedBytes grows only here.
func (e *Engine) flushReadyBuffers() {
	for range e.buffers {
		id := e.nextReadyBuffer()
		if id < 0 {
			return
		}
		buf := &e.buffers[id]

		n, err := e.store.Append(buf.data[:buf.length])
		if err != nil {
			// Leave the buffer ready so the next tick retries.
			e.log.Error().Err(err).Int("chunk", int(buf.chunkIndex)).Msg("append failed")
			return
		}

		e.session.ReceivedBytes += uint32(n)
		e.flushedChunks++
		buf.ready = false
		buf.length = 0

		e.log.Debug().
			Int("chunk", int(buf.chunkIndex)).
			Int("bytes", n).
			Uint32("received", e.session.ReceivedBytes).
			Msg("chunk flushed")
	}
}

// nextReadyBuffer picks the ready buffer with the lowest chunk index
// so appends stay in order.
func (e *Engine) nextReadyBuffer() bufferID {
	best := bufferID(-1)
	for id := range e.buffers {
		if !e.buffers[id].ready {
			continue
		}
		if best < 0 || e.buffers[id].chunkIndex < e.buffers[best].chunkIndex {
			best = bufferID(id)
		}
	}
	return best
}

func (e *Engine) anyBufferReady() bool {
	return e.buffers[bufferA].ready || e.buffers[bufferB].ready
}

func (e *Engine) finalize() {
	e.session.State = StateFinalizing

	if err := e.store.Close(); err != nil {
		e.log.Error().Err(err).Msg("failed to close image file")
	}

	size := int64(e.session.ExpectedBytes)
	e.log.Info().Int64("bytes", size).Msg("image fully received")

	e.sendComplete()

	if e.hooks.Apply != nil {
		if err := e.hooks.Apply(size); err != nil {
			e.log.Error().Err(err).Msg("image apply failed")
			return
		}
	}
	if e.hooks.Reboot != nil {
		e.hooks.Reboot()
	}
}

// recoverShortfall re-requests the first chunk that never made it to
// storage. Bounded; the image is never padded out.
func (e *Engine) recoverShortfall() {
	if e.shortfallRequested {
		return
	}
	if e.shortfallRetries >= e.cfg.MaxChunkRetries {
		e.log.Error().
			Uint32("received", e.session.ReceivedBytes).
			Uint32("expected", e.session.ExpectedBytes).
			Msg("transfer abandoned after retry budget exhausted")
		e.session.reset()
		e.resetBuffers()
		return
	}

	// First chunk that never reached storage; when every declared
	// chunk flushed but bytes are still short, replay the last one.
	chunk := e.flushedChunks
	if chunk >= e.session.TotalChunks {
		chunk = e.session.TotalChunks - 1
	}

	e.log.Warn().
		Uint32("received", e.session.ReceivedBytes).
		Uint32("expected", e.session.ExpectedBytes).
		Uint16("chunk", chunk).
		Msg("image short after last chunk, re-requesting")

	e.session.LastChunkSeen = false
	e.shortfallRequested = true
	e.shortfallRetries++
	e.requestChunk(chunk)
}

func (e *Engine) resetBuffers() {
	for id := range e.buffers {
		e.buffers[id].ready = false
		e.buffers[id].length = 0
		e.buffers[id].chunkIndex = 0
	}
}

func (e *Engine) sendFastMode() {
	flag := byte(0)
	if e.cfg.FastMode {
		flag = 1
	}
	if err := e.sink.SendUpdate(OpOutFastMode, []byte{flag}); err != nil {
		e.log.Error().Err(err).Msg("failed to send fast-mode flag")
	}
}

func (e *Engine) sendStorageReport() {
	free, err := e.store.Free()
	if err != nil {
		e.log.Error().Err(err).Msg("failed to probe free storage")
		return
	}
	used, err := e.store.Used()
	if err != nil {
		e.log.Error().Err(err).Msg("failed to probe used storage")
		return
	}

	payload := make([]byte, 8)
	binary.BigEndian.PutUint32(payload[0:4], clampU32(free))
	binary.BigEndian.PutUint32(payload[4:8], clampU32(used))
	if err := e.sink.SendUpdate(OpOutStorageReport, payload); err != nil {
		e.log.Error().Err(err).Msg("failed to send storage report")
	}
}

func (e *Engine) requestChunk(index uint16) {
	payload := make([]byte, 2)
	binary.BigEndian.PutUint16(payload, index)
	if err := e.sink.SendUpdate(OpOutRequestChunk, payload); err != nil {
		e.log.Error().Err(err).Uint16("chunk", index).Msg("failed to request chunk")
	}
}

func (e *Engine) sendComplete() {
	if err := e.sink.SendUpdate(OpOutComplete, nil); err != nil {
		e.log.Error().Err(err).Msg("failed to send completion")
	}
}

func clampU32(v uint64) uint32 {
	if v > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}
