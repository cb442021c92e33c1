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

// Package coord binds the tag driver and the update engine together:
// a small set of cooperating tasks (poller, writer, notifier,
// feedback) communicating through a bounded queue, a timeout-guarded
// shared state, and a binary feedback semaphore. The UHF UART is
// multiplexed through a lease held for whole request/response cycles.
package coord

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	r200 "github.com/HandscanProject/go-r200"
)

// ReaderDevice is the slice of the tag driver the coordinator uses.
type ReaderDevice interface {
	RequestSinglePoll() error
	RequestWriteEPC(newEPC, password string) error
	ProcessIncoming(ctx context.Context) (*r200.Tag, error)
	WaitWriteOutcome(ctx context.Context, timeout time.Duration) (r200.WriteOutcome, error)
}

// UpdateHandler consumes inbound firmware-update messages.
type UpdateHandler interface {
	HandleMessage(payload []byte) error
}

// Notifier carries outbound records over the wireless link.
type Notifier interface {
	Notify(out Outcome) error
	IsConnected() bool
}

// Beeper produces audible feedback. Implementations must not block.
type Beeper interface {
	Beep()
}

// IntentKind identifies an inbound application intent.
type IntentKind int

const (
	// IntentUnknown is anything the device does not understand.
	IntentUnknown IntentKind = iota
	// IntentChangeMode switches between read and write mode.
	IntentChangeMode
	// IntentWriteData stages tag data for the writer task.
	IntentWriteData
	// IntentToggleSound flips audible feedback.
	IntentToggleSound
)

// Intent is one decoded inbound application message. The link adapter
// owns the wire encoding.
type Intent struct {
	Kind    IntentKind
	Content string
}

// Config holds every wait bound and cadence the coordinator uses.
// All timeouts are explicit so tests can shrink them.
type Config struct {
	QueueDepth         int
	PublishWait        time.Duration
	StateLockTimeout   time.Duration
	PollInterval       time.Duration
	PollResponseWindow time.Duration
	LeaseWait          time.Duration
	WriteAttempts      int
	WriteBackoff       time.Duration
	AckWindow          time.Duration
}

// DefaultConfig returns the settings used on the handheld.
func DefaultConfig() Config {
	return Config{
		QueueDepth:         5,
		PublishWait:        50 * time.Millisecond,
		StateLockTimeout:   250 * time.Millisecond,
		PollInterval:       100 * time.Millisecond,
		PollResponseWindow: 150 * time.Millisecond,
		LeaseWait:          50 * time.Millisecond,
		WriteAttempts:      r200.WriteMaxAttempts,
		WriteBackoff:       r200.WriteRetryBackoff,
		AckWindow:          r200.DefaultAckTimeout,
	}
}

// Coordinator owns the task set and the primitives between them.
type Coordinator struct {
	dev      ReaderDevice
	updates  UpdateHandler
	notifier Notifier
	beeper   Beeper
	log      zerolog.Logger
	cfg      Config

	queue     *Queue
	state     *SharedState
	lease     *Lease
	feedback  *Signal
	writeKick chan struct{}
}

// New wires the coordinator. beeper may be nil.
func New(dev ReaderDevice, updates UpdateHandler, notifier Notifier, beeper Beeper,
	cfg Config, logger zerolog.Logger,
) *Coordinator {
	return &Coordinator{
		dev:       dev,
		updates:   updates,
		notifier:  notifier,
		beeper:    beeper,
		cfg:       cfg,
		log:       logger.With().Str("component", "coord").Logger(),
		queue:     NewQueue(cfg.QueueDepth, cfg.PublishWait),
		state:     NewSharedState(cfg.StateLockTimeout),
		lease:     NewLease(),
		feedback:  NewSignal(),
		writeKick: make(chan struct{}, 1),
	}
}

// State exposes the shared state, mainly for the link adapter and tests.
func (c *Coordinator) State() *SharedState {
	return c.state
}

// Run starts the task set and blocks until ctx ends.
func (c *Coordinator) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, task := range []func(context.Context){
		c.pollLoop,
		c.writeLoop,
		c.notifyLoop,
		c.feedbackLoop,
	} {
		wg.Add(1)
		go func(run func(context.Context)) {
			defer wg.Done()
			run(ctx)
		}(task)
	}
	wg.Wait()
}

// HandleIntent dispatches one inbound application intent.
func (c *Coordinator) HandleIntent(intent Intent) {
	switch intent.Kind {
	case IntentChangeMode:
		c.handleChangeMode(intent.Content)
	case IntentWriteData:
		c.handleWriteData(intent.Content)
	case IntentToggleSound:
		c.handleToggleSound()
	default:
		c.log.Warn().Str("content", intent.Content).Msg("unknown intent")
		c.publish(Outcome{Status: StatusError, Message: "Unknown message type"})
	}
}

// HandleUpdateMessage forwards one inbound firmware-update message.
func (c *Coordinator) HandleUpdateMessage(payload []byte) {
	if err := c.updates.HandleMessage(payload); err != nil {
		c.log.Error().Err(err).Msg("update message failed")
		c.publish(Outcome{Status: StatusError, Message: "Update error: " + err.Error()})
	}
}

func (c *Coordinator) handleChangeMode(content string) {
	switch strings.ToLower(strings.TrimSpace(content)) {
	case "write":
		if err := c.state.SetMode(ModeWrite); err != nil {
			c.log.Error().Err(err).Msg("mode change failed")
			return
		}
		c.log.Info().Str("mode", ModeWrite.String()).Msg("mode changed")
		c.publish(Outcome{Status: StatusInfo, Message: "Write mode activated"})
	case "read":
		if err := c.state.SetMode(ModeRead); err != nil {
			c.log.Error().Err(err).Msg("mode change failed")
			return
		}
		c.log.Info().Str("mode", ModeRead.String()).Msg("mode changed")
		c.publish(Outcome{Status: StatusInfo, Message: "Write mode stopped"})
	default:
		c.publish(Outcome{Status: StatusError, Message: "Unknown mode: " + content})
	}
}

// handleWriteData stages "EPC" or "EPC:PASSWORD" for the writer task.
// Write data is only accepted while write mode is active.
func (c *Coordinator) handleWriteData(content string) {
	mode, err := c.state.Mode()
	if err != nil {
		c.log.Error().Err(err).Msg("mode unavailable")
		return
	}
	if mode != ModeWrite {
		c.log.Warn().Msg("write data rejected outside write mode")
		c.publish(Outcome{Status: StatusError, Message: "Write mode not active"})
		return
	}

	content = strings.TrimSpace(content)
	if content == "" {
		c.publish(Outcome{Status: StatusError, Message: "Empty write data"})
		return
	}

	req := WriteRequest{EPC: content}
	if epc, password, found := strings.Cut(content, ":"); found {
		req.EPC = epc
		req.Password = password
	}

	if err := c.state.SetPendingWrite(req); err != nil {
		c.log.Error().Err(err).Msg("failed to stage write data")
		return
	}

	c.publish(Outcome{Status: StatusInfo, Message: "Data received", Data: content})

	select {
	case c.writeKick <- struct{}{}:
	default:
	}
}

func (c *Coordinator) handleToggleSound() {
	enabled, err := c.state.ToggleSound()
	if err != nil {
		c.log.Error().Err(err).Msg("sound toggle failed")
		return
	}
	msg := "Sound off"
	if enabled {
		msg = "Sound on"
	}
	c.publish(Outcome{Status: StatusInfo, Message: msg})
}

// publish enqueues an outbound record, logging a drop.
func (c *Coordinator) publish(out Outcome) {
	if !c.queue.Publish(out) {
		c.log.Warn().Str("message", out.Message).Msg("outbound record dropped, queue full")
	}
}

// feedbackLoop beeps once per raised signal while sound is enabled.
func (c *Coordinator) feedbackLoop(ctx context.Context) {
	for {
		if !c.feedback.Wait(ctx) {
			return
		}
		sound, err := c.state.Sound()
		if err != nil {
			c.log.Error().Err(err).Msg("sound state unavailable")
			continue
		}
		if sound && c.beeper != nil {
			c.beeper.Beep()
		}
	}
}
