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

package coord

import (
	"errors"
	"time"
)

// Mode selects what the device is doing with tags in the field.
type Mode int

const (
	// ModeRead continuously polls for tags.
	ModeRead Mode = iota
	// ModeWrite holds polling and waits for data to write.
	ModeWrite
)

// String returns a human-readable mode name.
func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "read"
	case ModeWrite:
		return "write"
	default:
		return "unknown"
	}
}

// ErrStateLockTimeout means the shared state could not be acquired
// within the configured bound.
var ErrStateLockTimeout = errors.New("shared state lock acquisition timed out")

// WriteRequest is data pending to be written to the next tag.
type WriteRequest struct {
	EPC      string
	Password string
}

// SharedState holds the cross-task application state: the mode flag,
// the pending write, and the sound setting. Every access goes through
// a lock with a bounded acquisition timeout; the lock is never held
// across blocking I/O.
type SharedState struct {
	token   chan struct{}
	timeout time.Duration

	mode    Mode
	pending *WriteRequest
	sound   bool
}

// NewSharedState creates the state with sound enabled and ModeRead.
func NewSharedState(lockTimeout time.Duration) *SharedState {
	s := &SharedState{
		token:   make(chan struct{}, 1),
		timeout: lockTimeout,
		sound:   true,
	}
	s.token <- struct{}{}
	return s
}

func (s *SharedState) acquire() error {
	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case <-s.token:
		return nil
	case <-timer.C:
		return ErrStateLockTimeout
	}
}

func (s *SharedState) release() {
	s.token <- struct{}{}
}

// Mode returns the current mode.
func (s *SharedState) Mode() (Mode, error) {
	if err := s.acquire(); err != nil {
		return ModeRead, err
	}
	defer s.release()
	return s.mode, nil
}

// SetMode switches the device mode.
func (s *SharedState) SetMode(m Mode) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()
	s.mode = m
	return nil
}

// Sound reports whether audible feedback is enabled.
func (s *SharedState) Sound() (bool, error) {
	if err := s.acquire(); err != nil {
		return false, err
	}
	defer s.release()
	return s.sound, nil
}

// ToggleSound flips the sound setting and returns the new value.
func (s *SharedState) ToggleSound() (bool, error) {
	if err := s.acquire(); err != nil {
		return false, err
	}
	defer s.release()
	s.sound = !s.sound
	return s.sound, nil
}

// SetPendingWrite stages data for the writer task.
func (s *SharedState) SetPendingWrite(req WriteRequest) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()
	s.pending = &req
	return nil
}

// TakePendingWrite removes and returns the staged write, or nil.
func (s *SharedState) TakePendingWrite() (*WriteRequest, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()
	req := s.pending
	s.pending = nil
	return req, nil
}
