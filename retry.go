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
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"
)

// RetryConfig configures retry behavior
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (0 = no retry)
	MaxAttempts int
	// InitialBackoff is the initial backoff duration
	InitialBackoff time.Duration
	// MaxBackoff is the maximum backoff duration
	MaxBackoff time.Duration
	// BackoffMultiplier is the factor by which the backoff increases
	BackoffMultiplier float64
	// Jitter adds randomness to backoff to avoid lockstep retries
	Jitter float64
	// RetryTimeout is the overall timeout for all retry attempts
	RetryTimeout time.Duration
}

// DefaultRetryConfig returns a default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    10 * time.Millisecond,
		MaxBackoff:        1 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            0.1,
		RetryTimeout:      5 * time.Second,
	}
}

// WriteRetryConfig returns the retry configuration for tag write
// operations: a fixed short backoff so the operator holding the tag to
// the antenna gets several chances within the feedback window.
func WriteRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       WriteMaxAttempts,
		InitialBackoff:    WriteRetryBackoff,
		MaxBackoff:        WriteRetryBackoff,
		BackoffMultiplier: 1.0,
		RetryTimeout:      WriteRetryTimeout,
	}
}

// RetryWithConfig executes retryFunc until it succeeds, returns a
// non-retryable error, exhausts MaxAttempts, or the context ends.
func RetryWithConfig(ctx context.Context, config *RetryConfig, retryFunc func() error) error {
	if config == nil {
		config = DefaultRetryConfig()
	}
	if config.MaxAttempts <= 0 {
		return retryFunc()
	}

	if config.RetryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.RetryTimeout)
		defer cancel()
	}

	var lastErr error
	backoff := config.InitialBackoff

	for attempt := range config.MaxAttempts {
		select {
		case <-ctx.Done():
			if lastErr != nil {
				return lastErr
			}
			return fmt.Errorf("retry context cancelled: %w", ctx.Err())
		default:
		}

		err := retryFunc()
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		lastErr = err

		if attempt < config.MaxAttempts-1 {
			if err := sleepWithContext(ctx, jitteredSleep(backoff, config.Jitter)); err != nil {
				return lastErr
			}
			backoff = time.Duration(float64(backoff) * config.BackoffMultiplier)
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
		}
	}

	return lastErr
}

func sleepWithContext(ctx context.Context, sleep time.Duration) error {
	timer := time.NewTimer(sleep)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// jitteredSleep adds random jitter to a backoff duration
func jitteredSleep(base time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 {
		return base
	}
	var randBytes [8]byte
	if _, err := rand.Read(randBytes[:]); err != nil {
		return base
	}
	randFloat := float64(binary.LittleEndian.Uint64(randBytes[:])) / float64(1<<64)
	return base + time.Duration(randFloat*jitterFactor*float64(base))
}
