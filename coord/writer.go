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
	"context"
	"fmt"

	r200 "github.com/HandscanProject/go-r200"
)

// writeLoop waits for staged write data and performs the write cycle.
func (c *Coordinator) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.writeKick:
		}

		req, err := c.state.TakePendingWrite()
		if err != nil {
			c.log.Error().Err(err).Msg("pending write unavailable")
			continue
		}
		if req == nil {
			continue
		}
		c.performWrite(ctx, *req)
	}
}

// performWrite holds the transport lease for the whole attempt cycle:
// request, acknowledgement wait, and every retry in between. The retry
// policy itself lives in r200.RetryWithConfig.
func (c *Coordinator) performWrite(ctx context.Context, req WriteRequest) {
	if err := c.lease.Acquire(ctx); err != nil {
		return
	}
	defer c.lease.Release()

	retry := &r200.RetryConfig{
		MaxAttempts:       c.cfg.WriteAttempts,
		InitialBackoff:    c.cfg.WriteBackoff,
		MaxBackoff:        c.cfg.WriteBackoff,
		BackoffMultiplier: 1.0,
	}

	attempt := 0
	rejected := false
	err := r200.RetryWithConfig(ctx, retry, func() error {
		attempt++
		if err := c.dev.RequestWriteEPC(req.EPC, req.Password); err != nil {
			rejected = !r200.IsRetryable(err)
			return err
		}

		outcome, err := c.dev.WaitWriteOutcome(ctx, c.cfg.AckWindow)
		if err != nil {
			c.log.Warn().Err(err).Int("attempt", attempt).Msg("no write acknowledgement")
			return err
		}
		if outcome.Status != r200.WriteSuccess {
			err := outcome.Err()
			if r200.IsRetryable(err) {
				c.log.Warn().Err(err).Int("attempt", attempt).Msg("write attempt failed")
			}
			return err
		}
		return nil
	})

	switch {
	case err == nil:
		c.log.Info().Str("epc", req.EPC).Int("attempt", attempt).Msg("tag written")
		c.publish(Outcome{Status: StatusSuccess, Message: "Tag written", UID: req.EPC})
		c.feedback.Raise()
	case rejected:
		c.log.Error().Err(err).Str("epc", req.EPC).Msg("write rejected")
		c.publish(Outcome{Status: StatusError, Message: "Write rejected: " + err.Error()})
	case !r200.IsRetryable(err):
		c.log.Error().Err(err).Str("epc", req.EPC).Msg("write refused by tag")
		c.publish(Outcome{Status: StatusError, Message: "Write failed: " + err.Error()})
	default:
		msg := fmt.Sprintf("Write failed after %d attempts: %s", c.cfg.WriteAttempts, err)
		c.log.Error().Str("epc", req.EPC).Msg(msg)
		c.publish(Outcome{Status: StatusError, Message: msg})
	}
}
