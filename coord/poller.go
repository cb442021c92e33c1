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
	"time"

	r200 "github.com/HandscanProject/go-r200"
)

// pollLoop polls for tags while in read mode. Each cycle takes the
// transport lease so it never interleaves with a write cycle; when the
// lease is busy the poll is simply skipped until the next tick.
func (c *Coordinator) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		mode, err := c.state.Mode()
		if err != nil {
			c.log.Error().Err(err).Msg("mode unavailable, skipping poll")
			continue
		}
		if mode != ModeRead {
			continue
		}

		if !c.lease.TryAcquire(c.cfg.LeaseWait) {
			continue
		}
		tag := c.pollOnce(ctx)
		c.lease.Release()

		if tag != nil {
			c.log.Debug().Str("epc", tag.EPC).Uint8("rssi", tag.RSSI).Msg("tag found")
			c.publish(Outcome{Status: StatusSuccess, Message: "Tag found", UID: tag.EPC})
			c.feedback.Raise()
		}
	}
}

// pollOnce issues a single poll and pumps the receive path until a tag
// decodes or the response window closes.
func (c *Coordinator) pollOnce(ctx context.Context) *r200.Tag {
	if err := c.dev.RequestSinglePoll(); err != nil {
		c.log.Error().Err(err).Msg("poll request failed")
		return nil
	}

	deadline := time.Now().Add(c.cfg.PollResponseWindow)
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return nil
		}
		tag, err := c.dev.ProcessIncoming(ctx)
		if err != nil {
			c.log.Error().Err(err).Msg("receive failed during poll")
			return nil
		}
		if tag != nil {
			return tag
		}
	}
	return nil
}
