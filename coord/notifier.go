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

import "context"

// notifyLoop drains the outbound queue into the wireless link.
// Records are discarded while the link is down.
func (c *Coordinator) notifyLoop(ctx context.Context) {
	for {
		out, ok := c.queue.Receive(ctx)
		if !ok {
			return
		}

		if !c.notifier.IsConnected() {
			c.log.Debug().Str("message", out.Message).Msg("link down, record discarded")
			continue
		}

		if err := c.notifier.Notify(out); err != nil {
			c.log.Error().Err(err).Str("message", out.Message).Msg("notify failed")
		}
	}
}
