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

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
device_id: scanner-07
uart:
  port: /dev/ttyS2
mqtt:
  host: broker.local
  port: 1883
  base_topic: warehouse
ota:
  dir: /tmp/ota
  fast_mode: true
gpio:
  chip: gpiochip0
  buzzer_pin: 17
  led_pin: 27
debug: true
`)

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "scanner-07", cfg.DeviceID)
	assert.Equal(t, "/dev/ttyS2", cfg.UART.Port)
	assert.Equal(t, "broker.local", cfg.MQTT.Host)
	assert.Equal(t, 1883, cfg.MQTT.Port)
	assert.Equal(t, "warehouse", cfg.MQTT.BaseTopic)
	assert.Equal(t, "/tmp/ota", cfg.OTA.Dir)
	assert.True(t, cfg.OTA.FastMode)
	assert.Equal(t, "gpiochip0", cfg.GPIO.Chip)
	assert.Equal(t, 17, cfg.GPIO.BuzzerPin)
	assert.True(t, cfg.Debug)
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
uart:
  port: /dev/ttyS2
`)

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "handscan-0001", cfg.DeviceID)
	assert.Equal(t, "handscan", cfg.MQTT.BaseTopic)
	assert.Equal(t, "/var/lib/handscan/ota", cfg.OTA.Dir)
	assert.False(t, cfg.OTA.FastMode)
}

func TestLoadConfigRequiresPort(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `device_id: scanner-07`)
	_, err := loadConfig(path)
	require.ErrorContains(t, err, "uart.port")
}

func TestLoadConfigBadYAML(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "uart: [")
	_, err := loadConfig(path)
	require.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Parallel()

	_, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestIntentKindMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		msgType string
		want    string
	}{
		{"changeMode", "changeMode"},
		{"writeData", "writeData"},
		{"toggleSound", "toggleSound"},
		{"garbage", "unknown"},
	}
	for _, tt := range tests {
		kind := intentKind(tt.msgType)
		if tt.want == "unknown" {
			assert.Equal(t, 0, int(kind))
		} else {
			assert.NotEqual(t, 0, int(kind), "type %s should map to a known intent", tt.msgType)
		}
	}
}
