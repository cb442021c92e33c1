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
	"errors"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v2"
)

// Config is the handheld's configuration file.
type Config struct {
	// DeviceID identifies this handheld on the wireless link.
	DeviceID string `yaml:"device_id"`

	UART UARTConfig `yaml:"uart"`
	MQTT MQTTConfig `yaml:"mqtt"`
	OTA  OTAConfig  `yaml:"ota"`
	GPIO GPIOConfig `yaml:"gpio"`

	Debug bool `yaml:"debug"`
}

// UARTConfig names the serial port of the UHF front-end.
type UARTConfig struct {
	Port string `yaml:"port"`
}

// MQTTConfig holds broker connection settings.
type MQTTConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	CACert     string `yaml:"ca_cert"`
	ClientCert string `yaml:"client_cert"`
	ClientKey  string `yaml:"client_key"`
	BaseTopic  string `yaml:"base_topic"`
}

// OTAConfig controls firmware-update staging and handoff.
type OTAConfig struct {
	Dir           string `yaml:"dir"`
	ApplyPath     string `yaml:"apply_path"`
	RebootCommand string `yaml:"reboot_command"`
	FastMode      bool   `yaml:"fast_mode"`
}

// GPIOConfig names the feedback lines. An empty chip disables them.
type GPIOConfig struct {
	Chip      string `yaml:"chip"`
	BuzzerPin int    `yaml:"buzzer_pin"`
	LEDPin    int    `yaml:"led_pin"`
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.UART.Port == "" {
		return nil, errors.New("uart.port is required")
	}
	if cfg.DeviceID == "" {
		cfg.DeviceID = "handscan-0001"
	}
	if cfg.MQTT.BaseTopic == "" {
		cfg.MQTT.BaseTopic = "handscan"
	}
	if cfg.OTA.Dir == "" {
		cfg.OTA.Dir = "/var/lib/handscan/ota"
	}

	return &cfg, nil
}
