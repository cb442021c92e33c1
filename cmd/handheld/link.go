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
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/HandscanProject/go-r200/coord"
	"github.com/HandscanProject/go-r200/indicator"
)

// envelope is the JSON wire format for application messages. The core
// packages never see it; encoding stops at this adapter.
type envelope struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// outcomeRecord is the JSON shape of one outbound notification.
type outcomeRecord struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	UID     string `json:"uid,omitempty"`
	Data    string `json:"data,omitempty"`
}

// link carries intents, notifications, and update traffic over MQTT.
// It implements coord.Notifier and ota.Sink.
type link struct {
	client paho.Client
	coord  *coord.Coordinator
	ind    indicator.Indicator
	log    zerolog.Logger

	intentTopic    string
	updateInTopic  string
	eventTopic     string
	updateOutTopic string
}

func newLink(cfg MQTTConfig, deviceID string, ind indicator.Indicator, logger zerolog.Logger) (*link, error) {
	l := &link{
		ind: ind,
		log: logger.With().Str("component", "link").Logger(),

		intentTopic:    cfg.BaseTopic + "/" + deviceID + "/in",
		updateInTopic:  cfg.BaseTopic + "/" + deviceID + "/ota/in",
		eventTopic:     cfg.BaseTopic + "/" + deviceID + "/out",
		updateOutTopic: cfg.BaseTopic + "/" + deviceID + "/ota/out",
	}

	broker := fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port)
	var tlsConfig *tls.Config
	if cfg.CACert != "" || cfg.ClientCert != "" {
		broker = fmt.Sprintf("ssl://%s:%d", cfg.Host, cfg.Port)
		var err error
		tlsConfig, err = buildTLSConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("build TLS config: %w", err)
		}
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(deviceID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetKeepAlive(60 * time.Second).
		SetOnConnectHandler(l.handleConnect).
		SetConnectionLostHandler(l.handleConnectionLost)

	if tlsConfig != nil {
		opts.SetTLSConfig(tlsConfig)
	}

	l.client = paho.NewClient(opts)
	return l, nil
}

func buildTLSConfig(cfg MQTTConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}

	if cfg.CACert != "" {
		caCert, err := os.ReadFile(cfg.CACert)
		if err != nil {
			return nil, fmt.Errorf("read CA cert: %w", err)
		}
		caPool := x509.NewCertPool()
		caPool.AppendCertsFromPEM(caCert)
		tlsConfig.RootCAs = caPool
	}

	if cfg.ClientCert != "" && cfg.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCert, cfg.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

// start connects and binds inbound traffic to the coordinator.
func (l *link) start(c *coord.Coordinator) error {
	l.coord = c
	if token := l.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect: %w", token.Error())
	}
	return nil
}

func (l *link) stop() {
	l.client.Disconnect(250)
	l.ind.SetLink(false)
}

func (l *link) handleConnect(_ paho.Client) {
	l.log.Info().Str("topic", l.intentTopic).Msg("link up")
	l.ind.SetLink(true)

	if token := l.client.Subscribe(l.intentTopic, 1, l.handleIntentMessage); token.Wait() && token.Error() != nil {
		l.log.Error().Err(token.Error()).Msg("intent subscribe failed")
	}
	if token := l.client.Subscribe(l.updateInTopic, 1, l.handleUpdateMessage); token.Wait() && token.Error() != nil {
		l.log.Error().Err(token.Error()).Msg("update subscribe failed")
	}
}

func (l *link) handleConnectionLost(_ paho.Client, err error) {
	l.log.Warn().Err(err).Msg("link down")
	l.ind.SetLink(false)
}

func (l *link) handleIntentMessage(_ paho.Client, msg paho.Message) {
	var env envelope
	if err := json.Unmarshal(msg.Payload(), &env); err != nil {
		l.log.Warn().Err(err).Msg("undecodable intent")
		l.coord.HandleIntent(coord.Intent{Kind: coord.IntentUnknown})
		return
	}
	l.coord.HandleIntent(coord.Intent{Kind: intentKind(env.Type), Content: env.Content})
}

func (l *link) handleUpdateMessage(_ paho.Client, msg paho.Message) {
	l.coord.HandleUpdateMessage(msg.Payload())
}

func intentKind(msgType string) coord.IntentKind {
	switch msgType {
	case "changeMode":
		return coord.IntentChangeMode
	case "writeData":
		return coord.IntentWriteData
	case "toggleSound":
		return coord.IntentToggleSound
	default:
		return coord.IntentUnknown
	}
}

// Notify publishes one outbound record as JSON.
func (l *link) Notify(out coord.Outcome) error {
	payload, err := json.Marshal(outcomeRecord{
		Status:  string(out.Status),
		Message: out.Message,
		UID:     out.UID,
		Data:    out.Data,
	})
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if token := l.client.Publish(l.eventTopic, 1, false, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish record: %w", token.Error())
	}
	return nil
}

// IsConnected reports link status for the notifier's drop policy.
func (l *link) IsConnected() bool {
	return l.client.IsConnectionOpen()
}

// SendUpdate publishes one raw update message: opcode then payload.
func (l *link) SendUpdate(opcode byte, payload []byte) error {
	msg := append([]byte{opcode}, payload...)
	if token := l.client.Publish(l.updateOutTopic, 1, false, msg); token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish update message: %w", token.Error())
	}
	return nil
}
