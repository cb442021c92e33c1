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

// Command handheld runs the reader firmware: the R200 tag driver, the
// firmware-update engine, and the task coordinator, bridged to an
// MQTT wireless link. Any wiring failure at boot exits nonzero so the
// platform supervisor restarts the device.
package main

import (
	"context"
	"flag"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	r200 "github.com/HandscanProject/go-r200"
	"github.com/HandscanProject/go-r200/coord"
	"github.com/HandscanProject/go-r200/indicator"
	"github.com/HandscanProject/go-r200/ota"
	"github.com/HandscanProject/go-r200/transport/uart"
)

func main() {
	configPath := flag.String("config", "/etc/handscan/config.yaml", "Path to the configuration file")
	flag.Parse()

	logger := initLogger()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("configuration unusable")
	}
	logger = logger.With().Str("device", cfg.DeviceID).Logger()

	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		r200.SetDebugEnabled(true)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	transport, err := uart.New(cfg.UART.Port)
	if err != nil {
		logger.Fatal().Err(err).Str("port", cfg.UART.Port).Msg("UHF UART unavailable")
	}
	defer func() { _ = transport.Close() }()

	dev, err := r200.New(transport)
	if err != nil {
		logger.Fatal().Err(err).Msg("reader init failed")
	}
	logReaderVersion(dev, logger)

	ind := buildIndicator(cfg.GPIO, logger)
	defer func() { _ = ind.Close() }()

	store, err := ota.NewFileStore(cfg.OTA.Dir)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.OTA.Dir).Msg("update staging unavailable")
	}
	defer func() { _ = store.Close() }()

	wireless, err := newLink(cfg.MQTT, cfg.DeviceID, ind, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("wireless link init failed")
	}

	otaCfg := ota.DefaultConfig()
	otaCfg.FastMode = cfg.OTA.FastMode
	engine := ota.New(store, wireless, ota.Hooks{
		Apply:  applyHook(store, cfg.OTA, logger),
		Reboot: rebootHook(cfg.OTA, logger),
	}, otaCfg, logger)

	coordinator := coord.New(dev, engine, wireless, ind, coord.DefaultConfig(), logger)

	if err := wireless.start(coordinator); err != nil {
		logger.Fatal().Err(err).Msg("wireless link connect failed")
	}
	defer wireless.stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go engine.Run(ctx)

	logger.Info().Msg("handheld running")
	coordinator.Run(ctx)
	logger.Info().Msg("handheld stopped")
}

func initLogger() zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).With().Timestamp().Str("app", "handheld").Logger()
}

func logReaderVersion(dev *r200.Device, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	raw, err := dev.Version(ctx)
	if err != nil {
		// The reader may still come up later; not a boot failure.
		logger.Warn().Err(err).Msg("reader version unavailable")
		return
	}
	logger.Info().Str("version", r200.FormatVersion(raw)).Msg("reader online")
}

func buildIndicator(cfg GPIOConfig, logger zerolog.Logger) indicator.Indicator {
	if cfg.Chip == "" {
		return indicator.Noop{}
	}
	ind, err := indicator.NewGPIO(indicator.Config{
		Chip:      cfg.Chip,
		BuzzerPin: cfg.BuzzerPin,
		LEDPin:    cfg.LEDPin,
	})
	if err != nil {
		logger.Warn().Err(err).Str("chip", cfg.Chip).Msg("feedback lines unavailable, continuing silent")
		return indicator.Noop{}
	}
	return ind
}

// applyHook hands a finished image to the platform update location.
func applyHook(store *ota.FileStore, cfg OTAConfig, logger zerolog.Logger) func(int64) error {
	return func(size int64) error {
		if cfg.ApplyPath == "" {
			logger.Info().Int64("bytes", size).Str("path", store.ImagePath()).Msg("image staged")
			return nil
		}
		if err := os.Rename(store.ImagePath(), cfg.ApplyPath); err != nil {
			return err
		}
		logger.Info().Int64("bytes", size).Str("path", cfg.ApplyPath).Msg("image applied")
		return nil
	}
}

func rebootHook(cfg OTAConfig, logger zerolog.Logger) func() {
	return func() {
		if cfg.RebootCommand == "" {
			logger.Info().Msg("reboot requested, no reboot command configured")
			return
		}
		logger.Info().Str("command", cfg.RebootCommand).Msg("rebooting")
		if err := exec.Command("sh", "-c", cfg.RebootCommand).Run(); err != nil {
			logger.Error().Err(err).Msg("reboot command failed")
		}
	}
}
