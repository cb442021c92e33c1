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

// Command scan is a bench tool for the R200 module: it polls for tags
// and prints them, or writes a new EPC to the first tag it sees.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	r200 "github.com/HandscanProject/go-r200"
	"github.com/HandscanProject/go-r200/transport/uart"
)

type config struct {
	port     string
	writeEPC string
	password string
	debug    bool
}

var (
	flagPort     string
	flagWriteEPC string
	flagPassword string
	flagDebug    bool
)

func init() {
	flag.StringVar(&flagPort, "port", "/dev/ttyUSB0", "Serial port of the R200 module (\"auto\" probes for one)")
	flag.StringVar(&flagWriteEPC, "write", "", "EPC (hex) to write to the next tag (exits after write)")
	flag.StringVar(&flagPassword, "password", "", "Access password (8 hex chars) for -write")
	flag.BoolVar(&flagDebug, "debug", false, "Enable debug output")
}

func main() {
	flag.Parse()
	cfg := &config{
		port:     flagPort,
		writeEPC: strings.ToUpper(flagWriteEPC),
		password: flagPassword,
		debug:    flagDebug,
	}
	if cfg.debug {
		r200.SetDebugEnabled(true)
	}

	if err := run(cfg); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config) error {
	if cfg.port == "auto" {
		port, err := detectPort()
		if err != nil {
			return err
		}
		fmt.Printf("Using %s\n", port)
		cfg.port = port
	}

	transport, err := uart.New(cfg.port)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", cfg.port, err)
	}
	defer func() { _ = transport.Close() }()

	dev, err := r200.New(transport)
	if err != nil {
		return fmt.Errorf("failed to create device: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if raw, verr := dev.Version(ctx); verr == nil {
		fmt.Printf("Module: %s\n", r200.FormatVersion(raw))
	} else if cfg.debug {
		fmt.Printf("Version query failed: %v\n", verr)
	}

	if cfg.writeEPC != "" {
		return writeMode(ctx, dev, cfg)
	}
	return readMode(ctx, dev)
}

func detectPort() (string, error) {
	candidates, err := uart.Detect()
	if err != nil {
		return "", fmt.Errorf("port detection failed: %w", err)
	}
	for _, candidate := range candidates {
		if uart.Probe(candidate, 2*time.Second) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no R200 module found on %d port(s)", len(candidates))
}

// readMode polls until interrupted, printing each decoded tag once
// per second it stays in the field.
func readMode(ctx context.Context, dev *r200.Device) error {
	fmt.Println("Polling for tags (Ctrl+C to stop)...")

	lastSeen := make(map[string]time.Time)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nStopped.")
			return nil
		case <-ticker.C:
		}

		tag, err := pollOnce(ctx, dev, 150*time.Millisecond)
		if err != nil {
			return err
		}
		if tag == nil {
			continue
		}
		if time.Since(lastSeen[tag.EPC]) > time.Second {
			fmt.Printf("Tag: %s  RSSI: %d\n", tag.EPC, int8(tag.RSSI))
		}
		lastSeen[tag.EPC] = time.Now()
	}
}

// writeMode waits for a tag, then writes the new EPC with retries.
func writeMode(ctx context.Context, dev *r200.Device, cfg *config) error {
	fmt.Printf("Place a tag near the antenna to write EPC %s...\n", cfg.writeEPC)

	for ctx.Err() == nil {
		tag, err := pollOnce(ctx, dev, 150*time.Millisecond)
		if err != nil {
			return err
		}
		if tag == nil {
			continue
		}
		fmt.Printf("Found tag %s, writing...\n", tag.EPC)

		err = r200.RetryWithConfig(ctx, r200.WriteRetryConfig(), func() error {
			if err := dev.RequestWriteEPC(cfg.writeEPC, cfg.password); err != nil {
				return err
			}
			outcome, werr := dev.WaitWriteOutcome(ctx, r200.DefaultAckTimeout)
			if werr != nil {
				return werr
			}
			if outcome.Status != r200.WriteSuccess {
				return outcome.Err()
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("write failed: %w", err)
		}
		fmt.Println("Write successful.")
		return nil
	}
	return ctx.Err()
}

func pollOnce(ctx context.Context, dev *r200.Device, window time.Duration) (*r200.Tag, error) {
	if err := dev.RequestSinglePoll(); err != nil {
		return nil, fmt.Errorf("poll request failed: %w", err)
	}
	deadline := time.Now().Add(window)
	for time.Now().Before(deadline) && ctx.Err() == nil {
		tag, err := dev.ProcessIncoming(ctx)
		if err != nil {
			return nil, fmt.Errorf("receive failed: %w", err)
		}
		if tag != nil {
			return tag, nil
		}
	}
	return nil, nil
}
