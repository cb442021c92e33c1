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

// Package indicator drives the handheld's buzzer and link LED.
package indicator

import (
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// Indicator gives the operator audible and visible feedback.
type Indicator interface {
	// Beep pulses the buzzer once. Must not block the caller.
	Beep()
	// SetLink lights the LED while the wireless link is up.
	SetLink(up bool)
	// Close releases the underlying lines.
	Close() error
}

// Config names the GPIO chip and line offsets.
type Config struct {
	Chip      string
	BuzzerPin int
	LEDPin    int
	BeepPulse time.Duration
}

// GPIO drives real lines through the character device.
type GPIO struct {
	buzzer *gpiocdev.Line
	led    *gpiocdev.Line
	pulse  time.Duration
	beeps  chan struct{}
	done   chan struct{}
}

// NewGPIO requests the buzzer and LED lines as outputs.
func NewGPIO(cfg Config) (*GPIO, error) {
	buzzer, err := gpiocdev.RequestLine(cfg.Chip, cfg.BuzzerPin, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, err
	}
	led, err := gpiocdev.RequestLine(cfg.Chip, cfg.LEDPin, gpiocdev.AsOutput(0))
	if err != nil {
		_ = buzzer.Close()
		return nil, err
	}

	pulse := cfg.BeepPulse
	if pulse <= 0 {
		pulse = 50 * time.Millisecond
	}

	g := &GPIO{
		buzzer: buzzer,
		led:    led,
		pulse:  pulse,
		beeps:  make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go g.buzzLoop()
	return g, nil
}

// buzzLoop serializes pulses so overlapping beeps coalesce.
func (g *GPIO) buzzLoop() {
	for {
		select {
		case <-g.done:
			return
		case <-g.beeps:
			_ = g.buzzer.SetValue(1)
			time.Sleep(g.pulse)
			_ = g.buzzer.SetValue(0)
		}
	}
}

// Beep schedules one buzzer pulse.
func (g *GPIO) Beep() {
	select {
	case g.beeps <- struct{}{}:
	default:
	}
}

// SetLink lights the link LED.
func (g *GPIO) SetLink(up bool) {
	v := 0
	if up {
		v = 1
	}
	_ = g.led.SetValue(v)
}

// Close stops the buzzer loop and releases both lines.
func (g *GPIO) Close() error {
	close(g.done)
	err := g.buzzer.Close()
	if lerr := g.led.Close(); err == nil {
		err = lerr
	}
	return err
}

// Noop satisfies Indicator on hardware without a buzzer or LED.
type Noop struct{}

func (Noop) Beep()        {}
func (Noop) SetLink(bool) {}
func (Noop) Close() error { return nil }
