//go:build linux && (arm || arm64)

package rig

import (
	"fmt"
	"math"

	"github.com/stianeikeland/go-rpio/v4"
)

// Memory-mapped BCM283x GPIO backend. Works on Pi 3/4 class boards; the
// character device or sysfs backends are the safer choice on Pi 5.

// rpioCycle is the PWM cycle length. Full 16-bit resolution at 1 kHz
// would need a 65.5 MHz PWM clock, far beyond the chip's 19.2 MHz
// ceiling, so the duty is folded onto a 4096-step cycle instead.
const rpioCycle = 4096

const (
	rpioClockMin = 4688
	rpioClockMax = 19_200_000
)

// hwPWMPins are the BCM pins with a PWM alt function.
var hwPWMPins = map[int]bool{
	12: true, 13: true, 18: true, 19: true, 40: true, 41: true, 45: true,
}

func rpioEnable() error {
	if err := rpio.Open(); err != nil {
		return fmt.Errorf("rig: rpio: map gpio registers: %w", err)
	}
	return nil
}

func rpioDisable() {
	_ = rpio.Close()
}

type rpioOutput struct {
	pin    rpio.Pin
	closed bool
}

func openRPIOOutput(pin int) (DigitalLine, error) {
	if pin <= 0 {
		return nil, fmt.Errorf("rig: rpio: invalid gpio pin %d", pin)
	}
	p := rpio.Pin(pin)
	p.Output()
	p.Low()
	return &rpioOutput{pin: p}, nil
}

func (o *rpioOutput) Set(on bool) error {
	if o.closed {
		return fmt.Errorf("rig: rpio: pin %d closed", int(o.pin))
	}
	if on {
		o.pin.High()
	} else {
		o.pin.Low()
	}
	return nil
}

func (o *rpioOutput) Close() error {
	if o.closed {
		return nil
	}
	o.closed = true
	o.pin.Low()
	return nil
}

type rpioPWM struct {
	pin    rpio.Pin
	closed bool
}

func openRPIOPWM(pin, freqHz int) (PWMChannel, error) {
	if !hwPWMPins[pin] {
		return nil, fmt.Errorf("rig: rpio: gpio %d has no hardware pwm (use 12, 13, 18 or 19)", pin)
	}
	clock := freqHz * rpioCycle
	if clock < rpioClockMin || clock > rpioClockMax {
		return nil, fmt.Errorf("rig: rpio: carrier %d Hz needs pwm clock %d, outside %d..%d", freqHz, clock, rpioClockMin, rpioClockMax)
	}
	p := rpio.Pin(pin)
	p.Mode(rpio.Pwm)
	p.Freq(clock)
	p.DutyCycle(0, rpioCycle)
	return &rpioPWM{pin: p}, nil
}

func (c *rpioPWM) SetDuty(d uint16) error {
	if c.closed {
		return fmt.Errorf("rig: rpio: pwm pin %d closed", int(c.pin))
	}
	scaled := uint32(math.Round(float64(d) * rpioCycle / float64(maxDuty)))
	c.pin.DutyCycle(scaled, rpioCycle)
	return nil
}

func (c *rpioPWM) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.pin.DutyCycle(0, rpioCycle)
	// Back to a plain low output so the line cannot float into the
	// H-bridge enable threshold.
	c.pin.Mode(rpio.Output)
	c.pin.Low()
	return nil
}
