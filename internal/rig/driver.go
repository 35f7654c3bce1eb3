// Package rig drives a linear actuator through an H-bridge for manual
// bring-up tests: LED blink, PWM ramp, and timed extend/retract motions.
//
// Every motion guarantees that on each exit path, including interruption,
// all acquired outputs are forced to zero and released.
package rig

import (
	"context"
	"time"
)

// DigitalLine is a single GPIO output.
type DigitalLine interface {
	Set(on bool) error
	// Close releases the line. Implementations drive the line low first.
	// Close is idempotent.
	Close() error
}

// PWMChannel is a single PWM output. Channels come up with the carrier
// frequency configured and duty 0.
type PWMChannel interface {
	// SetDuty sets the duty cycle: 0 is off, 65535 is full scale.
	SetDuty(d uint16) error
	// Close releases the channel. Implementations force duty 0 first.
	// Close is idempotent.
	Close() error
}

// PWMRequest names a PWM output. Pin is the BCM GPIO number used by
// pin-addressed backends; Channel addresses sysfs and PCA9685 channels.
type PWMRequest struct {
	Pin         int
	Channel     int
	FrequencyHz int

	// Label identifies the consumer in kernel bookkeeping and logs.
	Label string
}

// Hardware opens outputs on some backend. Implementations hand out
// exclusive handles: opening an output that is already held fails.
type Hardware interface {
	OpenOutput(pin int, label string) (DigitalLine, error)
	OpenPWM(req PWMRequest) (PWMChannel, error)
	// Close releases backend-wide resources. Lines and channels are
	// closed by whoever opened them.
	Close() error
}

var afterFn = time.After

// sleep blocks for d or until ctx is canceled, reporting false on
// interruption. A context that is already canceled never waits.
func sleep(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if d <= 0 {
		return true
	}
	select {
	case <-afterFn(d):
		return true
	case <-ctx.Done():
		return false
	}
}
