package rig

import (
	"context"
	"fmt"
	"log"
	"time"
)

// deadBand is the pause between opposing directions. Reversing an
// H-bridge under load with no gap hammers the gearing and can shoot
// current through both half-bridges.
var deadBand = 500 * time.Millisecond

// DriveParams configure the actuator motions.
type DriveParams struct {
	ExtendPin  int // RPWM
	RetractPin int // LPWM

	// Channel numbers for channel-addressed PWM backends.
	ExtendChannel  int
	RetractChannel int

	FrequencyHz int
	Speed       int // percent, 0..100
	Duration    time.Duration
}

func (p DriveParams) validate() error {
	if p.ExtendPin <= 0 || p.RetractPin <= 0 {
		return fmt.Errorf("rig: invalid actuator pins %d/%d", p.ExtendPin, p.RetractPin)
	}
	if p.ExtendPin == p.RetractPin {
		return fmt.Errorf("rig: extend and retract pins must differ")
	}
	if p.ExtendChannel == p.RetractChannel {
		return fmt.Errorf("rig: extend and retract channels must differ")
	}
	if p.Duration <= 0 {
		return fmt.Errorf("rig: drive duration must be positive")
	}
	return nil
}

func (p DriveParams) carrier() int {
	if p.FrequencyHz > 0 {
		return p.FrequencyHz
	}
	return defaultFrequencyHz
}

func (p DriveParams) extendReq() PWMRequest {
	return PWMRequest{Pin: p.ExtendPin, Channel: p.ExtendChannel, FrequencyHz: p.carrier(), Label: "extend"}
}

func (p DriveParams) retractReq() PWMRequest {
	return PWMRequest{Pin: p.RetractPin, Channel: p.RetractChannel, FrequencyHz: p.carrier(), Label: "retract"}
}

// RunOneCycle extends for Duration, pauses for the dead band, then
// retracts for Duration. Both channels are acquired up front; on every
// exit path both are forced to duty 0 and released. At no point do both
// directions carry a nonzero duty.
func RunOneCycle(ctx context.Context, hw Hardware, p DriveParams) error {
	if err := p.validate(); err != nil {
		return err
	}
	duty := DutyFromPercent(p.Speed)
	log.Printf("actuator cycle: speed=%d%% duty=%d duration=%s", p.Speed, duty, p.Duration)

	ext, err := hw.OpenPWM(p.extendReq())
	if err != nil {
		return fmt.Errorf("rig: open extend pwm: %w", err)
	}
	ret, err := hw.OpenPWM(p.retractReq())
	if err != nil {
		zeroAndClose(ext, "extend")
		return fmt.Errorf("rig: open retract pwm: %w", err)
	}
	defer zeroAndClose(ret, "retract")
	defer zeroAndClose(ext, "extend")

	// Quiet the opposing side before driving.
	if err := ret.SetDuty(0); err != nil {
		return fmt.Errorf("rig: clear retract: %w", err)
	}

	log.Printf("extending: duty=%d for %s", duty, p.Duration)
	if err := ext.SetDuty(duty); err != nil {
		return fmt.Errorf("rig: drive extend: %w", err)
	}
	if !sleep(ctx, p.Duration) {
		log.Printf("actuator cycle interrupted (extend)")
		return nil
	}
	if err := ext.SetDuty(0); err != nil {
		return fmt.Errorf("rig: stop extend: %w", err)
	}

	log.Printf("pausing %s before reversing", deadBand)
	if !sleep(ctx, deadBand) {
		log.Printf("actuator cycle interrupted (pause)")
		return nil
	}

	log.Printf("retracting: duty=%d for %s", duty, p.Duration)
	if err := ret.SetDuty(duty); err != nil {
		return fmt.Errorf("rig: drive retract: %w", err)
	}
	if !sleep(ctx, p.Duration) {
		log.Printf("actuator cycle interrupted (retract)")
		return nil
	}
	log.Printf("actuator cycle complete")
	return nil
}

// ExtendOnly drives the extend channel at Speed for Duration. Only the
// extend channel is acquired; the retract side is left untouched. The
// channel is forced to duty 0 and released on every exit path.
func ExtendOnly(ctx context.Context, hw Hardware, p DriveParams) error {
	if p.ExtendPin <= 0 {
		return fmt.Errorf("rig: invalid extend pin %d", p.ExtendPin)
	}
	if p.Duration <= 0 {
		return fmt.Errorf("rig: drive duration must be positive")
	}
	duty := DutyFromPercent(p.Speed)

	ext, err := hw.OpenPWM(p.extendReq())
	if err != nil {
		return fmt.Errorf("rig: open extend pwm: %w", err)
	}
	defer zeroAndClose(ext, "extend")

	log.Printf("extending: duty=%d for %s", duty, p.Duration)
	if err := ext.SetDuty(duty); err != nil {
		return fmt.Errorf("rig: drive extend: %w", err)
	}
	if !sleep(ctx, p.Duration) {
		log.Printf("extend interrupted")
		return nil
	}
	log.Printf("extend complete")
	return nil
}

// RetractOnly drives the retract channel at Speed for Duration. Both
// channels are acquired and the extend side is held at duty 0 while the
// motion runs; on every exit path both are forced to 0 and released.
func RetractOnly(ctx context.Context, hw Hardware, p DriveParams) error {
	if err := p.validate(); err != nil {
		return err
	}
	duty := DutyFromPercent(p.Speed)

	ext, err := hw.OpenPWM(p.extendReq())
	if err != nil {
		return fmt.Errorf("rig: open extend pwm: %w", err)
	}
	ret, err := hw.OpenPWM(p.retractReq())
	if err != nil {
		zeroAndClose(ext, "extend")
		return fmt.Errorf("rig: open retract pwm: %w", err)
	}
	defer zeroAndClose(ret, "retract")
	defer zeroAndClose(ext, "extend")

	// Hold the extend side at zero while reversing.
	if err := ext.SetDuty(0); err != nil {
		return fmt.Errorf("rig: clear extend: %w", err)
	}

	log.Printf("retracting: duty=%d for %s", duty, p.Duration)
	if err := ret.SetDuty(duty); err != nil {
		return fmt.Errorf("rig: drive retract: %w", err)
	}
	if !sleep(ctx, p.Duration) {
		log.Printf("retract interrupted")
		return nil
	}
	log.Printf("retract complete")
	return nil
}
