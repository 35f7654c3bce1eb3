package rig

import (
	"context"
	"fmt"
	"log"
	"time"
)

const rampStep = 1000

var (
	rampStepDelay = 50 * time.Millisecond
	rampHold      = time.Second
)

// PWMTestParams configure TestPWM.
type PWMTestParams struct {
	Pin         int
	Channel     int
	FrequencyHz int
	Duration    time.Duration
}

// TestPWM sweeps a PWM output until Duration has elapsed: ramp 0 to full
// scale in steps of 1000 at 50 ms per step, hold full scale for 1 s,
// ramp back down the same way, hold 0 for 1 s. The time bound is
// re-checked before every step and between phases. Duty is forced to 0
// and the channel released on every exit path.
func TestPWM(ctx context.Context, hw Hardware, p PWMTestParams) error {
	if p.Pin <= 0 {
		return fmt.Errorf("rig: invalid pwm pin %d", p.Pin)
	}
	if p.Duration <= 0 {
		return fmt.Errorf("rig: pwm test duration must be positive")
	}
	hz := p.FrequencyHz
	if hz <= 0 {
		hz = defaultFrequencyHz
	}

	ch, err := hw.OpenPWM(PWMRequest{Pin: p.Pin, Channel: p.Channel, FrequencyHz: hz, Label: "pwm-test"})
	if err != nil {
		return fmt.Errorf("rig: open pwm: %w", err)
	}
	defer zeroAndClose(ch, "pwm-test")

	log.Printf("testing pwm: pin=%d channel=%d carrier=%dHz duration=%s", p.Pin, p.Channel, hz, p.Duration)
	start := time.Now()
	expired := func() bool { return time.Since(start) >= p.Duration }

sweep:
	for !expired() {
		for d := 0; d < maxDuty; d += rampStep {
			if expired() {
				break sweep
			}
			if err := ch.SetDuty(uint16(d)); err != nil {
				return fmt.Errorf("rig: pwm ramp up: %w", err)
			}
			if !sleep(ctx, rampStepDelay) {
				log.Printf("pwm test interrupted (ramp up)")
				return nil
			}
		}
		if expired() {
			break
		}
		if err := ch.SetDuty(maxDuty); err != nil {
			return fmt.Errorf("rig: pwm hold high: %w", err)
		}
		if !sleep(ctx, rampHold) {
			log.Printf("pwm test interrupted (hold high)")
			return nil
		}
		if expired() {
			break
		}
		for d := maxDuty; d > 0; d -= rampStep {
			if expired() {
				break sweep
			}
			if err := ch.SetDuty(uint16(d)); err != nil {
				return fmt.Errorf("rig: pwm ramp down: %w", err)
			}
			if !sleep(ctx, rampStepDelay) {
				log.Printf("pwm test interrupted (ramp down)")
				return nil
			}
		}
		if expired() {
			break
		}
		if err := ch.SetDuty(0); err != nil {
			return fmt.Errorf("rig: pwm hold low: %w", err)
		}
		if !sleep(ctx, rampHold) {
			log.Printf("pwm test interrupted (hold low)")
			return nil
		}
	}
	log.Printf("pwm test complete after %s", time.Since(start).Round(time.Millisecond))
	return nil
}

// zeroAndClose forces a channel to duty 0 and releases it, logging
// failures.
func zeroAndClose(ch PWMChannel, name string) {
	if err := ch.SetDuty(0); err != nil {
		log.Printf("clearing %s duty failed: %v", name, err)
	}
	if err := ch.Close(); err != nil {
		log.Printf("releasing %s failed: %v", name, err)
	}
}
