package rig

import (
	"context"
	"fmt"
	"log"
	"time"
)

// LEDParams configure TestLED.
type LEDParams struct {
	Pin      int
	On       time.Duration
	Off      time.Duration
	Duration time.Duration
}

// TestLED blinks the pin until Duration has elapsed: On high, Off low,
// with the time bound re-checked between the two phases so the last
// cycle can be cut short. The pin is driven low and released on every
// exit path.
func TestLED(ctx context.Context, hw Hardware, p LEDParams) error {
	if p.Pin <= 0 {
		return fmt.Errorf("rig: invalid led pin %d", p.Pin)
	}
	if p.On <= 0 || p.Off <= 0 {
		return fmt.Errorf("rig: led on/off times must be positive")
	}
	if p.Duration <= 0 {
		return fmt.Errorf("rig: led test duration must be positive")
	}

	line, err := hw.OpenOutput(p.Pin, "led")
	if err != nil {
		return fmt.Errorf("rig: open led pin: %w", err)
	}
	defer func() {
		if err := line.Set(false); err != nil {
			log.Printf("led test: clearing pin %d failed: %v", p.Pin, err)
		}
		if err := line.Close(); err != nil {
			log.Printf("led test: releasing pin %d failed: %v", p.Pin, err)
		}
	}()

	log.Printf("testing led: pin=%d on=%s off=%s duration=%s", p.Pin, p.On, p.Off, p.Duration)
	start := time.Now()
	for time.Since(start) < p.Duration {
		if err := line.Set(true); err != nil {
			return fmt.Errorf("rig: led on: %w", err)
		}
		if !sleep(ctx, p.On) {
			log.Printf("led test interrupted (on phase)")
			return nil
		}
		if time.Since(start) >= p.Duration {
			break
		}
		if err := line.Set(false); err != nil {
			return fmt.Errorf("rig: led off: %w", err)
		}
		if !sleep(ctx, p.Off) {
			log.Printf("led test interrupted (off phase)")
			return nil
		}
	}
	log.Printf("led test complete after %s", time.Since(start).Round(time.Millisecond))
	return nil
}
