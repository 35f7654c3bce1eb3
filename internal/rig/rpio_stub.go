//go:build !linux || (!arm && !arm64)

package rig

import "fmt"

// Stubs for platforms without /dev/gpiomem.

func rpioEnable() error {
	return fmt.Errorf("rig: rpio unsupported on this platform")
}

func rpioDisable() {}

func openRPIOOutput(pin int) (DigitalLine, error) {
	return nil, fmt.Errorf("rig: rpio unsupported on this platform")
}

func openRPIOPWM(pin, freqHz int) (PWMChannel, error) {
	return nil, fmt.Errorf("rig: rpio unsupported on this platform")
}
