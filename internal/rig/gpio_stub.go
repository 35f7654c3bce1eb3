//go:build !linux

package rig

import "fmt"

// Stub implementations for non-Linux platforms.

func openGPIOOutput(chipPath string, pin int, label string) (DigitalLine, error) {
	return nil, fmt.Errorf("rig: gpio character device unsupported on this platform")
}

func openGPIOThresholdPWM(chipPath string, pin int, label string) (PWMChannel, error) {
	return nil, fmt.Errorf("rig: gpio character device unsupported on this platform")
}
