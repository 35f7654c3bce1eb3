//go:build !linux

package rig

import "fmt"

func openSysfsPWM(chip, channel, freqHz int) (PWMChannel, error) {
	return nil, fmt.Errorf("rig: sysfs pwm unsupported on this platform")
}
