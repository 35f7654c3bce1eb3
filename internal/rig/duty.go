package rig

import "math"

const (
	// maxDuty is full scale for the 16-bit duty range.
	maxDuty = 0xFFFF

	// defaultFrequencyHz is the PWM carrier used when a request does not
	// specify one. 1 kHz is well inside what a DC motor H-bridge accepts.
	defaultFrequencyHz = 1000
)

// DutyFromPercent maps a speed in percent to a 16-bit duty value.
// Inputs outside 0..100 are clamped.
func DutyFromPercent(p int) uint16 {
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	return uint16(math.Round(float64(p) * maxDuty / 100.0))
}
