package pca9685

import (
	"fmt"
	"math"
	"time"

	"actuator-rig/internal/i2c"
)

var sleep = time.Sleep

// Driver for the NXP PCA9685 16-channel 12-bit PWM controller.
//
// One prescaler feeds all channels, so the chip runs a single carrier
// frequency. Duty values are accepted in the 16-bit range and folded
// onto the chip's 12-bit counter.

const (
	addrDefault = 0x40

	numChannels = 16

	// Internal oscillator.
	oscHz = 25_000_000

	// Reachable output frequencies given the 8-bit prescaler.
	minHz = 24
	maxHz = 1526

	regMode1    = 0x00
	regMode2    = 0x01
	regLed0OnL  = 0x06
	regAllOnL   = 0xFA
	regPrescale = 0xFE

	mode1Restart = 0x80
	mode1AI      = 0x20
	mode1Sleep   = 0x10

	mode2OutDrv = 0x04

	// Bit 4 of the ON_H/OFF_H registers forces the channel fully on/off.
	fullBit = 0x10
)

type regIO interface {
	ReadRegU8(reg byte) (byte, error)
	WriteReg(reg, value byte) error
	WriteRegs(reg byte, values ...byte) error
}

// Dev is an initialized PCA9685.
type Dev struct {
	dev regIO
}

func DefaultAddress() uint16 { return addrDefault }

func New(dev *i2c.Dev) (*Dev, error) {
	if dev == nil {
		return nil, fmt.Errorf("pca9685: dev is nil")
	}
	return newWithIO(dev)
}

func newWithIO(dev regIO) (*Dev, error) {
	if dev == nil {
		return nil, fmt.Errorf("pca9685: dev is nil")
	}
	d := &Dev{dev: dev}

	// Wake the oscillator with register auto-increment on. The chip has
	// no ID register, so reading the mode back is the liveness check.
	if err := d.dev.WriteReg(regMode1, mode1AI); err != nil {
		return nil, fmt.Errorf("pca9685: mode1 write failed: %w", err)
	}
	mode, err := d.dev.ReadRegU8(regMode1)
	if err != nil {
		return nil, fmt.Errorf("pca9685: mode1 read failed: %w", err)
	}
	if mode&mode1AI == 0 {
		return nil, fmt.Errorf("pca9685: chip not responding (mode1=0x%02X)", mode)
	}
	// Datasheet: allow 500us for the oscillator after clearing SLEEP.
	sleep(500 * time.Microsecond)

	// Totem-pole outputs, all channels forced off.
	if err := d.dev.WriteReg(regMode2, mode2OutDrv); err != nil {
		return nil, fmt.Errorf("pca9685: mode2 write failed: %w", err)
	}
	if err := d.allOff(); err != nil {
		return nil, err
	}
	return d, nil
}

// SetFrequencyHz programs the carrier for all channels. The chip must be
// put to sleep to change the prescaler, so outputs glitch briefly.
func (d *Dev) SetFrequencyHz(hz int) error {
	if hz < minHz || hz > maxHz {
		return fmt.Errorf("pca9685: frequency %d out of range %d..%d", hz, minHz, maxHz)
	}
	prescale := int(math.Round(oscHz/(4096.0*float64(hz)))) - 1
	if prescale < 3 {
		prescale = 3
	}
	if prescale > 255 {
		prescale = 255
	}

	mode, err := d.dev.ReadRegU8(regMode1)
	if err != nil {
		return fmt.Errorf("pca9685: mode1 read failed: %w", err)
	}
	// Prescale is writable only while SLEEP is set.
	if err := d.dev.WriteReg(regMode1, (mode&^mode1Restart)|mode1Sleep); err != nil {
		return fmt.Errorf("pca9685: sleep failed: %w", err)
	}
	if err := d.dev.WriteReg(regPrescale, byte(prescale)); err != nil {
		return fmt.Errorf("pca9685: prescale write failed: %w", err)
	}
	if err := d.dev.WriteReg(regMode1, mode&^(mode1Sleep|mode1Restart)); err != nil {
		return fmt.Errorf("pca9685: wake failed: %w", err)
	}
	sleep(500 * time.Microsecond)
	if err := d.dev.WriteReg(regMode1, (mode&^mode1Sleep)|mode1Restart); err != nil {
		return fmt.Errorf("pca9685: restart failed: %w", err)
	}
	return nil
}

// SetDuty sets one channel's duty cycle, 0..65535 full scale.
func (d *Dev) SetDuty(channel int, duty uint16) error {
	if channel < 0 || channel >= numChannels {
		return fmt.Errorf("pca9685: channel %d out of range 0..%d", channel, numChannels-1)
	}
	var on, off uint16
	switch duty {
	case 0:
		off = fullBit << 8
	case 0xFFFF:
		on = fullBit << 8
	default:
		off = duty >> 4
	}
	reg := byte(regLed0OnL + 4*channel)
	if err := d.dev.WriteRegs(reg, byte(on), byte(on>>8), byte(off), byte(off>>8)); err != nil {
		return fmt.Errorf("pca9685: channel %d write failed: %w", channel, err)
	}
	return nil
}

// Close forces every channel off and puts the oscillator to sleep.
func (d *Dev) Close() error {
	offErr := d.allOff()
	mode, err := d.dev.ReadRegU8(regMode1)
	if err == nil {
		_ = d.dev.WriteReg(regMode1, (mode&^mode1Restart)|mode1Sleep)
	}
	return offErr
}

func (d *Dev) allOff() error {
	if err := d.dev.WriteRegs(regAllOnL, 0, 0, 0, fullBit); err != nil {
		return fmt.Errorf("pca9685: all-off write failed: %w", err)
	}
	return nil
}
