package rig

import (
	"fmt"

	"actuator-rig/internal/pca9685"
)

// pcaChannel adapts one PCA9685 channel to PWMChannel. The chip handle
// is shared; Backends.Close shuts the chip down.
type pcaChannel struct {
	dev    *pca9685.Dev
	ch     int
	closed bool
}

func newPCAChannel(dev *pca9685.Dev, ch int) (PWMChannel, error) {
	if err := dev.SetDuty(ch, 0); err != nil {
		return nil, fmt.Errorf("rig: pca9685: clear channel %d: %w", ch, err)
	}
	return &pcaChannel{dev: dev, ch: ch}, nil
}

func (c *pcaChannel) SetDuty(d uint16) error {
	if c.closed {
		return fmt.Errorf("rig: pca9685: channel %d closed", c.ch)
	}
	return c.dev.SetDuty(c.ch, d)
}

func (c *pcaChannel) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.dev.SetDuty(c.ch, 0)
}
