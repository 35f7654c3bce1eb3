//go:build linux

package rig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/warthog618/go-gpiocdev"
)

// gpiodLine drives a BCM GPIO as a digital output through the Linux GPIO
// character device. As a PWMChannel it maps any duty > 0 to line high,
// which is only useful for relay or contactor dry tests.
type gpiodLine struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

func openGPIOLine(chipPath string, pin int, label string) (*gpiodLine, error) {
	if pin <= 0 {
		return nil, fmt.Errorf("rig: invalid gpio pin %d", pin)
	}
	consumer := "actuator-rig"
	if label != "" {
		consumer = "actuator-rig-" + label
	}

	// On Pi, line names are commonly "GPIO26", etc.
	lineName := fmt.Sprintf("GPIO%d", pin)

	var candidates []string
	if chipPath != "" {
		if !strings.HasPrefix(chipPath, "/") {
			chipPath = filepath.Join("/dev", chipPath)
		}
		candidates = []string{chipPath}
	} else {
		// Pi 5 kernel variants can expose header GPIOs on gpiochip0 and
		// sometimes additional chips exist.
		candidates = []string{"/dev/gpiochip0", "/dev/gpiochip4"}
		entries, _ := os.ReadDir("/dev")
		for _, e := range entries {
			name := e.Name()
			if strings.HasPrefix(name, "gpiochip") {
				candidates = append(candidates, filepath.Join("/dev", name))
			}
		}
	}

	for _, path := range candidates {
		chip, err := gpiocdev.NewChip(path)
		if err != nil {
			continue
		}
		offset, err := chip.FindLine(lineName)
		if err != nil {
			_ = chip.Close()
			continue
		}
		line, err := chip.RequestLine(offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer(consumer))
		if err != nil {
			_ = chip.Close()
			continue
		}
		return &gpiodLine{chip: chip, line: line}, nil
	}

	return nil, fmt.Errorf("rig: gpio line %q not found (or busy)", lineName)
}

func openGPIOOutput(chipPath string, pin int, label string) (DigitalLine, error) {
	return openGPIOLine(chipPath, pin, label)
}

func openGPIOThresholdPWM(chipPath string, pin int, label string) (PWMChannel, error) {
	return openGPIOLine(chipPath, pin, label)
}

func (g *gpiodLine) Set(on bool) error {
	if g == nil || g.line == nil {
		return fmt.Errorf("rig: gpio line not initialized")
	}
	v := 0
	if on {
		v = 1
	}
	return g.line.SetValue(v)
}

func (g *gpiodLine) SetDuty(d uint16) error {
	return g.Set(d > 0)
}

func (g *gpiodLine) Close() error {
	if g == nil || g.line == nil {
		return nil
	}
	// Leave the output low.
	_ = g.line.SetValue(0)
	err := g.line.Close()
	g.line = nil
	if g.chip != nil {
		_ = g.chip.Close()
		g.chip = nil
	}
	return err
}
