// Package config loads the rig configuration from YAML and fills in
// the defaults the original bench setup used.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Hardware HardwareConfig `yaml:"hardware"`
	LED      LEDConfig      `yaml:"led"`
	PWMTest  PWMTestConfig  `yaml:"pwm_test"`
	Actuator ActuatorConfig `yaml:"actuator"`
	LockFile string         `yaml:"lock_file"`
}

type HardwareConfig struct {
	GPIOBackend string `yaml:"gpio_backend"`
	PWMBackend  string `yaml:"pwm_backend"`
	GPIOChip    string `yaml:"gpio_chip"`
	PWMChip     int    `yaml:"pwm_chip"`
	I2CBus      string `yaml:"i2c_bus"`
	I2CAddr     uint16 `yaml:"i2c_addr"`
}

type LEDConfig struct {
	Pin      int           `yaml:"pin"`
	On       time.Duration `yaml:"on"`
	Off      time.Duration `yaml:"off"`
	Duration time.Duration `yaml:"duration"`
}

type PWMTestConfig struct {
	Pin         int           `yaml:"pin"`
	Channel     int           `yaml:"channel"`
	FrequencyHz int           `yaml:"frequency_hz"`
	Duration    time.Duration `yaml:"duration"`
}

type ActuatorConfig struct {
	ExtendPin      int           `yaml:"extend_pin"`
	RetractPin     int           `yaml:"retract_pin"`
	ExtendChannel  int           `yaml:"extend_channel"`
	RetractChannel int           `yaml:"retract_channel"`
	FrequencyHz    int           `yaml:"frequency_hz"`
	Speed          int           `yaml:"speed"`
	Duration       time.Duration `yaml:"duration"`
}

// Default returns the built-in configuration the rig runs with when no
// file is present: status LED on pin 2, H-bridge inputs RPWM=26 and
// LPWM=27 at a 1 kHz carrier, full speed, 2 s per direction.
func Default() Config {
	return Config{
		Hardware: HardwareConfig{
			GPIOBackend: "gpiod",
			PWMBackend:  "sysfs",
		},
		LED: LEDConfig{
			Pin:      2,
			On:       2 * time.Second,
			Off:      1 * time.Second,
			Duration: 10 * time.Second,
		},
		PWMTest: PWMTestConfig{
			Pin:         2,
			Channel:     0,
			FrequencyHz: 1000,
			Duration:    10 * time.Second,
		},
		Actuator: ActuatorConfig{
			ExtendPin:      26,
			RetractPin:     27,
			ExtendChannel:  0,
			RetractChannel: 1,
			FrequencyHz:    1000,
			Speed:          100,
			Duration:       2 * time.Second,
		},
		LockFile: "/tmp/actuator-rig.lock",
	}
}

// Load reads the YAML file at path, overlays it on Default and
// validates the result. A missing file is not an error: the defaults
// apply unchanged.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: %v", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Hardware.GPIOBackend {
	case "gpiod", "rpio", "mock":
	default:
		return fmt.Errorf("hardware.gpio_backend %q is not one of gpiod, rpio, mock", c.Hardware.GPIOBackend)
	}
	switch c.Hardware.PWMBackend {
	case "sysfs", "rpio", "gpiod", "pca9685", "mock":
	default:
		return fmt.Errorf("hardware.pwm_backend %q is not one of sysfs, rpio, gpiod, pca9685, mock", c.Hardware.PWMBackend)
	}
	if c.Hardware.PWMBackend == "pca9685" && strings.TrimSpace(c.Hardware.I2CBus) == "" {
		return fmt.Errorf("hardware.i2c_bus is required when hardware.pwm_backend is 'pca9685'")
	}
	if c.Hardware.PWMChip < 0 {
		return fmt.Errorf("hardware.pwm_chip must be >= 0")
	}

	if c.LED.Pin <= 0 {
		return fmt.Errorf("led.pin must be > 0")
	}
	if c.LED.On <= 0 || c.LED.Off <= 0 {
		return fmt.Errorf("led.on and led.off must be > 0")
	}
	if c.LED.Duration <= 0 {
		return fmt.Errorf("led.duration must be > 0")
	}

	if c.PWMTest.Pin <= 0 {
		return fmt.Errorf("pwm_test.pin must be > 0")
	}
	if c.PWMTest.Channel < 0 {
		return fmt.Errorf("pwm_test.channel must be >= 0")
	}
	if c.PWMTest.FrequencyHz <= 0 {
		return fmt.Errorf("pwm_test.frequency_hz must be > 0")
	}
	if c.PWMTest.Duration <= 0 {
		return fmt.Errorf("pwm_test.duration must be > 0")
	}

	if c.Actuator.ExtendPin <= 0 || c.Actuator.RetractPin <= 0 {
		return fmt.Errorf("actuator.extend_pin and actuator.retract_pin must be > 0")
	}
	if c.Actuator.ExtendPin == c.Actuator.RetractPin {
		return fmt.Errorf("actuator.extend_pin and actuator.retract_pin must differ")
	}
	if c.Actuator.ExtendChannel == c.Actuator.RetractChannel {
		return fmt.Errorf("actuator.extend_channel and actuator.retract_channel must differ")
	}
	if c.Actuator.FrequencyHz <= 0 {
		return fmt.Errorf("actuator.frequency_hz must be > 0")
	}
	if c.Actuator.Speed < 0 || c.Actuator.Speed > 100 {
		return fmt.Errorf("actuator.speed must be within 0..100")
	}
	if c.Actuator.Duration <= 0 {
		return fmt.Errorf("actuator.duration must be > 0")
	}

	if strings.TrimSpace(c.LockFile) == "" {
		return fmt.Errorf("lock_file must not be empty")
	}
	return nil
}
