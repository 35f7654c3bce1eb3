package rig

import (
	"fmt"
	"sync"

	"actuator-rig/internal/i2c"
	"actuator-rig/internal/pca9685"
)

// Backend names accepted in HardwareConfig.
const (
	BackendGPIOD   = "gpiod"
	BackendRPIO    = "rpio"
	BackendSysfs   = "sysfs"
	BackendPCA9685 = "pca9685"
	BackendMock    = "mock"
)

// HardwareConfig selects and parameterizes the backends.
type HardwareConfig struct {
	GPIOBackend string // gpiod, rpio or mock
	PWMBackend  string // sysfs, rpio, gpiod, pca9685 or mock

	// GPIOChip names the gpiod chip ("gpiochip0" or a /dev path); empty
	// probes the usual candidates.
	GPIOChip string
	// PWMChip is the sysfs pwmchip index.
	PWMChip int

	// I2CBus and I2CAddr locate the PCA9685.
	I2CBus  string
	I2CAddr uint16
}

// Backends routes open requests to the configured backend and owns the
// resources shared between channels.
type Backends struct {
	cfg HardwareConfig

	mu     sync.Mutex
	mock   *Mock
	rpioUp bool
	pcaBus *i2c.Bus
	pcaDev *pca9685.Dev
	pcaHz  int
	closed bool
}

// OpenBackends validates cfg and returns the backend router. Hardware is
// touched lazily, on the first open request that needs it.
func OpenBackends(cfg HardwareConfig) (*Backends, error) {
	switch cfg.GPIOBackend {
	case BackendGPIOD, BackendRPIO, BackendMock:
	default:
		return nil, fmt.Errorf("rig: unknown gpio backend %q", cfg.GPIOBackend)
	}
	switch cfg.PWMBackend {
	case BackendSysfs, BackendRPIO, BackendGPIOD, BackendPCA9685, BackendMock:
	default:
		return nil, fmt.Errorf("rig: unknown pwm backend %q", cfg.PWMBackend)
	}
	if cfg.PWMBackend == BackendPCA9685 && cfg.I2CBus == "" {
		return nil, fmt.Errorf("rig: pca9685 backend needs an i2c bus")
	}
	return &Backends{cfg: cfg}, nil
}

func (b *Backends) OpenOutput(pin int, label string) (DigitalLine, error) {
	switch b.cfg.GPIOBackend {
	case BackendGPIOD:
		return openGPIOOutput(b.cfg.GPIOChip, pin, label)
	case BackendRPIO:
		if err := b.ensureRPIO(); err != nil {
			return nil, err
		}
		return openRPIOOutput(pin)
	case BackendMock:
		return b.Mock().OpenOutput(pin, label)
	}
	return nil, fmt.Errorf("rig: unknown gpio backend %q", b.cfg.GPIOBackend)
}

func (b *Backends) OpenPWM(req PWMRequest) (PWMChannel, error) {
	if req.FrequencyHz <= 0 {
		req.FrequencyHz = defaultFrequencyHz
	}
	switch b.cfg.PWMBackend {
	case BackendSysfs:
		return openSysfsPWM(b.cfg.PWMChip, req.Channel, req.FrequencyHz)
	case BackendRPIO:
		if err := b.ensureRPIO(); err != nil {
			return nil, err
		}
		return openRPIOPWM(req.Pin, req.FrequencyHz)
	case BackendGPIOD:
		return openGPIOThresholdPWM(b.cfg.GPIOChip, req.Pin, req.Label)
	case BackendPCA9685:
		dev, err := b.ensurePCA(req.FrequencyHz)
		if err != nil {
			return nil, err
		}
		return newPCAChannel(dev, req.Channel)
	case BackendMock:
		return b.Mock().OpenPWM(req)
	}
	return nil, fmt.Errorf("rig: unknown pwm backend %q", b.cfg.PWMBackend)
}

// Mock returns the shared recorder, creating it on first use. It is nil
// only when neither backend is mock.
func (b *Backends) Mock() *Mock {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.mock == nil && (b.cfg.GPIOBackend == BackendMock || b.cfg.PWMBackend == BackendMock) {
		b.mock = NewMock()
	}
	return b.mock
}

func (b *Backends) ensureRPIO() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rpioUp {
		return nil
	}
	if err := rpioEnable(); err != nil {
		return err
	}
	b.rpioUp = true
	return nil
}

func (b *Backends) ensurePCA(freqHz int) (*pca9685.Dev, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pcaDev != nil {
		// One prescaler for the whole chip.
		if freqHz != b.pcaHz {
			return nil, fmt.Errorf("rig: pca9685: carrier already %d Hz, cannot also run %d Hz", b.pcaHz, freqHz)
		}
		return b.pcaDev, nil
	}
	addr := b.cfg.I2CAddr
	if addr == 0 {
		addr = pca9685.DefaultAddress()
	}
	bus, err := i2c.Open(b.cfg.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("rig: pca9685: open %s: %w", b.cfg.I2CBus, err)
	}
	dev, err := pca9685.New(bus.Dev(addr))
	if err != nil {
		_ = bus.Close()
		return nil, err
	}
	if err := dev.SetFrequencyHz(freqHz); err != nil {
		_ = dev.Close()
		_ = bus.Close()
		return nil, err
	}
	b.pcaBus, b.pcaDev, b.pcaHz = bus, dev, freqHz
	return dev, nil
}

// Close releases chip-wide resources. Open lines and channels must be
// closed first; the PCA9685 shutdown below forces every channel off
// regardless.
func (b *Backends) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	var first error
	if b.pcaDev != nil {
		if err := b.pcaDev.Close(); err != nil {
			first = err
		}
		b.pcaDev = nil
	}
	if b.pcaBus != nil {
		if err := b.pcaBus.Close(); err != nil && first == nil {
			first = err
		}
		b.pcaBus = nil
	}
	if b.rpioUp {
		rpioDisable()
		b.rpioUp = false
	}
	return first
}
