package rig

import (
	"strings"
	"testing"
)

func TestOpenBackendsValidatesNames(t *testing.T) {
	if _, err := OpenBackends(HardwareConfig{GPIOBackend: "serial", PWMBackend: BackendMock}); err == nil || !strings.Contains(err.Error(), "gpio backend") {
		t.Fatalf("err=%v want gpio backend rejection", err)
	}
	if _, err := OpenBackends(HardwareConfig{GPIOBackend: BackendMock, PWMBackend: "bitbang"}); err == nil || !strings.Contains(err.Error(), "pwm backend") {
		t.Fatalf("err=%v want pwm backend rejection", err)
	}
	if _, err := OpenBackends(HardwareConfig{GPIOBackend: BackendMock, PWMBackend: BackendPCA9685}); err == nil || !strings.Contains(err.Error(), "i2c bus") {
		t.Fatalf("err=%v want i2c bus requirement", err)
	}
	if _, err := OpenBackends(HardwareConfig{GPIOBackend: BackendGPIOD, PWMBackend: BackendSysfs}); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestBackendsMockRouting(t *testing.T) {
	b, err := OpenBackends(HardwareConfig{GPIOBackend: BackendMock, PWMBackend: BackendMock})
	if err != nil {
		t.Fatalf("OpenBackends: %v", err)
	}
	defer b.Close()

	line, err := b.OpenOutput(2, "led")
	if err != nil {
		t.Fatalf("OpenOutput: %v", err)
	}
	ch, err := b.OpenPWM(PWMRequest{Pin: 26, Label: "extend"})
	if err != nil {
		t.Fatalf("OpenPWM: %v", err)
	}
	if err := line.Set(true); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := ch.SetDuty(100); err != nil {
		t.Fatalf("SetDuty: %v", err)
	}
	line.Close()
	ch.Close()

	m := b.Mock()
	if m == nil {
		t.Fatalf("Mock()=nil for mocked backends")
	}
	// Both concerns share one recorder.
	outputs := map[string]bool{}
	for _, e := range m.Events() {
		outputs[e.Output] = true
	}
	if !outputs["led"] || !outputs["extend"] {
		t.Fatalf("recorded outputs=%v want led and extend", outputs)
	}
	// Requests without a frequency get the default carrier.
	ev := m.Events()
	for _, e := range ev {
		if e.Output == "extend" && e.Op == MockOpen && e.Value != defaultFrequencyHz {
			t.Fatalf("extend open=%+v want default carrier", e)
		}
	}
}

func TestBackendsMockNilWithoutMockBackend(t *testing.T) {
	b, err := OpenBackends(HardwareConfig{GPIOBackend: BackendGPIOD, PWMBackend: BackendSysfs})
	if err != nil {
		t.Fatalf("OpenBackends: %v", err)
	}
	defer b.Close()
	if m := b.Mock(); m != nil {
		t.Fatalf("Mock()=%v want nil", m)
	}
}

func TestBackendsCloseIdempotent(t *testing.T) {
	b, err := OpenBackends(HardwareConfig{GPIOBackend: BackendMock, PWMBackend: BackendMock})
	if err != nil {
		t.Fatalf("OpenBackends: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
