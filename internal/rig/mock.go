package rig

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Mock op kinds recorded in MockEvent.
const (
	MockOpen  = "open"
	MockSet   = "set"
	MockClose = "close"
)

// MockEvent is one recorded output transition.
type MockEvent struct {
	At     time.Time
	Output string // request label, or "gpioN"/"pwmN" when unlabeled
	Op     string // MockOpen, MockSet or MockClose
	// Value is the written value for MockSet (0/1 for digital lines,
	// 0..65535 for PWM), the carrier frequency for a PWM MockOpen, and
	// the value the output held at release for MockClose.
	Value int
}

// Mock is an in-memory Hardware that records every transition. It backs
// dry runs (mock backends in the config) and the operation tests.
type Mock struct {
	mu     sync.Mutex
	events []MockEvent
	open   map[string]*mockOutput
}

type mockOutput struct {
	m     *Mock
	name  string
	value int
	done  bool
}

func NewMock() *Mock {
	return &Mock{open: make(map[string]*mockOutput)}
}

func (m *Mock) OpenOutput(pin int, label string) (DigitalLine, error) {
	if pin <= 0 {
		return nil, fmt.Errorf("rig: mock: invalid pin %d", pin)
	}
	if label == "" {
		label = fmt.Sprintf("gpio%d", pin)
	}
	o, err := m.acquire(label, 0)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (m *Mock) OpenPWM(req PWMRequest) (PWMChannel, error) {
	if req.Pin <= 0 && req.Channel < 0 {
		return nil, fmt.Errorf("rig: mock: invalid pwm request %+v", req)
	}
	label := req.Label
	if label == "" {
		label = fmt.Sprintf("pwm%d", req.Channel)
	}
	hz := req.FrequencyHz
	if hz <= 0 {
		hz = defaultFrequencyHz
	}
	o, err := m.acquire(label, hz)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (m *Mock) Close() error { return nil }

func (m *Mock) acquire(name string, openValue int) (*mockOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.open[name]; held {
		return nil, fmt.Errorf("rig: mock: output %q busy", name)
	}
	o := &mockOutput{m: m, name: name}
	m.open[name] = o
	m.events = append(m.events, MockEvent{At: time.Now(), Output: name, Op: MockOpen, Value: openValue})
	return o, nil
}

// Events returns a copy of everything recorded so far, in order.
func (m *Mock) Events() []MockEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockEvent, len(m.events))
	copy(out, m.events)
	return out
}

// Leaked lists outputs that were opened but never closed.
func (m *Mock) Leaked() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var names []string
	for name := range m.open {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (o *mockOutput) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	return o.set(v)
}

func (o *mockOutput) SetDuty(d uint16) error {
	return o.set(int(d))
}

func (o *mockOutput) set(v int) error {
	o.m.mu.Lock()
	defer o.m.mu.Unlock()
	if o.done {
		return fmt.Errorf("rig: mock: output %q used after close", o.name)
	}
	o.value = v
	o.m.events = append(o.m.events, MockEvent{At: time.Now(), Output: o.name, Op: MockSet, Value: v})
	return nil
}

func (o *mockOutput) Close() error {
	o.m.mu.Lock()
	defer o.m.mu.Unlock()
	if o.done {
		return nil
	}
	o.done = true
	delete(o.m.open, o.name)
	o.m.events = append(o.m.events, MockEvent{At: time.Now(), Output: o.name, Op: MockClose, Value: o.value})
	return nil
}
