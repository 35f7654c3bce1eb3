package rig

import (
	"strings"
	"testing"
)

func TestMockRecordsTransitions(t *testing.T) {
	m := NewMock()

	line, err := m.OpenOutput(2, "led")
	if err != nil {
		t.Fatalf("OpenOutput: %v", err)
	}
	if err := line.Set(true); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := line.Set(false); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := line.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	ev := m.Events()
	want := []struct {
		op    string
		value int
	}{
		{MockOpen, 0},
		{MockSet, 1},
		{MockSet, 0},
		{MockClose, 0},
	}
	if len(ev) != len(want) {
		t.Fatalf("events=%d want %d", len(ev), len(want))
	}
	for i, w := range want {
		if ev[i].Output != "led" || ev[i].Op != w.op || ev[i].Value != w.value {
			t.Fatalf("event %d = %+v want op=%s value=%d", i, ev[i], w.op, w.value)
		}
	}
	if leaked := m.Leaked(); len(leaked) != 0 {
		t.Fatalf("leaked=%v want none", leaked)
	}
}

func TestMockPWMOpenRecordsFrequency(t *testing.T) {
	m := NewMock()
	ch, err := m.OpenPWM(PWMRequest{Pin: 26, FrequencyHz: 1000, Label: "extend"})
	if err != nil {
		t.Fatalf("OpenPWM: %v", err)
	}
	defer ch.Close()

	ev := m.Events()
	if len(ev) != 1 || ev[0].Op != MockOpen || ev[0].Value != 1000 {
		t.Fatalf("open event=%+v want freq 1000", ev)
	}
}

func TestMockBusyOutput(t *testing.T) {
	m := NewMock()
	ch, err := m.OpenPWM(PWMRequest{Pin: 26, Label: "extend"})
	if err != nil {
		t.Fatalf("OpenPWM: %v", err)
	}

	if _, err := m.OpenPWM(PWMRequest{Pin: 26, Label: "extend"}); err == nil || !strings.Contains(err.Error(), "busy") {
		t.Fatalf("second open err=%v want busy", err)
	}

	if err := ch.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Released outputs can be reopened.
	if _, err := m.OpenPWM(PWMRequest{Pin: 26, Label: "extend"}); err != nil {
		t.Fatalf("reopen after close: %v", err)
	}
}

func TestMockUseAfterClose(t *testing.T) {
	m := NewMock()
	ch, err := m.OpenPWM(PWMRequest{Pin: 26, Label: "extend"})
	if err != nil {
		t.Fatalf("OpenPWM: %v", err)
	}
	if err := ch.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Close is idempotent.
	if err := ch.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := ch.SetDuty(100); err == nil {
		t.Fatalf("SetDuty after close succeeded, want error")
	}
}

func TestMockCloseRecordsHeldValue(t *testing.T) {
	m := NewMock()
	ch, err := m.OpenPWM(PWMRequest{Pin: 26, Label: "extend"})
	if err != nil {
		t.Fatalf("OpenPWM: %v", err)
	}
	if err := ch.SetDuty(4242); err != nil {
		t.Fatalf("SetDuty: %v", err)
	}
	if err := ch.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	ev := m.Events()
	last := ev[len(ev)-1]
	if last.Op != MockClose || last.Value != 4242 {
		t.Fatalf("close event=%+v want value 4242", last)
	}
	if leaked := m.Leaked(); len(leaked) != 0 {
		t.Fatalf("leaked=%v want none", leaked)
	}
}
