package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeMockConfig(t *testing.T) string {
	t.Helper()
	body := `
hardware:
  gpio_backend: mock
  pwm_backend: mock
led:
  pin: 2
  on: 5ms
  off: 3ms
  duration: 20ms
pwm_test:
  pin: 2
  channel: 0
  duration: 30ms
actuator:
  duration: 5ms
`
	path := filepath.Join(t.TempDir(), "rig.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func captureSummary(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := summaryOut
	summaryOut = &buf
	t.Cleanup(func() { summaryOut = old })
	return &buf
}

func TestRunLEDMockEndToEnd(t *testing.T) {
	buf := captureSummary(t)
	path := writeMockConfig(t)

	err := runLED(context.Background(), []string{"-config", path}, EnvConfig{})
	if err != nil {
		t.Fatalf("runLED: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "led: ") {
		t.Fatalf("summary missing led row:\n%s", out)
	}
	if !strings.Contains(out, "released=true release_value=0") {
		t.Fatalf("led not released at 0:\n%s", out)
	}
}

func TestRunExtendSpeedOverride(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want string
	}{
		{name: "Full", args: nil, want: "peak=65535"},
		{name: "Half", args: []string{"-speed", "50"}, want: "peak=32768"},
		{name: "Zero", args: []string{"-speed", "0"}, want: "peak=0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := captureSummary(t)
			path := writeMockConfig(t)

			args := append([]string{"-config", path}, tc.args...)
			if err := runExtend(context.Background(), args, EnvConfig{}); err != nil {
				t.Fatalf("runExtend: %v", err)
			}
			out := buf.String()
			if !strings.Contains(out, "extend: ") || !strings.Contains(out, tc.want) {
				t.Fatalf("summary=%q want extend row with %s", out, tc.want)
			}
			if strings.Contains(out, "retract") {
				t.Fatalf("extend-only run touched retract:\n%s", out)
			}
		})
	}
}

func TestRunCycleMockEndToEnd(t *testing.T) {
	buf := captureSummary(t)
	path := writeMockConfig(t)

	if err := runCycle(context.Background(), []string{"-config", path}, EnvConfig{}); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "extend: ") || !strings.Contains(out, "retract: ") {
		t.Fatalf("summary missing a direction:\n%s", out)
	}
	if strings.Count(out, "released=true release_value=0") != 2 {
		t.Fatalf("both directions must be released at 0:\n%s", out)
	}
}

func TestRunRetractMockEndToEnd(t *testing.T) {
	buf := captureSummary(t)
	path := writeMockConfig(t)

	if err := runRetract(context.Background(), []string{"-config", path}, EnvConfig{}); err != nil {
		t.Fatalf("runRetract: %v", err)
	}
	out := buf.String()
	// Retract acquires both sides and pins extend at zero.
	if !strings.Contains(out, "extend: sets=2 peak=0") {
		t.Fatalf("extend side not held at zero:\n%s", out)
	}
	if !strings.Contains(out, "retract: ") || !strings.Contains(out, "peak=65535") {
		t.Fatalf("retract side not driven:\n%s", out)
	}
}

func TestRunPWMMockEndToEnd(t *testing.T) {
	buf := captureSummary(t)
	path := writeMockConfig(t)

	if err := runPWM(context.Background(), []string{"-config", path}, EnvConfig{}); err != nil {
		t.Fatalf("runPWM: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "pwm-test: ") {
		t.Fatalf("summary missing pwm-test row:\n%s", out)
	}
	if !strings.Contains(out, "released=true release_value=0") {
		t.Fatalf("pwm channel not released at 0:\n%s", out)
	}
}

func TestRunUnknownCommand(t *testing.T) {
	err := run(context.Background(), "warp", nil, EnvConfig{})
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("err=%v want unknown command", err)
	}
}

func TestRunRejectsBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rig.yaml")
	if err := os.WriteFile(path, []byte("actuator:\n  speed: 200\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	err := runCycle(context.Background(), []string{"-config", path}, EnvConfig{})
	if err == nil || !strings.Contains(err.Error(), "actuator.speed") {
		t.Fatalf("err=%v want speed validation", err)
	}
}

func TestParseSpeedArg(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "0", want: 0},
		{in: "50", want: 50},
		{in: "100", want: 100},
		{in: "101", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "12abc", wantErr: true},
	}
	for _, tc := range cases {
		got, err := parseSpeedArg(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("parseSpeedArg(%q)=%d want error", tc.in, got)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("parseSpeedArg(%q)=%d,%v want %d", tc.in, got, err, tc.want)
		}
	}
}

func TestParseDurationArg(t *testing.T) {
	if d, err := parseDurationArg("1500ms"); err != nil || d != 1500*time.Millisecond {
		t.Fatalf("got %s,%v want 1.5s", d, err)
	}
	for _, in := range []string{"0s", "-1s", "soon"} {
		if _, err := parseDurationArg(in); err == nil {
			t.Fatalf("parseDurationArg(%q) want error", in)
		}
	}
}

func TestArgHelpers(t *testing.T) {
	if v, err := argInt([]string{"7"}, 0, 2); err != nil || v != 7 {
		t.Fatalf("argInt=%d,%v want 7", v, err)
	}
	if v, err := argInt(nil, 0, 2); err != nil || v != 2 {
		t.Fatalf("argInt default=%d,%v want 2", v, err)
	}
	if _, err := argInt([]string{"x"}, 0, 2); err == nil {
		t.Fatalf("argInt(x) want error")
	}
	if d, err := argDur([]string{"7", "250ms"}, 1, time.Second); err != nil || d != 250*time.Millisecond {
		t.Fatalf("argDur=%s,%v want 250ms", d, err)
	}
	if d, err := argDur([]string{"7"}, 1, time.Second); err != nil || d != time.Second {
		t.Fatalf("argDur default=%s,%v want 1s", d, err)
	}
}
