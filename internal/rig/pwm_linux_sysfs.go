//go:build linux

package rig

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// sysfsPWM drives a hardware PWM channel via /sys/class/pwm.
//
// On Raspberry Pi the channels only exist once a PWM overlay is enabled
// (`dtoverlay=pwm-2chan` or equivalent); which GPIO a channel lands on
// is decided by the overlay, not by this code, so requests are addressed
// by chip and channel number.
type sysfsPWM struct {
	pwmPath  string // /sys/class/pwm/pwmchipN/pwmM
	channel  int
	periodNS uint64
	closed   bool
}

var pwmSysfsBase = "/sys/class/pwm"

func openSysfsPWM(chip, channel, freqHz int) (PWMChannel, error) {
	if channel < 0 {
		return nil, fmt.Errorf("rig: sysfs pwm: invalid channel %d", channel)
	}
	if freqHz <= 0 {
		return nil, fmt.Errorf("rig: sysfs pwm: invalid frequency %d", freqHz)
	}

	chipPath := filepath.Join(pwmSysfsBase, fmt.Sprintf("pwmchip%d", chip))
	if _, err := os.Stat(chipPath); err != nil {
		return nil, fmt.Errorf("rig: sysfs pwm: chip %d not present (is a pwm overlay enabled?): %w", chip, err)
	}
	if n, err := readInt(filepath.Join(chipPath, "npwm")); err == nil && channel >= n {
		return nil, fmt.Errorf("rig: sysfs pwm: chip %d has %d channels, want channel %d", chip, n, channel)
	}

	d := &sysfsPWM{
		channel: channel,
		pwmPath: filepath.Join(chipPath, fmt.Sprintf("pwm%d", channel)),
	}
	if err := d.ensureExported(chipPath); err != nil {
		return nil, err
	}

	// The kernel rejects periods below the current duty_cycle, so clear
	// duty before touching the period, and keep the channel disabled
	// while reconfiguring.
	periodNS := uint64(1_000_000_000 / freqHz)
	_ = d.writeBool("enable", false)
	if err := d.writeUint("duty_cycle", 0); err != nil {
		return nil, fmt.Errorf("rig: sysfs pwm: clear duty: %w", err)
	}
	if err := d.writeUint("period", periodNS); err != nil {
		return nil, fmt.Errorf("rig: sysfs pwm: set period: %w", err)
	}
	d.periodNS = periodNS

	if err := d.writeBool("enable", true); err != nil {
		return nil, fmt.Errorf("rig: sysfs pwm: enable: %w", err)
	}
	return d, nil
}

func (d *sysfsPWM) ensureExported(chipPath string) error {
	if _, err := os.Stat(d.pwmPath); err == nil {
		return nil
	}
	exportPath := filepath.Join(chipPath, "export")
	if err := writeSysfs(exportPath, strconv.Itoa(d.channel)); err != nil {
		// Already exported by someone else is fine.
		if _, statErr := os.Stat(d.pwmPath); statErr == nil {
			return nil
		}
		return fmt.Errorf("rig: sysfs pwm: export channel %d: %w", d.channel, err)
	}

	// Wait briefly for the sysfs node to appear.
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(d.pwmPath); err == nil {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, err := os.Stat(d.pwmPath); err != nil {
		return fmt.Errorf("rig: sysfs pwm: channel %d not created after export: %w", d.channel, err)
	}
	return nil
}

func (d *sysfsPWM) SetDuty(duty uint16) error {
	if d.closed {
		return fmt.Errorf("rig: sysfs pwm: channel %d closed", d.channel)
	}
	ns := uint64(math.Round(float64(d.periodNS) * float64(duty) / float64(maxDuty)))
	if ns > d.periodNS {
		ns = d.periodNS
	}
	if err := d.writeUint("duty_cycle", ns); err != nil {
		return fmt.Errorf("rig: sysfs pwm: set duty: %w", err)
	}
	return nil
}

func (d *sysfsPWM) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	err := d.writeUint("duty_cycle", 0)
	_ = d.writeBool("enable", false)
	if err != nil {
		return fmt.Errorf("rig: sysfs pwm: clear duty on close: %w", err)
	}
	return nil
}

func (d *sysfsPWM) writeUint(name string, v uint64) error {
	return writeSysfs(filepath.Join(d.pwmPath, name), strconv.FormatUint(v, 10))
}

func (d *sysfsPWM) writeBool(name string, v bool) error {
	val := "0"
	if v {
		val = "1"
	}
	return writeSysfs(filepath.Join(d.pwmPath, name), val)
}

func writeSysfs(path string, value string) error {
	// Open O_WRONLY without O_TRUNC/O_CREATE: some sysfs attributes reject
	// truncation flags even when mode bits allow writes. Immediately after
	// exporting a channel, udev may still be adjusting permissions, so
	// there is a short window where open() returns EACCES or ENOENT even
	// though the steady-state permissions are correct.
	deadline := time.Now().Add(2 * time.Second)
	var lastErr error
	for {
		f, err := os.OpenFile(path, os.O_WRONLY, 0)
		if err != nil {
			lastErr = err
			if time.Now().Before(deadline) && isRetryableSysfsErr(err) {
				time.Sleep(25 * time.Millisecond)
				continue
			}
			return err
		}
		_, werr := f.WriteString(value)
		cerr := f.Close()
		if werr == nil && cerr == nil {
			return nil
		}
		if werr != nil {
			lastErr = werr
		} else {
			lastErr = cerr
		}
		if time.Now().Before(deadline) && isRetryableSysfsErr(lastErr) {
			time.Sleep(25 * time.Millisecond)
			continue
		}
		if werr != nil {
			return werr
		}
		return cerr
	}
}

func isRetryableSysfsErr(err error) bool {
	return os.IsPermission(err) || os.IsNotExist(err) || errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) || errors.Is(err, syscall.ENOENT)
}

func readInt(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	s := strings.TrimSpace(string(b))
	if s == "" {
		return 0, fmt.Errorf("empty")
	}
	return strconv.Atoi(s)
}
