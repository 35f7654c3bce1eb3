package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/caarlos0/env"

	"actuator-rig/internal/config"
	"actuator-rig/internal/rig"
)

// EnvConfig carries the environment overrides applied before flags.
type EnvConfig struct {
	Config string `env:"RIG_CONFIG" envDefault:"./rig.yaml"`
	Lock   string `env:"RIG_LOCK"`
}

func main() {
	var envCfg EnvConfig
	if err := env.Parse(&envCfg); err != nil {
		log.Fatalf("environment parse failed: %v", err)
	}

	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}
	cmd, rest := args[0], args[1:]

	// The shell builds its own per-command signal contexts so Ctrl-C
	// stops a motion without killing the prompt.
	if cmd == "shell" {
		if err := runShell(rest, envCfg); err != nil {
			log.Fatalf("shell failed: %v", err)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cmd, rest, envCfg); err != nil {
		log.Fatalf("%s failed: %v", cmd, err)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: actuator-rig <command> [flags]

commands:
  led      blink the status led (-pin, -on, -off, -duration)
  pwm      sweep a pwm output through a full ramp (-pin, -channel, -frequency, -duration)
  cycle    extend then retract the actuator (-speed, -duration)
  extend   drive the extend side only (-speed, -duration)
  retract  drive the retract side only (-speed, -duration)
  shell    interactive bench shell

All commands read -config (default $RIG_CONFIG or ./rig.yaml); flags
override the config values.
`)
}

func run(ctx context.Context, cmd string, args []string, envCfg EnvConfig) error {
	switch cmd {
	case "led":
		return runLED(ctx, args, envCfg)
	case "pwm":
		return runPWM(ctx, args, envCfg)
	case "cycle":
		return runCycle(ctx, args, envCfg)
	case "extend":
		return runExtend(ctx, args, envCfg)
	case "retract":
		return runRetract(ctx, args, envCfg)
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// explicitFlags reports which flags were set on the command line, so
// zero values like -speed 0 still override the config.
func explicitFlags(fs *flag.FlagSet) map[string]bool {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

func runLED(ctx context.Context, args []string, envCfg EnvConfig) error {
	fs := flag.NewFlagSet("led", flag.ExitOnError)
	configPath := fs.String("config", envCfg.Config, "path to YAML config")
	pin := fs.Int("pin", 0, "led gpio (default from config)")
	on := fs.Duration("on", 0, "on time per blink (default from config)")
	off := fs.Duration("off", 0, "off time per blink (default from config)")
	duration := fs.Duration("duration", 0, "total test time (default from config)")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	set := explicitFlags(fs)
	if set["pin"] {
		cfg.LED.Pin = *pin
	}
	if set["on"] {
		cfg.LED.On = *on
	}
	if set["off"] {
		cfg.LED.Off = *off
	}
	if set["duration"] {
		cfg.LED.Duration = *duration
	}

	hw, lk, err := openRig(cfg, envCfg)
	if err != nil {
		return err
	}
	defer closeRig(hw, lk)

	return rig.TestLED(ctx, hw, rig.LEDParams{
		Pin:      cfg.LED.Pin,
		On:       cfg.LED.On,
		Off:      cfg.LED.Off,
		Duration: cfg.LED.Duration,
	})
}

func runPWM(ctx context.Context, args []string, envCfg EnvConfig) error {
	fs := flag.NewFlagSet("pwm", flag.ExitOnError)
	configPath := fs.String("config", envCfg.Config, "path to YAML config")
	pin := fs.Int("pin", 0, "pwm gpio (default from config)")
	channel := fs.Int("channel", -1, "pwm channel (default from config)")
	freq := fs.Int("frequency", 0, "carrier in Hz (default from config)")
	duration := fs.Duration("duration", 0, "total test time (default from config)")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	set := explicitFlags(fs)
	if set["pin"] {
		cfg.PWMTest.Pin = *pin
	}
	if set["channel"] {
		cfg.PWMTest.Channel = *channel
	}
	if set["frequency"] {
		cfg.PWMTest.FrequencyHz = *freq
	}
	if set["duration"] {
		cfg.PWMTest.Duration = *duration
	}

	hw, lk, err := openRig(cfg, envCfg)
	if err != nil {
		return err
	}
	defer closeRig(hw, lk)

	return rig.TestPWM(ctx, hw, rig.PWMTestParams{
		Pin:         cfg.PWMTest.Pin,
		Channel:     cfg.PWMTest.Channel,
		FrequencyHz: cfg.PWMTest.FrequencyHz,
		Duration:    cfg.PWMTest.Duration,
	})
}

func runCycle(ctx context.Context, args []string, envCfg EnvConfig) error {
	return runDrive(ctx, "cycle", args, envCfg, rig.RunOneCycle)
}

func runExtend(ctx context.Context, args []string, envCfg EnvConfig) error {
	return runDrive(ctx, "extend", args, envCfg, rig.ExtendOnly)
}

func runRetract(ctx context.Context, args []string, envCfg EnvConfig) error {
	return runDrive(ctx, "retract", args, envCfg, rig.RetractOnly)
}

func runDrive(ctx context.Context, name string, args []string, envCfg EnvConfig, motion func(context.Context, rig.Hardware, rig.DriveParams) error) error {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	configPath := fs.String("config", envCfg.Config, "path to YAML config")
	speed := fs.Int("speed", 0, "speed in percent, 0..100 (default from config)")
	duration := fs.Duration("duration", 0, "time per direction (default from config)")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	set := explicitFlags(fs)
	if set["speed"] {
		cfg.Actuator.Speed = *speed
	}
	if set["duration"] {
		cfg.Actuator.Duration = *duration
	}

	hw, lk, err := openRig(cfg, envCfg)
	if err != nil {
		return err
	}
	defer closeRig(hw, lk)

	return motion(ctx, hw, driveParams(cfg))
}

func driveParams(cfg config.Config) rig.DriveParams {
	return rig.DriveParams{
		ExtendPin:      cfg.Actuator.ExtendPin,
		RetractPin:     cfg.Actuator.RetractPin,
		ExtendChannel:  cfg.Actuator.ExtendChannel,
		RetractChannel: cfg.Actuator.RetractChannel,
		FrequencyHz:    cfg.Actuator.FrequencyHz,
		Speed:          cfg.Actuator.Speed,
		Duration:       cfg.Actuator.Duration,
	}
}

// openRig takes the rig lock (real backends only), logs the board and
// opens the hardware backends.
func openRig(cfg config.Config, envCfg EnvConfig) (*rig.Backends, *rigLock, error) {
	if m := boardModel(); m != "" {
		log.Printf("board: %s", m)
	}

	hwCfg := rig.HardwareConfig{
		GPIOBackend: cfg.Hardware.GPIOBackend,
		PWMBackend:  cfg.Hardware.PWMBackend,
		GPIOChip:    cfg.Hardware.GPIOChip,
		PWMChip:     cfg.Hardware.PWMChip,
		I2CBus:      cfg.Hardware.I2CBus,
		I2CAddr:     cfg.Hardware.I2CAddr,
	}

	var lk *rigLock
	if !mockOnly(hwCfg) {
		lockPath := cfg.LockFile
		if envCfg.Lock != "" {
			lockPath = envCfg.Lock
		}
		l, err := acquireLock(lockPath)
		if err != nil {
			return nil, nil, err
		}
		lk = l
	}

	hw, err := rig.OpenBackends(hwCfg)
	if err != nil {
		lk.release()
		return nil, nil, err
	}
	log.Printf("backends: gpio=%s pwm=%s", hwCfg.GPIOBackend, hwCfg.PWMBackend)
	return hw, lk, nil
}

func mockOnly(cfg rig.HardwareConfig) bool {
	return cfg.GPIOBackend == rig.BackendMock && cfg.PWMBackend == rig.BackendMock
}

func closeRig(hw *rig.Backends, lk *rigLock) {
	if m := hw.Mock(); m != nil {
		printMockSummary(summaryOut, m)
	}
	if err := hw.Close(); err != nil {
		log.Printf("hardware close failed: %v", err)
	}
	lk.release()
}

// parseSpeedArg is shared between the shell and anything that takes a
// bare percent string.
func parseSpeedArg(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("speed %q is not a number", s)
	}
	if v < 0 || v > 100 {
		return 0, fmt.Errorf("speed %d out of range 0..100", v)
	}
	return v, nil
}

func parseDurationArg(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("duration %q: %v", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", d)
	}
	return d, nil
}
