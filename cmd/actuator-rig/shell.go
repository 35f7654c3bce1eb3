package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/abiosoft/ishell"

	"actuator-rig/internal/config"
	"actuator-rig/internal/rig"
)

// runShell keeps the backends open across commands and runs each motion
// under its own signal context, so Ctrl-C stops the motion (cleanup
// still runs) and drops back to the prompt instead of killing the
// process.
func runShell(args []string, envCfg EnvConfig) error {
	fs := flag.NewFlagSet("shell", flag.ExitOnError)
	configPath := fs.String("config", envCfg.Config, "path to YAML config")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	hw, lk, err := openRig(cfg, envCfg)
	if err != nil {
		return err
	}
	defer closeRig(hw, lk)

	shell := ishell.New()
	shell.Println("actuator rig shell. help lists commands, exit quits.")
	shell.ShowPrompt(true)

	motion := func(c *ishell.Context, name string, f func(context.Context) error) {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		if err := f(ctx); err != nil {
			c.Err(err)
			return
		}
		c.Printf("%s done\n", name)
	}

	shell.AddCmd(&ishell.Cmd{
		Name: "led",
		Help: "led [pin] [on] [off] [duration]",
		Func: func(c *ishell.Context) {
			p := rig.LEDParams{Pin: cfg.LED.Pin, On: cfg.LED.On, Off: cfg.LED.Off, Duration: cfg.LED.Duration}
			var err error
			if p.Pin, err = argInt(c.Args, 0, p.Pin); err != nil {
				c.Err(err)
				return
			}
			if p.On, err = argDur(c.Args, 1, p.On); err != nil {
				c.Err(err)
				return
			}
			if p.Off, err = argDur(c.Args, 2, p.Off); err != nil {
				c.Err(err)
				return
			}
			if p.Duration, err = argDur(c.Args, 3, p.Duration); err != nil {
				c.Err(err)
				return
			}
			motion(c, "led", func(ctx context.Context) error { return rig.TestLED(ctx, hw, p) })
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "pwm",
		Help: "pwm [pin] [duration]",
		Func: func(c *ishell.Context) {
			p := rig.PWMTestParams{
				Pin:         cfg.PWMTest.Pin,
				Channel:     cfg.PWMTest.Channel,
				FrequencyHz: cfg.PWMTest.FrequencyHz,
				Duration:    cfg.PWMTest.Duration,
			}
			var err error
			if p.Pin, err = argInt(c.Args, 0, p.Pin); err != nil {
				c.Err(err)
				return
			}
			if p.Duration, err = argDur(c.Args, 1, p.Duration); err != nil {
				c.Err(err)
				return
			}
			motion(c, "pwm", func(ctx context.Context) error { return rig.TestPWM(ctx, hw, p) })
		},
	})

	drive := func(c *ishell.Context, name string, motionFn func(context.Context, rig.Hardware, rig.DriveParams) error) {
		p := driveParams(cfg)
		var err error
		if len(c.Args) >= 1 {
			if p.Speed, err = parseSpeedArg(c.Args[0]); err != nil {
				c.Err(err)
				return
			}
		}
		if p.Duration, err = argDur(c.Args, 1, p.Duration); err != nil {
			c.Err(err)
			return
		}
		motion(c, name, func(ctx context.Context) error { return motionFn(ctx, hw, p) })
	}

	shell.AddCmd(&ishell.Cmd{
		Name: "cycle",
		Help: "cycle [speed] [duration]",
		Func: func(c *ishell.Context) { drive(c, "cycle", rig.RunOneCycle) },
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "extend",
		Help: "extend [speed] [duration]",
		Func: func(c *ishell.Context) { drive(c, "extend", rig.ExtendOnly) },
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "retract",
		Help: "retract [speed] [duration]",
		Func: func(c *ishell.Context) { drive(c, "retract", rig.RetractOnly) },
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "duty",
		Help: "duty <percent>",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("usage: duty <percent>"))
				return
			}
			v, err := parseSpeedArg(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("speed %d%% -> duty %d/65535\n", v, rig.DutyFromPercent(v))
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "config",
		Help: "config",
		Func: func(c *ishell.Context) {
			c.Printf("hardware: gpio=%s pwm=%s\n", cfg.Hardware.GPIOBackend, cfg.Hardware.PWMBackend)
			c.Printf("led: pin=%d on=%s off=%s duration=%s\n", cfg.LED.Pin, cfg.LED.On, cfg.LED.Off, cfg.LED.Duration)
			c.Printf("pwm_test: pin=%d channel=%d carrier=%dHz duration=%s\n",
				cfg.PWMTest.Pin, cfg.PWMTest.Channel, cfg.PWMTest.FrequencyHz, cfg.PWMTest.Duration)
			c.Printf("actuator: extend=%d retract=%d channels=%d/%d carrier=%dHz speed=%d duration=%s\n",
				cfg.Actuator.ExtendPin, cfg.Actuator.RetractPin,
				cfg.Actuator.ExtendChannel, cfg.Actuator.RetractChannel,
				cfg.Actuator.FrequencyHz, cfg.Actuator.Speed, cfg.Actuator.Duration)
		},
	})

	shell.Start()
	return nil
}

func argInt(args []string, i, def int) (int, error) {
	if len(args) <= i {
		return def, nil
	}
	v, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, fmt.Errorf("argument %q is not a number", args[i])
	}
	return v, nil
}

func argDur(args []string, i int, def time.Duration) (time.Duration, error) {
	if len(args) <= i {
		return def, nil
	}
	return parseDurationArg(args[i])
}
