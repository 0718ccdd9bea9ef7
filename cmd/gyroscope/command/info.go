package command

import (
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/gyroscope/cmd/gyroscope/console"
	"github.com/mklimuk/gyroscope/gyro"
)

var InfoCmd = &cli.Command{
	Name:  "info",
	Usage: "check device identity and print the active configuration",
	Action: func(c *cli.Context) error {
		s, err := openSession(c)
		if err != nil {
			return console.Exit(console.ExitError, "could not open device: %s", console.Red(err))
		}
		defer s.Close()
		ctx := commandContext(c)

		id, err := s.ReadIdentity(ctx)
		if err != nil {
			return console.Exit(console.ExitError, "%s", console.Red(err))
		}
		console.PInfof(console.PictoGyro, "WHO_AM_I %s", console.White(fmt.Sprintf("%#02x", id)))
		if err := s.VerifyIdentity(ctx); err != nil {
			if errors.Is(err, gyro.ErrUnexpectedIdentity) {
				return console.Exit(console.ExitIdentity, "%s", console.Red(err))
			}
			return console.Exit(console.ExitError, "%s", console.Red(err))
		}
		if err := s.Init(ctx, s.cfg.Gyro); err != nil {
			return console.Exit(console.ExitError, "could not initialize device: %s", console.Red(err))
		}
		cfg := s.DeviceConfig()
		console.Printf("axes:        %s\n", console.White(cfg.Axes))
		console.Printf("rate:        %s\n", console.White(cfg.Rate))
		console.Printf("high-pass:   %s %s\n", console.White(cfg.HighPassMode), console.White(cfg.HighPassCutoff))
		console.Printf("full scale:  %s dps\n", console.White(cfg.FullScale))
		console.Printf("sensitivity: %s mdps/digit\n", console.White(s.Sensitivity()))
		for _, axis := range []gyro.Axis{gyro.X, gyro.Y, gyro.Z} {
			cal := s.Calibration(axis)
			console.Printf("calibration %s: bias %s scale %s\n", console.Axis(axis.String(), axis), console.White(cal.Bias), console.White(cal.Scale))
		}
		temp, err := s.ReadTemperature(ctx)
		if err != nil {
			return console.Exit(console.ExitError, "%s", console.Red(err))
		}
		console.PInfof(console.PictoThermometer, "OUT_TEMP %s (raw)", console.White(temp))
		return nil
	},
}

var ReadyCmd = &cli.Command{
	Name:  "ready",
	Usage: "wait once for new data",
	Flags: []cli.Flag{
		&cli.DurationFlag{Name: "timeout", Aliases: []string{"t"}, Value: 20 * time.Millisecond},
	},
	Action: func(c *cli.Context) error {
		s, ctx, err := start(c)
		if err != nil {
			return console.Exit(console.ExitError, "could not start device: %s", console.Red(err))
		}
		defer s.Close()
		ready, err := s.WaitForDataReady(ctx, c.Duration("timeout"))
		if err != nil {
			return console.Exit(console.ExitError, "%s", console.Red(err))
		}
		console.Printf("data ready: %s\n", console.Bool(ready))
		if !ready {
			return console.Exit(console.ExitNotReady, "no new data within %s", c.Duration("timeout"))
		}
		return nil
	},
}

var ConfigCmd = &cli.Command{
	Name:  "config",
	Usage: "print the effective configuration",
	Action: func(c *cli.Context) error {
		cfg, err := LoadConfig(c)
		if err != nil {
			return console.Exit(console.ExitError, "%s", console.Red(err))
		}
		out, err := cfg.Marshal()
		if err != nil {
			return console.Exit(console.ExitError, "%s", console.Red(err))
		}
		console.Printf("%s", out)
		return nil
	},
}
