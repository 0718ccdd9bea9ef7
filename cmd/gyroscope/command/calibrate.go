package command

import (
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/gyroscope/cmd/gyroscope/console"
	"github.com/mklimuk/gyroscope/config"
	"github.com/mklimuk/gyroscope/gyro"
)

var CalibrateCmd = &cli.Command{
	Name:  "calibrate",
	Usage: "capture per-axis bounds while the device is rotated and print them as config",
	Flags: []cli.Flag{
		&cli.DurationFlag{Name: "duration", Value: 10 * time.Second, Usage: "capture time"},
		&cli.DurationFlag{Name: "timeout", Aliases: []string{"t"}, Value: 20 * time.Millisecond},
		&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "do not wait for confirmation"},
	},
	Action: func(c *cli.Context) error {
		s, ctx, err := start(c)
		if err != nil {
			return console.Exit(console.ExitError, "could not start device: %s", console.Red(err))
		}
		defer s.Close()

		if !c.Bool("yes") {
			answer, err := console.YesOrNo("rotate the device through its full range on every axis while capturing, start?")
			if err != nil {
				return console.Exit(console.ExitError, "%s", console.Red(err))
			}
			if answer == console.No {
				return nil
			}
		}
		console.PInfof(console.PictoPin, "capturing for %s", c.Duration("duration"))
		var samples []gyro.RawSample
		deadline := time.Now().Add(c.Duration("duration"))
		for time.Now().Before(deadline) {
			if ctx.Err() != nil {
				break
			}
			ready, err := s.WaitForDataReady(ctx, c.Duration("timeout"))
			if err != nil {
				return console.Exit(console.ExitError, "%s", console.Red(err))
			}
			if !ready {
				continue
			}
			raw, err := s.GetRawSample(ctx)
			if err != nil {
				return console.Exit(console.ExitError, "%s", console.Red(err))
			}
			samples = append(samples, raw)
		}
		bounds, err := gyro.BoundsFromSamples(samples, s.Sensitivity())
		if err != nil {
			return console.Exit(console.ExitError, "%s", console.Red(err))
		}
		cal := config.Calibration{X: &bounds[gyro.X], Y: &bounds[gyro.Y], Z: &bounds[gyro.Z]}
		if err := cal.Apply(s.I3G4250D); err != nil {
			return console.Exit(console.ExitError, "%s", console.Red(err))
		}
		console.PInfof(console.PictoFinish, "%s samples, paste into the config file:", console.White(len(samples)))
		out, err := yaml.Marshal(map[string]config.Calibration{"calibration": cal})
		if err != nil {
			return console.Exit(console.ExitError, "%s", console.Red(err))
		}
		console.Printf("%s", out)
		return nil
	},
}
