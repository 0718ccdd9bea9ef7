package command

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/gyroscope/cmd/gyroscope/console"
	"github.com/mklimuk/gyroscope/telemetry"
)

var ReadCmd = &cli.Command{
	Name:  "read",
	Usage: "read angular rate samples",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Value: 1, Usage: "number of samples, 0 reads until interrupted"},
		&cli.DurationFlag{Name: "interval", Aliases: []string{"i"}, Value: 100 * time.Millisecond},
		&cli.DurationFlag{Name: "timeout", Aliases: []string{"t"}, Value: 20 * time.Millisecond, Usage: "data ready wait per sample"},
		&cli.BoolFlag{Name: "raw", Usage: "print output register values only"},
		&cli.BoolFlag{Name: "json", Usage: "print one JSON object per sample"},
	},
	Action: func(c *cli.Context) error {
		s, ctx, err := start(c)
		if err != nil {
			return console.Exit(console.ExitError, "could not start device: %s", console.Red(err))
		}
		defer s.Close()

		count := c.Int("count")
		ticker := time.NewTicker(c.Duration("interval"))
		defer ticker.Stop()
		for n := 0; count == 0 || n < count; n++ {
			if n > 0 {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
			ready, err := s.WaitForDataReady(ctx, c.Duration("timeout"))
			if err != nil {
				return console.Exit(console.ExitError, "%s", console.Red(err))
			}
			if !ready {
				console.Warnf("no new data within %s, reading previous output", c.Duration("timeout"))
			}
			raw, err := s.GetRawSample(ctx)
			if err != nil {
				return console.Exit(console.ExitError, "%s", console.Red(err))
			}
			sample := telemetry.Sample{Time: time.Now(), Raw: raw, Rate: s.Scale(raw)}
			switch {
			case c.Bool("json"):
				out, err := json.Marshal(sample)
				if err != nil {
					return console.Exit(console.ExitError, "%s", console.Red(err))
				}
				console.Print(string(out))
			case c.Bool("raw"):
				console.Printf("x %s y %s z %s\n", console.Axis("x", raw.X), console.Axis("y", raw.Y), console.Axis("z", raw.Z))
			default:
				dps := sample.Rate.DPS()
				console.Printf("x %s y %s z %s dps\n",
					console.Axis("x", fmt.Sprintf("%8.2f", dps.X)),
					console.Axis("y", fmt.Sprintf("%8.2f", dps.Y)),
					console.Axis("z", fmt.Sprintf("%8.2f", dps.Z)))
			}
		}
		return nil
	},
}
