package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

// SimCmd runs the gyroscope cli against the simulated device.
func SimCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sim [command] [flags]",
		Short: "Run the gyroscope cli on the simulated bus",
		Long: `Run the gyroscope cli with the register simulator instead of hardware.

Examples:
  dev sim info
  dev sim read -n 10 --raw
  dev sim stream --metrics-addr :9100`,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"info"}
			}
			goArgs := append([]string{"run", "./cmd/gyroscope", "--adapter", "sim"}, args...)
			slog.Info("running simulator", "args", goArgs)
			run := exec.CommandContext(cmd.Context(), "go", goArgs...)
			run.Stdin = os.Stdin
			run.Stdout = os.Stdout
			run.Stderr = os.Stderr
			if err := run.Run(); err != nil {
				return fmt.Errorf("failed to run simulator: %w", err)
			}
			return nil
		},
	}
	return cmd
}
