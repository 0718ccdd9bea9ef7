package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/gophertribe/devtool/test"
	"github.com/spf13/cobra"
)

func TestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run unit tests",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := test.Test(); err != nil {
				return fmt.Errorf("failed to run tests: %w", err)
			}
			return nil
		},
	}
	return cmd
}

func LintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Run golangci-lint",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := test.Lint(); err != nil {
				return fmt.Errorf("failed to run linting: %w", err)
			}
			return nil
		},
	}
	return cmd
}

// hardwareEnv maps integration-test flags to the variables read by the
// hardware tests in the spi package.
var hardwareEnv = map[string]string{
	"device": "GYRO_SPI_DEVICE",
	"cs":     "GYRO_SPI_CS",
}

func IntegrationTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "integration-test",
		Short: "Run integration tests",
		Long: `Run the test suite with TEST_INTEGRATION_ENABLED set.

Without --device this runs the driver against the register simulator, directly
and through the gobot bus, for every full scale and rate. With --device the
hardware tests also run on the given spidev node.

Examples:
  dev integration-test
  dev integration-test --device /dev/spidev0.0 --cs GPIO8`,
		RunE: func(cmd *cobra.Command, args []string) error {
			for flag, env := range hardwareEnv {
				v, err := cmd.Flags().GetString(flag)
				if err != nil {
					return fmt.Errorf("could not get %s flag: %w", flag, err)
				}
				if v == "" {
					continue
				}
				if err := os.Setenv(env, v); err != nil {
					return fmt.Errorf("could not set %s: %w", env, err)
				}
				slog.Info("hardware tests enabled", env, v)
			}
			if err := test.Integ(); err != nil {
				return fmt.Errorf("failed to run integration testing: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().String("device", "", "spidev node of a connected I3G4250D")
	cmd.Flags().String("cs", "", "GPIO pin driving chip select")
	return cmd
}
