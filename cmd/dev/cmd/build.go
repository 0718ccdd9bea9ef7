package cmd

import (
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gophertribe/devtool/build"
)

type platform struct {
	os   string
	arch string
}

// targets are the boards the cli ships for. The binary is pure Go, so every
// target cross-compiles on the host.
var targets = map[string]platform{
	"host":   {runtime.GOOS, runtime.GOARCH},
	"nanopi": {"linux", "arm"},
	"rpi":    {"linux", "arm64"},
	"amd64":  {"linux", "amd64"},
}

func targetNames() []string {
	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// resolveTargets maps target names to platforms. An explicit os/arch pair
// overrides the list.
func resolveTargets(names []string, goos, goarch string) ([]platform, error) {
	if goos != "" || goarch != "" {
		p := targets["host"]
		if goos != "" {
			p.os = goos
		}
		if goarch != "" {
			p.arch = goarch
		}
		return []platform{p}, nil
	}
	var res []platform
	for _, name := range names {
		p, ok := targets[name]
		if !ok {
			return nil, fmt.Errorf("unknown target %q, expected one of %s", name, strings.Join(targetNames(), ", "))
		}
		res = append(res, p)
	}
	return res, nil
}

func outputPath(dir string, p platform) string {
	if p == targets["host"] {
		return dir + "/gyroscope"
	}
	return fmt.Sprintf("%s/gyroscope-%s-%s", dir, p.os, p.arch)
}

func BuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build gyroscope cli",
		Long: fmt.Sprintf(`Build the gyroscope cli for one or more targets.

Targets: %s

Examples:
  dev build
  dev build -t nanopi -t rpi --version v0.2.0
  dev build --os linux --arch riscv64`, strings.Join(targetNames(), ", ")),
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := cmd.Flags().GetStringSlice("target")
			if err != nil {
				return fmt.Errorf("could not get target flag: %w", err)
			}
			version := cmd.Flag("version").Value.String()
			dir := cmd.Flag("dist").Value.String()
			platforms, err := resolveTargets(names, cmd.Flag("os").Value.String(), cmd.Flag("arch").Value.String())
			if err != nil {
				return err
			}
			for _, p := range platforms {
				out := outputPath(dir, p)
				slog.Info("building", "os", p.os, "arch", p.arch, "output", out)
				err := build.GoBuild(out, "./cmd/gyroscope", build.GoBuildOpts{
					Version:       version,
					InjectVersion: true,
					ConfigPackage: "github.com/mklimuk/gyroscope/config",
					EnableCgo:     false,
					OS:            p.os,
					Arch:          p.arch,
				})
				if err != nil {
					return fmt.Errorf("could not build %s/%s: %w", p.os, p.arch, err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringSliceP("target", "t", []string{"host"}, "board target, repeatable")
	cmd.Flags().String("version", "latest", "version of the cli")
	cmd.Flags().String("dist", "dist", "output directory")
	cmd.Flags().String("os", "", "os to build for, overrides --target")
	cmd.Flags().String("arch", "", "arch to build for, overrides --target")

	return cmd
}
