// Package main provides the schemagraph CLI.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/dusk-indust/schemagraph/internal/config"
)

// version is set by the linker at build time.
var version = "dev"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	ProjectRoot string
	LogLevel    string
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "schemagraph",
		Short:         "Edit schema-derived configuration as a node graph",
		Long:          `schemagraph turns Python-like schema declarations into typed node types, converts nested config documents to and from node graphs, and serves the graph editor over MCP.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&flags.ProjectRoot, "project-root", ".", "path to the project holding schemagraph.yml")
	root.PersistentFlags().StringVar(&flags.LogLevel, "log-level", "", "log level: trace, debug, info, warn, error or off (overrides config)")

	root.AddCommand(
		newTypesCmd(flags),
		newConvertCmd(flags),
		newRoundtripCmd(flags),
		newDiagramCmd(flags),
		newServeMCPCmd(flags),
	)
	return root
}

// loadConfig reads project settings and applies the --log-level override.
func loadConfig(flags *globalFlags) (*config.ProjectConfig, error) {
	cfg, err := config.Load(flags.ProjectRoot)
	if err != nil {
		return nil, err
	}
	if flags.LogLevel != "" {
		if hclog.LevelFromString(flags.LogLevel) == hclog.NoLevel {
			return nil, fmt.Errorf("invalid --log-level %q", flags.LogLevel)
		}
		cfg.LogLevel = flags.LogLevel
	}
	return cfg, nil
}

// newLogger writes structured logs to stderr; stdout carries command output.
func newLogger(level string, w io.Writer) hclog.Logger {
	if level == "" {
		level = "warn"
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "schemagraph",
		Level:  hclog.LevelFromString(level),
		Output: w,
	})
}
