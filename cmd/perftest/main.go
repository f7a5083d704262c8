// Command perftest synthesizes, checks and deploys the PerformanceTestStack.
//
// Usage:
//
//	perftest build                 Generate the CloudFormation template
//	perftest validate              Run guard rules and cfn-lint
//	perftest diff --deployed       Compare against the deployed stack
//	perftest deploy                Create or update the stack
//	perftest destroy --yes         Delete the stack
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lex00/perftest-infra-go/internal/config"
)

type rootOptions struct {
	configFile string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "perftest",
		Short: "Manage the scheduled ECS performance test stack",
		Long: `perftest composes the PerformanceTestStack from perftest.yaml.

The stack runs the performance test container on Fargate every five minutes
through an EventBridge Scheduler schedule and a small trigger function.
Nothing is declared unless featureFlags.enablePerformanceTesting is true.

    perftest build -f yaml
    perftest deploy`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := parseLevel(opts.logLevel)
			if err != nil {
				return err
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", config.DefaultFile, "Config file")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(
		newBuildCmd(opts),
		newListCmd(opts),
		newGraphCmd(opts),
		newValidateCmd(opts),
		newDiffCmd(opts),
		newDeployCmd(opts),
		newDestroyCmd(opts),
		newWatchCmd(opts),
		newVersionCmd(),
	)

	return rootCmd
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "perftest %s\n", getVersion())
		},
	}
}
