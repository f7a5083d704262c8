package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/lex00/perftest-infra-go/internal/config"
	"github.com/lex00/perftest-infra-go/internal/deploy"
	"github.com/lex00/perftest-infra-go/internal/guard"
)

func newDeployCmd(root *rootOptions) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Create or update the stack",
		Long: `Deploy synthesizes the template and applies it through a CloudFormation change set.

The credentials must belong to the configured account when one is pinned.
The guard rules run first and block the deployment on any error.
An unchanged stack is reported and is not an error.

Examples:
    perftest deploy
    perftest deploy -c prod.yaml --timeout 45m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(cmd.Context(), cmd.OutOrStdout(), root.configFile, timeout)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", deploy.DefaultTimeout, "How long to wait for CloudFormation")

	return cmd
}

func runDeploy(ctx context.Context, w io.Writer, configFile string, timeout time.Duration) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if !cfg.Enabled() {
		fmt.Fprintln(w, "Performance testing is disabled; nothing to deploy.")
		return nil
	}

	clients, err := newAWSClients(ctx, cfg.Region)
	if err != nil {
		return err
	}

	// Pinned account only. A resolved account always matches the caller.
	if err := clients.resolver.CheckAccount(ctx, cfg.Environment()); err != nil {
		return fmt.Errorf("refusing to deploy: %w", err)
	}

	c, err := declare(ctx, cfg, clients.resolver)
	if err != nil {
		return err
	}
	tmpl, err := c.Stack.Synth()
	if err != nil {
		return err
	}

	if result := guard.Check(tmpl, guard.Options{File: "template.json"}); !result.Success {
		for _, issue := range result.Issues {
			fmt.Fprintf(w, "%s: %s [%s]\n", issue.Severity, issue.Message, issue.Rule)
		}
		return errors.New("guard rules failed, not deploying")
	}

	d := clients.deployer
	d.Timeout = timeout

	slog.Info("deploying", "stack", c.Stack.Name(), "env", c.Env.String())

	res, err := d.Deploy(ctx, deploy.Input{
		StackName: c.Stack.Name(),
		Template:  tmpl,
		Tags:      map[string]string{"perftest:image": cfg.Task().Image()},
	})
	if errors.Is(err, deploy.ErrNoChanges) {
		fmt.Fprintf(w, "%s is up to date.\n", c.Stack.Name())
		return nil
	}
	if err != nil {
		return err
	}

	verb := "updated"
	if res.Created {
		verb = "created"
	}
	fmt.Fprintf(w, "%s %s (%s)\n", c.Stack.Name(), verb, res.StackID)
	printOutputs(w, res.Outputs)
	return nil
}

func printOutputs(w io.Writer, outputs map[string]string) {
	if len(outputs) == 0 {
		return
	}
	keys := make([]string, 0, len(outputs))
	for k := range outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintln(w, "\nOutputs:")
	for _, k := range keys {
		fmt.Fprintf(w, "  %s = %s\n", k, outputs[k])
	}
}
