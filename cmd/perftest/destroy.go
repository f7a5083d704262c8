package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lex00/perftest-infra-go/internal/config"
	"github.com/lex00/perftest-infra-go/internal/deploy"
	"github.com/lex00/perftest-infra-go/internal/differ"
)

func newDestroyCmd(root *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Delete the stack",
		Long: `Destroy deletes the stack and waits until it is gone.

Resources with a Retain deletion policy, such as the log group, stay in the
account and are listed before the deletion starts. The stack name comes from
the config and the feature flag is ignored, so a disabled stack can still be
removed.

Examples:
    perftest destroy --yes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("destroy deletes the deployed stack; pass --yes to confirm")
			}
			return runDestroy(cmd.Context(), cmd.OutOrStdout(), root.configFile)
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the deletion")

	return cmd
}

func runDestroy(ctx context.Context, w io.Writer, configFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	clients, err := newAWSClients(ctx, cfg.Region)
	if err != nil {
		return err
	}
	if err := clients.resolver.CheckAccount(ctx, cfg.Environment()); err != nil {
		return fmt.Errorf("refusing to destroy: %w", err)
	}

	deployed, err := clients.deployer.DeployedTemplate(ctx, cfg.StackName)
	if errors.Is(err, deploy.ErrStackNotFound) {
		fmt.Fprintf(w, "%s does not exist.\n", cfg.StackName)
		return nil
	}
	if err != nil {
		return err
	}

	gone, err := differ.Compare(deployed, nil, differ.Options{})
	if err != nil {
		return err
	}
	for _, name := range gone.Retained() {
		fmt.Fprintf(w, "Retaining %s\n", name)
	}

	if err := clients.deployer.Destroy(ctx, cfg.StackName); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s deleted.\n", cfg.StackName)
	return nil
}
