package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	perftest "github.com/lex00/perftest-infra-go"
	"github.com/lex00/perftest-infra-go/internal/deploy"
	"github.com/lex00/perftest-infra-go/internal/differ"
)

func newDiffCmd(root *rootOptions) *cobra.Command {
	var (
		outputFormat string
		ignoreOrder  bool
		deployed     bool
	)

	cmd := &cobra.Command{
		Use:   "diff [template1] [template2]",
		Short: "Compare CloudFormation templates",
		Long: `Diff compares two templates and reports added, removed and modified resources.

With two arguments the files are compared. With one argument the file is
compared to the template synthesized from the config. With --deployed the
currently deployed template is compared to the synthesized one.

Removed resources with a Retain deletion policy are marked: CloudFormation
leaves them in the account.

Examples:
    perftest diff old.json new.json
    perftest diff old.yaml
    perftest diff --deployed --format json`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts := differ.Options{IgnoreOrder: ignoreOrder}

			var (
				result *differ.Result
				err    error
			)
			switch {
			case deployed:
				if len(args) > 0 {
					return errors.New("--deployed takes no arguments")
				}
				result, err = diffDeployed(ctx, root.configFile, opts)
			case len(args) == 2:
				result, err = differ.CompareFiles(args[0], args[1], opts)
			case len(args) == 1:
				result, err = diffFile(ctx, root.configFile, args[0], opts)
			default:
				return errors.New("give one or two template files, or --deployed")
			}
			if err != nil {
				return err
			}

			return outputDiffResult(cmd.OutOrStdout(), result, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&ignoreOrder, "ignore-order", false, "Ignore array element order")
	cmd.Flags().BoolVar(&deployed, "deployed", false, "Compare the deployed stack to the synthesized template")

	return cmd
}

func diffFile(ctx context.Context, configFile, path string, opts differ.Options) (*differ.Result, error) {
	before, err := differ.LoadTemplate(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	_, after, err := synth(ctx, configFile)
	if err != nil {
		return nil, err
	}
	return differ.Compare(before, after, opts)
}

func diffDeployed(ctx context.Context, configFile string, opts differ.Options) (*differ.Result, error) {
	c, after, err := synth(ctx, configFile)
	if err != nil {
		return nil, err
	}

	clients, err := newAWSClients(ctx, c.Config.Region)
	if err != nil {
		return nil, err
	}

	before, err := clients.deployer.DeployedTemplate(ctx, c.Config.StackName)
	if errors.Is(err, deploy.ErrStackNotFound) {
		before = nil
	} else if err != nil {
		return nil, err
	}

	return differ.Compare(before, after, opts)
}

func outputDiffResult(w io.Writer, result *differ.Result, format string) error {
	switch format {
	case "json":
		out := struct {
			Diff    perftest.TemplateDiff `json:"diff"`
			Summary perftest.DiffSummary  `json:"summary"`
		}{result.Diff, result.Summary}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		if result.Summary.Total == 0 {
			fmt.Fprintln(w, "No differences.")
			return nil
		}
		for _, e := range result.Diff.Added {
			fmt.Fprintf(w, "+ %s (%s)\n", e.Resource, e.Type)
		}
		for _, e := range result.Diff.Removed {
			if e.Retained {
				fmt.Fprintf(w, "- %s (%s) [retained]\n", e.Resource, e.Type)
			} else {
				fmt.Fprintf(w, "- %s (%s)\n", e.Resource, e.Type)
			}
		}
		for _, e := range result.Diff.Modified {
			fmt.Fprintf(w, "~ %s (%s)\n", e.Resource, e.Type)
			for _, c := range e.Changes {
				fmt.Fprintf(w, "    %s\n", c)
			}
		}
		fmt.Fprintf(w, "\n%d added, %d removed, %d modified\n",
			result.Summary.Added, result.Summary.Removed, result.Summary.Modified)

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	return nil
}
