package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	perftest "github.com/lex00/perftest-infra-go"
	"github.com/lex00/perftest-infra-go/internal/environment"
)

func newListCmd(root *rootOptions) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the stack's resources",
		Long: `List displays the resources of the PerformanceTestStack in dependency order.

Examples:
    perftest list
    perftest list --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := compose(cmd.Context(), root.configFile, environment.Offline())
			if err != nil {
				return err
			}

			result := perftest.ListResult{Resources: []perftest.ListResource{}}
			if c.Stack != nil {
				resources, err := c.Stack.Resources()
				if err != nil {
					return err
				}
				for _, res := range resources {
					result.Resources = append(result.Resources, perftest.ListResource{
						Name:           res.Name,
						Type:           res.Type,
						DeletionPolicy: string(res.DeletionPolicy),
					})
				}
			}

			return outputListResult(cmd.OutOrStdout(), result, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func outputListResult(w io.Writer, result perftest.ListResult, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		if len(result.Resources) == 0 {
			fmt.Fprintln(w, "No resources declared.")
			return nil
		}

		fmt.Fprintf(w, "Stack resources (%d):\n\n", len(result.Resources))
		for _, res := range result.Resources {
			if res.DeletionPolicy != "" {
				fmt.Fprintf(w, "  %s: %s (%s)\n", res.Name, res.Type, res.DeletionPolicy)
			} else {
				fmt.Fprintf(w, "  %s: %s\n", res.Name, res.Type)
			}
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	return nil
}
