package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lex00/perftest-infra-go/internal/environment"
	"github.com/lex00/perftest-infra-go/internal/graph"
)

func newGraphCmd(root *rootOptions) *cobra.Command {
	var (
		outputFormat  string
		clusterByType bool
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Generate DOT graph of resource dependencies",
		Long: `Generate a DOT or Mermaid format graph showing resource dependencies.

The output can be rendered with Graphviz:
    perftest graph | dot -Tpng -o deps.png

Or used in GitHub markdown (Mermaid format):
    perftest graph -f mermaid

Examples:
    perftest graph
    perftest graph -C              # cluster by service
    perftest graph -f mermaid      # mermaid format`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var graphFormat graph.Format
			switch outputFormat {
			case "dot":
				graphFormat = graph.FormatDOT
			case "mermaid":
				graphFormat = graph.FormatMermaid
			default:
				return fmt.Errorf("unknown format: %s (use 'dot' or 'mermaid')", outputFormat)
			}

			c, err := compose(cmd.Context(), root.configFile, environment.Offline())
			if err != nil {
				return err
			}
			if c.Stack == nil {
				return fmt.Errorf("no resources declared")
			}

			resources, err := c.Stack.Resources()
			if err != nil {
				return err
			}

			gen := &graph.Generator{
				Format:        graphFormat,
				ClusterByType: clusterByType,
			}
			return gen.Generate(resources, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "dot", "Output format: dot or mermaid")
	cmd.Flags().BoolVarP(&clusterByType, "cluster", "C", false, "Cluster resources by AWS service")

	return cmd
}
