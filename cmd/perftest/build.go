package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	perftest "github.com/lex00/perftest-infra-go"
	"github.com/lex00/perftest-infra-go/internal/template"
)

func newBuildCmd(root *rootOptions) *cobra.Command {
	var (
		outputFormat string
		outputFile   string
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Generate the CloudFormation template",
		Long: `Build loads the config and synthesizes the PerformanceTestStack template.

When the feature flag is off nothing is written.

Examples:
    perftest build
    perftest build -o template.json
    perftest build --format yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result := runBuild(cmd.Context(), root.configFile)
			return outputResult(cmd.OutOrStdout(), result, outputFormat, outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "json", "Output format: json or yaml")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runBuild(ctx context.Context, configFile string) perftest.BuildResult {
	_, tmpl, err := synth(ctx, configFile)
	if err != nil {
		return perftest.BuildResult{Errors: []string{err.Error()}}
	}
	if tmpl == nil {
		return perftest.BuildResult{Success: true, Enabled: false}
	}

	names := make([]string, 0, len(tmpl.Resources))
	for name := range tmpl.Resources {
		names = append(names, name)
	}
	sort.Strings(names)

	return perftest.BuildResult{
		Success:   true,
		Enabled:   true,
		Template:  tmpl,
		Resources: names,
	}
}

func outputResult(w io.Writer, result perftest.BuildResult, format, outputFile string) error {
	if !result.Success {
		for _, e := range result.Errors {
			fmt.Fprintln(os.Stderr, e)
		}
		return fmt.Errorf("build failed")
	}
	if !result.Enabled {
		return nil
	}

	data, err := encodeTemplate(result.Template, format)
	if err != nil {
		return err
	}

	if outputFile == "" {
		_, err := fmt.Fprintln(w, string(data))
		return err
	}

	return os.WriteFile(outputFile, data, 0o644)
}

func encodeTemplate(tmpl *perftest.Template, format string) ([]byte, error) {
	switch format {
	case "json":
		return template.ToJSON(tmpl)
	case "yaml":
		return template.ToYAML(tmpl)
	default:
		return nil, fmt.Errorf("unknown format: %s", format)
	}
}
