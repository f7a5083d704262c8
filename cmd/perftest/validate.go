package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	perftest "github.com/lex00/perftest-infra-go"
	"github.com/lex00/perftest-infra-go/internal/validation"
)

// newValidateCmd creates the "validate" subcommand for checking the template.
func newValidateCmd(root *rootOptions) *cobra.Command {
	var (
		outputFormat string
		skipCfnLint  bool
		strictSchema bool
		rules        []string
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the synthesized template",
		Long: `Validate synthesizes the template and checks it.

Checks performed:
  - Guard rules PERF001-PERF006 (schedule targets, IAM wildcards, log group
    encryption and retention, reference resolution, pinned images)
  - Offline resource schemas (required properties, types, allowed values)
  - cfn-lint rules, unless --skip-cfn-lint

Examples:
    perftest validate
    perftest validate --format json
    perftest validate --rules PERF001,PERF006 --skip-cfn-lint`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, tmpl, err := synth(cmd.Context(), root.configFile)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			result := perftest.ValidateResult{Success: true}
			if tmpl != nil {
				report, err := validation.Validate(tmpl, validation.Options{
					SkipCfnLint:  skipCfnLint,
					GuardRules:   rules,
					StrictSchema: strictSchema,
				})
				if err != nil {
					return err
				}
				result = perftest.ValidateResult{
					Success:   report.Passed,
					Resources: len(tmpl.Resources),
					Errors:    report.Errors(),
					Warnings:  report.Warnings(),
				}
			}

			return outputValidateResult(cmd.OutOrStdout(), result, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&skipCfnLint, "skip-cfn-lint", false, "Run the guard rules only")
	cmd.Flags().BoolVar(&strictSchema, "strict-schema", false, "Warn about properties missing from the offline schemas")
	cmd.Flags().StringSliceVar(&rules, "rules", nil, "Guard rule IDs to run (default: all)")

	return cmd
}

func outputValidateResult(w io.Writer, result perftest.ValidateResult, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		if result.Success {
			fmt.Fprintf(w, "Validation passed: %d resources OK\n", result.Resources)
			for _, warnMsg := range result.Warnings {
				fmt.Fprintf(w, "  WARNING: %s\n", warnMsg)
			}
			return nil
		}

		fmt.Fprintln(w, "Validation FAILED:")
		for _, errMsg := range result.Errors {
			fmt.Fprintf(w, "  ERROR: %s\n", errMsg)
		}
		for _, warnMsg := range result.Warnings {
			fmt.Fprintf(w, "  WARNING: %s\n", warnMsg)
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	if !result.Success {
		return fmt.Errorf("validation failed")
	}

	return nil
}
