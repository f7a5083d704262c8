// Package validation checks a synthesized template with the guard rules, the
// offline resource schemas and cfn-lint-go.
package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lex00/cfn-lint-go/pkg/lint"

	perftest "github.com/lex00/perftest-infra-go"
	"github.com/lex00/perftest-infra-go/internal/guard"
	"github.com/lex00/perftest-infra-go/internal/schema"
	"github.com/lex00/perftest-infra-go/internal/template"
)

// CfnLintResult contains the result of running cfn-lint.
type CfnLintResult struct {
	Passed        bool     `json:"passed"`
	Errors        []string `json:"errors"`
	Warnings      []string `json:"warnings"`
	Informational []string `json:"informational"`
}

// TotalIssues returns the total number of issues found.
func (r CfnLintResult) TotalIssues() int {
	return len(r.Errors) + len(r.Warnings) + len(r.Informational)
}

// Report holds the outcome of validating one template.
type Report struct {
	Passed  bool           `json:"passed"`
	Guard   []guard.Issue  `json:"guard,omitempty"`
	Schema  *schema.Result `json:"schema,omitempty"`
	CfnLint *CfnLintResult `json:"cfn_lint,omitempty"`
}

// Errors lists guard and cfn-lint errors.
func (r *Report) Errors() []string {
	var out []string
	for _, issue := range r.Guard {
		if issue.Severity == guard.SeverityError {
			out = append(out, formatIssue(issue))
		}
	}
	if r.Schema != nil {
		for _, e := range r.Schema.Errors {
			out = append(out, "schema: "+e.Error())
		}
	}
	if r.CfnLint != nil {
		out = append(out, r.CfnLint.Errors...)
	}
	return out
}

// Warnings lists guard and cfn-lint warnings.
func (r *Report) Warnings() []string {
	var out []string
	for _, issue := range r.Guard {
		if issue.Severity != guard.SeverityError {
			out = append(out, formatIssue(issue))
		}
	}
	if r.Schema != nil {
		for _, e := range r.Schema.Warnings {
			out = append(out, "schema: "+e.Error())
		}
	}
	if r.CfnLint != nil {
		out = append(out, r.CfnLint.Warnings...)
	}
	return out
}

// Options configures Validate.
type Options struct {
	// SkipCfnLint runs the guard rules only.
	SkipCfnLint bool
	// GuardRules limits the guard rules. Empty enables all.
	GuardRules []string
	// StrictSchema warns about properties the offline schemas do not know.
	StrictSchema bool
}

// Validate runs the guard rules, the schema checks and then cfn-lint on tmpl.
func Validate(tmpl *perftest.Template, opts Options) (*Report, error) {
	guardResult := guard.Check(tmpl, guard.Options{EnabledRules: opts.GuardRules, File: "template.json"})
	schemaResult := schema.ValidateTemplate(tmpl, schema.Options{Strict: opts.StrictSchema})
	report := &Report{
		Passed: guardResult.Success && schemaResult.Valid,
		Guard:  guardResult.Issues,
		Schema: schemaResult,
	}

	if opts.SkipCfnLint {
		return report, nil
	}

	dir, err := os.MkdirTemp("", "perftest-validate-")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	data, err := template.ToJSON(tmpl)
	if err != nil {
		return nil, fmt.Errorf("serializing template: %w", err)
	}
	path := filepath.Join(dir, "template.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing template: %w", err)
	}

	cfnResult, err := RunCfnLint(path)
	if err != nil {
		return nil, fmt.Errorf("running cfn-lint: %w", err)
	}
	report.CfnLint = cfnResult
	report.Passed = report.Passed && cfnResult.Passed

	return report, nil
}

// RunCfnLint runs cfn-lint-go on the given template file.
func RunCfnLint(templatePath string) (*CfnLintResult, error) {
	if _, err := os.Stat(templatePath); err != nil {
		return &CfnLintResult{
			Passed: false,
			Errors: []string{fmt.Sprintf("Template file not found: %s", templatePath)},
		}, nil
	}

	linter := lint.New(lint.Options{})
	matches, err := linter.LintFile(templatePath)
	if err != nil {
		return &CfnLintResult{
			Passed: false,
			Errors: []string{fmt.Sprintf("Linter error: %v", err)},
		}, nil
	}

	result := &CfnLintResult{
		Errors:        []string{},
		Warnings:      []string{},
		Informational: []string{},
	}

	for _, match := range matches {
		formatted := formatMatch(match)

		switch match.Level {
		case "Error":
			result.Errors = append(result.Errors, formatted)
		case "Warning":
			result.Warnings = append(result.Warnings, formatted)
		default:
			result.Informational = append(result.Informational, formatted)
		}
	}

	// Passed if no errors (warnings are acceptable)
	result.Passed = len(result.Errors) == 0

	return result, nil
}

// formatMatch formats a cfn-lint-go match for display.
func formatMatch(match lint.Match) string {
	pathStr := ""
	if len(match.Location.Path) > 0 {
		parts := make([]string, len(match.Location.Path))
		for i, p := range match.Location.Path {
			parts[i] = fmt.Sprintf("%v", p)
		}
		pathStr = strings.Join(parts, "/")
	}

	if pathStr != "" {
		return fmt.Sprintf("%s: %s (at %s)", match.Rule.ID, match.Message, pathStr)
	}
	return fmt.Sprintf("%s: %s", match.Rule.ID, match.Message)
}

func formatIssue(issue guard.Issue) string {
	if issue.Suggestion != "" {
		return fmt.Sprintf("%s: %s (suggestion: %s)", issue.Rule, issue.Message, issue.Suggestion)
	}
	return fmt.Sprintf("%s: %s", issue.Rule, issue.Message)
}
