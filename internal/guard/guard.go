// Package guard checks synthesized templates against the rules the
// performance test stack must keep.
//
// Rules:
//
//	PERF001: Schedules must not target ECS directly (no EcsParameters)
//	PERF002: Role inline policies must not grant wildcard resources
//	PERF003: Log groups must be encrypted with a KMS key
//	PERF004: Log groups must be retained when the stack is deleted
//	PERF005: Every Ref and Fn::GetAtt must resolve inside the template
//	PERF006: Container images must be pinned to an immutable tag or digest
package guard

import (
	corelint "github.com/lex00/wetwire-core-go/lint"

	perftest "github.com/lex00/perftest-infra-go"
)

type (
	// Issue is an alias for corelint.Issue.
	Issue = corelint.Issue
	// Severity is an alias for corelint.Severity.
	Severity = corelint.Severity
)

const (
	SeverityError   = corelint.SeverityError
	SeverityWarning = corelint.SeverityWarning
	SeverityInfo    = corelint.SeverityInfo
)

// Rule checks one property of a template.
type Rule interface {
	ID() string
	Description() string
	Check(tmpl *perftest.Template, file string) []Issue
}

// Result contains the outcome of a guard run.
type Result struct {
	// Success is false when any error-severity issue was found.
	Success bool
	Issues  []Issue
}

// Options configures a guard run.
type Options struct {
	// Rules to enable. If empty, all rules are enabled.
	EnabledRules []string
	// File is reported on every issue.
	File string
}

// AllRules returns every guard rule.
func AllRules() []Rule {
	return []Rule{
		NoDirectECSSchedule{},
		NoWildcardRoleResources{},
		EncryptedLogGroups{},
		RetainedLogGroups{},
		ResolvableReferences{},
		PinnedImages{},
	}
}

// Check runs the enabled rules against tmpl.
func Check(tmpl *perftest.Template, opts Options) Result {
	var issues []Issue
	for _, rule := range getRules(opts) {
		issues = append(issues, rule.Check(tmpl, opts.File)...)
	}

	success := true
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			success = false
			break
		}
	}
	return Result{Success: success, Issues: issues}
}

func getRules(opts Options) []Rule {
	all := AllRules()
	if len(opts.EnabledRules) == 0 {
		return all
	}

	enabled := make(map[string]bool)
	for _, id := range opts.EnabledRules {
		enabled[id] = true
	}

	var filtered []Rule
	for _, r := range all {
		if enabled[r.ID()] {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
