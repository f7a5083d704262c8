package guard

import (
	"fmt"
	"sort"
	"strings"

	perftest "github.com/lex00/perftest-infra-go"
	"github.com/lex00/perftest-infra-go/internal/config"
	"github.com/lex00/perftest-infra-go/internal/serialize"
)

// sortedResources iterates resources in logical ID order so issues are stable.
func sortedResources(tmpl *perftest.Template, resourceType string) []string {
	var names []string
	for name, def := range tmpl.Resources {
		if resourceType == "" || def.Type == resourceType {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func issue(r Rule, file, message, suggestion string, severity Severity) Issue {
	return Issue{
		Rule:       r.ID(),
		Message:    message,
		Suggestion: suggestion,
		File:       file,
		Severity:   severity,
	}
}

// NoDirectECSSchedule rejects schedules that start ECS tasks themselves.
type NoDirectECSSchedule struct{}

func (r NoDirectECSSchedule) ID() string { return "PERF001" }
func (r NoDirectECSSchedule) Description() string {
	return "Schedules must not target ECS directly"
}

func (r NoDirectECSSchedule) Check(tmpl *perftest.Template, file string) []Issue {
	var issues []Issue
	for _, name := range sortedResources(tmpl, "AWS::Scheduler::Schedule") {
		target, _ := tmpl.Resources[name].Properties["Target"].(map[string]any)
		if _, ok := target["EcsParameters"]; ok {
			issues = append(issues, issue(r, file,
				name+": schedule target includes EcsParameters",
				"target a function that calls RunTask instead", SeverityError))
		}
	}
	return issues
}

// NoWildcardRoleResources rejects Allow statements on "*" or wildcard ARNs in
// role inline policies.
type NoWildcardRoleResources struct{}

func (r NoWildcardRoleResources) ID() string { return "PERF002" }
func (r NoWildcardRoleResources) Description() string {
	return "Role inline policies must not grant wildcard resources"
}

func (r NoWildcardRoleResources) Check(tmpl *perftest.Template, file string) []Issue {
	var issues []Issue
	for _, name := range sortedResources(tmpl, "AWS::IAM::Role") {
		policies, _ := tmpl.Resources[name].Properties["Policies"].([]any)
		for _, p := range policies {
			policy, _ := p.(map[string]any)
			doc, _ := policy["PolicyDocument"].(map[string]any)
			statements, _ := doc["Statement"].([]any)
			for _, s := range statements {
				stmt, _ := s.(map[string]any)
				if stmt["Effect"] != "Allow" {
					continue
				}
				for _, res := range asList(stmt["Resource"]) {
					str, ok := res.(string)
					if !ok || !strings.Contains(str, "*") {
						continue
					}
					issues = append(issues, issue(r, file,
						fmt.Sprintf("%s: policy %v allows resource %q", name, policy["PolicyName"], str),
						"scope the statement to specific ARNs", SeverityError))
				}
			}
		}
	}
	return issues
}

// EncryptedLogGroups warns about log groups without a KMS key.
type EncryptedLogGroups struct{}

func (r EncryptedLogGroups) ID() string { return "PERF003" }
func (r EncryptedLogGroups) Description() string {
	return "Log groups must be encrypted with a KMS key"
}

func (r EncryptedLogGroups) Check(tmpl *perftest.Template, file string) []Issue {
	var issues []Issue
	for _, name := range sortedResources(tmpl, "AWS::Logs::LogGroup") {
		if _, ok := tmpl.Resources[name].Properties["KmsKeyId"]; !ok {
			issues = append(issues, issue(r, file,
				name+": log group has no KmsKeyId",
				"set KmsKeyId to the ARN of a key that grants logs.amazonaws.com", SeverityWarning))
		}
	}
	return issues
}

// RetainedLogGroups warns about log groups deleted with the stack.
type RetainedLogGroups struct{}

func (r RetainedLogGroups) ID() string { return "PERF004" }
func (r RetainedLogGroups) Description() string {
	return "Log groups must be retained when the stack is deleted"
}

func (r RetainedLogGroups) Check(tmpl *perftest.Template, file string) []Issue {
	var issues []Issue
	for _, name := range sortedResources(tmpl, "AWS::Logs::LogGroup") {
		if tmpl.Resources[name].DeletionPolicy != perftest.DeletionPolicyRetain {
			issues = append(issues, issue(r, file,
				name+": log group is deleted with the stack",
				"DeletionPolicy: Retain", SeverityWarning))
		}
	}
	return issues
}

// ResolvableReferences rejects references to logical IDs missing from the
// template.
type ResolvableReferences struct{}

func (r ResolvableReferences) ID() string { return "PERF005" }
func (r ResolvableReferences) Description() string {
	return "Every Ref and Fn::GetAtt must resolve inside the template"
}

func (r ResolvableReferences) Check(tmpl *perftest.Template, file string) []Issue {
	var issues []Issue
	check := func(owner string, v any) {
		refs, _ := serialize.References(v)
		for _, ref := range refs {
			if _, ok := tmpl.Resources[ref]; ok {
				continue
			}
			issues = append(issues, issue(r, file,
				fmt.Sprintf("%s: reference to undefined resource %q", owner, ref),
				"", SeverityError))
		}
	}

	for _, name := range sortedResources(tmpl, "") {
		def := tmpl.Resources[name]
		check(name, def.Properties)
		for _, dep := range def.DependsOn {
			if _, ok := tmpl.Resources[dep]; !ok {
				issues = append(issues, issue(r, file,
					fmt.Sprintf("%s: DependsOn undefined resource %q", name, dep),
					"", SeverityError))
			}
		}
	}

	outputs := make([]string, 0, len(tmpl.Outputs))
	for name := range tmpl.Outputs {
		outputs = append(outputs, name)
	}
	sort.Strings(outputs)
	for _, name := range outputs {
		check("Outputs."+name, tmpl.Outputs[name].Value)
	}
	return issues
}

// PinnedImages rejects container images on floating tags.
type PinnedImages struct{}

func (r PinnedImages) ID() string { return "PERF006" }
func (r PinnedImages) Description() string {
	return "Container images must be pinned to an immutable tag or digest"
}

func (r PinnedImages) Check(tmpl *perftest.Template, file string) []Issue {
	var issues []Issue
	for _, name := range sortedResources(tmpl, "AWS::ECS::TaskDefinition") {
		containers, _ := tmpl.Resources[name].Properties["ContainerDefinitions"].([]any)
		for _, c := range containers {
			container, _ := c.(map[string]any)
			image, ok := container["Image"].(string)
			if !ok {
				// Intrinsic images are resolved at deploy time.
				continue
			}
			tag := config.ImageTag(image)
			if !config.IsImmutableTag(tag) {
				issues = append(issues, issue(r, file,
					fmt.Sprintf("%s: container %v uses image %q without an immutable tag", name, container["Name"], image),
					"pin a version tag or sha256 digest", SeverityError))
			}
		}
	}
	return issues
}

func asList(v any) []any {
	switch val := v.(type) {
	case []any:
		return val
	case nil:
		return nil
	default:
		return []any{val}
	}
}
