// Package perftest provides the shared types for composing the performance
// test stack as a CloudFormation template.
//
// Resources are plain Go structs from the resources/ packages:
//
//	var logGroup = logs.LogGroup{
//	    LogGroupName:    "/app/perftest-ecs-logs",
//	    RetentionInDays: 7,
//	}
//
// A stack (internal/stack) collects them under logical IDs, derives the
// dependency order from Ref and Fn::GetAtt usages, and synthesizes a Template.
package perftest

import (
	"encoding/json"
)

// Resource represents a CloudFormation resource.
// All resource types (kms.Key, ecs.TaskDefinition, etc.) implement this interface.
type Resource interface {
	// ResourceType returns the CloudFormation type (e.g., "AWS::Logs::LogGroup")
	ResourceType() string
}

// AttrRef represents a GetAtt reference to a resource attribute.
//
// When serialized to CloudFormation JSON, AttrRef becomes:
//
//	{"Fn::GetAtt": ["KickOffPerfTestFn", "Arn"]}
type AttrRef struct {
	// Resource is the logical name of the referenced resource
	Resource string
	// Attribute is the attribute name (e.g., "Arn")
	Attribute string
}

// MarshalJSON serializes AttrRef to CloudFormation GetAtt syntax.
func (a AttrRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string][]string{
		"Fn::GetAtt": {a.Resource, a.Attribute},
	})
}

// IsZero returns true if the AttrRef has not been populated.
func (a AttrRef) IsZero() bool {
	return a.Resource == "" && a.Attribute == ""
}

// DeletionPolicy controls what CloudFormation does with a resource when it is
// removed from the stack or the stack is deleted.
type DeletionPolicy string

const (
	// DeletionPolicyDelete destroys the resource with the stack (CloudFormation default).
	DeletionPolicyDelete DeletionPolicy = "Delete"
	// DeletionPolicyRetain keeps the resource in the account after stack removal.
	DeletionPolicyRetain DeletionPolicy = "Retain"
)

// StackResource describes a resource registered in a stack.
type StackResource struct {
	// Name is the logical ID
	Name string
	// Type is the CloudFormation type (e.g., "AWS::ECS::TaskDefinition")
	Type string
	// Dependencies are logical names of referenced resources
	Dependencies []string
	// AttrDependencies is the subset of Dependencies referenced through Fn::GetAtt
	AttrDependencies []string
	// DeletionPolicy is empty when the CloudFormation default applies
	DeletionPolicy DeletionPolicy
}

// Template represents a CloudFormation template.
type Template struct {
	AWSTemplateFormatVersion string                 `json:"AWSTemplateFormatVersion" yaml:"AWSTemplateFormatVersion"`
	Description              string                 `json:"Description,omitempty" yaml:"Description,omitempty"`
	Metadata                 map[string]any         `json:"Metadata,omitempty" yaml:"Metadata,omitempty"`
	Resources                map[string]ResourceDef `json:"Resources" yaml:"Resources"`
	Outputs                  map[string]Output      `json:"Outputs,omitempty" yaml:"Outputs,omitempty"`
}

// ResourceDef is a single resource in the CloudFormation template.
type ResourceDef struct {
	Type                string         `json:"Type" yaml:"Type"`
	Properties          map[string]any `json:"Properties,omitempty" yaml:"Properties,omitempty"`
	DependsOn           []string       `json:"DependsOn,omitempty" yaml:"DependsOn,omitempty"`
	DeletionPolicy      DeletionPolicy `json:"DeletionPolicy,omitempty" yaml:"DeletionPolicy,omitempty"`
	UpdateReplacePolicy DeletionPolicy `json:"UpdateReplacePolicy,omitempty" yaml:"UpdateReplacePolicy,omitempty"`
}

// Output is a CloudFormation template output.
type Output struct {
	Description string        `json:"Description,omitempty" yaml:"Description,omitempty"`
	Value       any           `json:"Value" yaml:"Value"`
	Export      *OutputExport `json:"Export,omitempty" yaml:"Export,omitempty"`
}

// OutputExport names a cross-stack export.
type OutputExport struct {
	Name string `json:"Name" yaml:"Name"`
}

// BuildResult is the JSON output from `perftest build`.
type BuildResult struct {
	Success   bool      `json:"success"`
	Enabled   bool      `json:"enabled"`
	Template  *Template `json:"template,omitempty"`
	Resources []string  `json:"resources,omitempty"`
	Errors    []string  `json:"errors,omitempty"`
}

// ValidateResult is the JSON output from `perftest validate`.
type ValidateResult struct {
	Success   bool     `json:"success"`
	Resources int      `json:"resources"`
	Errors    []string `json:"errors,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// ListResult is the JSON output from `perftest list`.
type ListResult struct {
	Resources []ListResource `json:"resources"`
}

// ListResource is a single resource in the list output.
type ListResource struct {
	Name           string `json:"name"`
	Type           string `json:"type"`
	DeletionPolicy string `json:"deletion_policy,omitempty"`
}

// TemplateDiff holds the per-resource differences between two templates.
type TemplateDiff struct {
	Added    []DiffEntry `json:"added,omitempty"`
	Removed  []DiffEntry `json:"removed,omitempty"`
	Modified []DiffEntry `json:"modified,omitempty"`
}

// DiffEntry is a single resource difference.
type DiffEntry struct {
	Resource string   `json:"resource"`
	Type     string   `json:"type"`
	Changes  []string `json:"changes,omitempty"`
	// Retained marks a removed resource that CloudFormation will leave in the account.
	Retained bool `json:"retained,omitempty"`
}

// DiffSummary counts the differences.
type DiffSummary struct {
	Added    int `json:"added"`
	Removed  int `json:"removed"`
	Modified int `json:"modified"`
	Total    int `json:"total"`
}

// Environment is the account and region a stack is deployed to.
type Environment struct {
	Account string `json:"account,omitempty" yaml:"account,omitempty"`
	Region  string `json:"region,omitempty" yaml:"region,omitempty"`
}

// String renders the environment as aws://account/region.
func (e Environment) String() string {
	account, region := e.Account, e.Region
	if account == "" {
		account = "unknown-account"
	}
	if region == "" {
		region = "unknown-region"
	}
	return "aws://" + account + "/" + region
}

// IsResolved reports whether both account and region are known.
func (e Environment) IsResolved() bool {
	return e.Account != "" && e.Region != ""
}

// SchemaError is a property-level problem found by offline schema checks.
type SchemaError struct {
	Resource string `json:"resource"`
	Property string `json:"property"`
	Message  string `json:"message"`
}

func (e SchemaError) Error() string {
	return e.Resource + "." + e.Property + ": " + e.Message
}
