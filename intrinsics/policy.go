package intrinsics

import (
	"encoding/json"
)

// Json is a shorthand for map[string]any.
// Used for inline JSON objects like Condition blocks.
type Json = map[string]any

// PolicyVersion is the IAM policy language version.
const PolicyVersion = "2012-10-17"

// PolicyDocument represents an IAM policy document.
//
// Example:
//
//	var InvokePolicy = NewPolicyDocument(PolicyStatement{
//	    Effect:   "Allow",
//	    Action:   []any{"lambda:InvokeFunction"},
//	    Resource: []any{TriggerFunctionArn},
//	})
type PolicyDocument struct {
	Version   string `json:"Version,omitempty"`
	Statement []any  `json:"Statement"`
}

// NewPolicyDocument creates a PolicyDocument with the default version.
func NewPolicyDocument(statements ...any) PolicyDocument {
	return PolicyDocument{Version: PolicyVersion, Statement: statements}
}

// PolicyStatement represents an IAM policy statement.
type PolicyStatement struct {
	Sid       string `json:"Sid,omitempty"`
	Effect    string `json:"Effect"`
	Principal any    `json:"Principal,omitempty"`
	Action    any    `json:"Action,omitempty"`
	Resource  any    `json:"Resource,omitempty"`
	Condition Json   `json:"Condition,omitempty"`
}

// Allow returns an Allow statement for the given actions and resources.
func Allow(actions []string, resources ...any) PolicyStatement {
	acts := make([]any, len(actions))
	for i, a := range actions {
		acts[i] = a
	}
	return PolicyStatement{
		Effect:   "Allow",
		Action:   acts,
		Resource: resources,
	}
}

// AssumeRoleStatement allows the given service principal to assume a role.
func AssumeRoleStatement(service string) PolicyStatement {
	return PolicyStatement{
		Effect:    "Allow",
		Principal: ServicePrincipal{service},
		Action:    "sts:AssumeRole",
	}
}

// ServicePrincipal represents a service principal (e.g., lambda.amazonaws.com).
// Serializes to {"Service": ...} format.
type ServicePrincipal []any

// MarshalJSON serializes to {"Service": ...} format.
func (p ServicePrincipal) MarshalJSON() ([]byte, error) {
	if len(p) == 1 {
		return json.Marshal(map[string]any{"Service": p[0]})
	}
	return json.Marshal(map[string]any{"Service": []any(p)})
}

// AWSPrincipal represents an AWS account/role/user principal.
// Serializes to {"AWS": ...} format.
//
//	AWSPrincipal{Sub{String: "arn:${AWS::Partition}:iam::${AWS::AccountId}:root"}}
type AWSPrincipal []any

// MarshalJSON serializes to {"AWS": ...} format.
func (p AWSPrincipal) MarshalJSON() ([]byte, error) {
	if len(p) == 1 {
		return json.Marshal(map[string]any{"AWS": p[0]})
	}
	return json.Marshal(map[string]any{"AWS": []any(p)})
}
