// Package iam contains the AWS::IAM resource types.
package iam

// Role is an AWS::IAM::Role.
type Role struct {
	RoleName                 any    `json:"RoleName,omitempty"`
	Description              string `json:"Description,omitempty"`
	Path                     string `json:"Path,omitempty"`
	AssumeRolePolicyDocument any    `json:"AssumeRolePolicyDocument,omitempty"`
	ManagedPolicyArns        []any  `json:"ManagedPolicyArns,omitempty"`
	Policies                 []any  `json:"Policies,omitempty"`
	MaxSessionDuration       int    `json:"MaxSessionDuration,omitempty"`
	Tags                     []any  `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (Role) ResourceType() string { return "AWS::IAM::Role" }

// Role_Policy is an inline policy embedded in a Role.
type Role_Policy struct {
	PolicyName     any `json:"PolicyName,omitempty"`
	PolicyDocument any `json:"PolicyDocument,omitempty"`
}
