// Package kms contains the AWS::KMS resource types.
package kms

// Key is an AWS::KMS::Key.
type Key struct {
	Description         any    `json:"Description,omitempty"`
	Enabled             bool   `json:"Enabled,omitempty"`
	EnableKeyRotation   bool   `json:"EnableKeyRotation,omitempty"`
	KeyPolicy           any    `json:"KeyPolicy,omitempty"`
	KeySpec             string `json:"KeySpec,omitempty"`
	KeyUsage            string `json:"KeyUsage,omitempty"`
	PendingWindowInDays int    `json:"PendingWindowInDays,omitempty"`
	Tags                []any  `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (Key) ResourceType() string { return "AWS::KMS::Key" }

// EncryptDecryptActions are the actions granted by an encrypt/decrypt grant.
var EncryptDecryptActions = []string{
	"kms:Decrypt",
	"kms:Encrypt",
	"kms:ReEncrypt*",
	"kms:GenerateDataKey*",
}
