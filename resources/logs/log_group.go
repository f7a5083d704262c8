// Package logs contains the AWS::Logs resource types.
package logs

// LogGroup is an AWS::Logs::LogGroup.
type LogGroup struct {
	LogGroupName    any    `json:"LogGroupName,omitempty"`
	LogGroupClass   string `json:"LogGroupClass,omitempty"`
	KmsKeyId        any    `json:"KmsKeyId,omitempty"`
	RetentionInDays int    `json:"RetentionInDays,omitempty"`
	Tags            []any  `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (LogGroup) ResourceType() string { return "AWS::Logs::LogGroup" }

// RetentionOneWeek is the one-week retention setting in days.
const RetentionOneWeek = 7
