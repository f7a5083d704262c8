// Package scheduler contains the AWS::Scheduler resource types.
package scheduler

// Schedule is an AWS::Scheduler::Schedule.
type Schedule struct {
	Name                       any                          `json:"Name,omitempty"`
	GroupName                  any                          `json:"GroupName,omitempty"`
	Description                string                       `json:"Description,omitempty"`
	ScheduleExpression         string                       `json:"ScheduleExpression,omitempty"`
	ScheduleExpressionTimezone string                       `json:"ScheduleExpressionTimezone,omitempty"`
	FlexibleTimeWindow         *Schedule_FlexibleTimeWindow `json:"FlexibleTimeWindow,omitempty"`
	State                      string                       `json:"State,omitempty"`
	Target                     *Schedule_Target             `json:"Target,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (Schedule) ResourceType() string { return "AWS::Scheduler::Schedule" }

// Schedule_FlexibleTimeWindow controls invocation jitter.
type Schedule_FlexibleTimeWindow struct {
	Mode                   string `json:"Mode,omitempty"`
	MaximumWindowInMinutes int    `json:"MaximumWindowInMinutes,omitempty"`
}

// Flexible time window modes.
const (
	FlexibleTimeWindowOff      = "OFF"
	FlexibleTimeWindowFlexible = "FLEXIBLE"
)

// Schedule_Target is what the schedule invokes.
type Schedule_Target struct {
	Arn     any    `json:"Arn,omitempty"`
	RoleArn any    `json:"RoleArn,omitempty"`
	Input   string `json:"Input,omitempty"`
	// EcsParameters makes the schedule start an ECS task directly.
	EcsParameters *Schedule_EcsParameters `json:"EcsParameters,omitempty"`
	RetryPolicy   *Schedule_RetryPolicy   `json:"RetryPolicy,omitempty"`
}

// Schedule_EcsParameters is the ECS-specific target block.
type Schedule_EcsParameters struct {
	TaskDefinitionArn any    `json:"TaskDefinitionArn,omitempty"`
	LaunchType        string `json:"LaunchType,omitempty"`
	PlatformVersion   string `json:"PlatformVersion,omitempty"`
	TaskCount         int    `json:"TaskCount,omitempty"`
}

// Schedule_RetryPolicy bounds target retries.
type Schedule_RetryPolicy struct {
	MaximumEventAgeInSeconds int `json:"MaximumEventAgeInSeconds,omitempty"`
	MaximumRetryAttempts     int `json:"MaximumRetryAttempts,omitempty"`
}
