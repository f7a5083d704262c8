// Package ecs contains the AWS::ECS resource types.
package ecs

// TaskDefinition is an AWS::ECS::TaskDefinition.
type TaskDefinition struct {
	Family                  any                             `json:"Family,omitempty"`
	Cpu                     string                          `json:"Cpu,omitempty"`
	Memory                  string                          `json:"Memory,omitempty"`
	NetworkMode             string                          `json:"NetworkMode,omitempty"`
	RequiresCompatibilities []any                           `json:"RequiresCompatibilities,omitempty"`
	ExecutionRoleArn        any                             `json:"ExecutionRoleArn,omitempty"`
	TaskRoleArn             any                             `json:"TaskRoleArn,omitempty"`
	RuntimePlatform         *TaskDefinition_RuntimePlatform `json:"RuntimePlatform,omitempty"`
	ContainerDefinitions    []any                           `json:"ContainerDefinitions,omitempty"`
	Tags                    []any                           `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (TaskDefinition) ResourceType() string { return "AWS::ECS::TaskDefinition" }

// TaskDefinition_ContainerDefinition describes one container of a task.
type TaskDefinition_ContainerDefinition struct {
	Name             string                           `json:"Name,omitempty"`
	Image            any                              `json:"Image,omitempty"`
	Essential        bool                             `json:"Essential,omitempty"`
	Cpu              int                              `json:"Cpu,omitempty"`
	Memory           int                              `json:"Memory,omitempty"`
	EntryPoint       []any                            `json:"EntryPoint,omitempty"`
	Command          []any                            `json:"Command,omitempty"`
	Environment      []any                            `json:"Environment,omitempty"`
	LogConfiguration *TaskDefinition_LogConfiguration `json:"LogConfiguration,omitempty"`
}

// TaskDefinition_KeyValuePair is a container environment variable.
type TaskDefinition_KeyValuePair struct {
	Name  string `json:"Name,omitempty"`
	Value any    `json:"Value,omitempty"`
}

// TaskDefinition_LogConfiguration configures a container's log driver.
type TaskDefinition_LogConfiguration struct {
	LogDriver string         `json:"LogDriver,omitempty"`
	Options   map[string]any `json:"Options,omitempty"`
}

// TaskDefinition_RuntimePlatform selects the CPU architecture and OS family.
type TaskDefinition_RuntimePlatform struct {
	CpuArchitecture       string `json:"CpuArchitecture,omitempty"`
	OperatingSystemFamily string `json:"OperatingSystemFamily,omitempty"`
}

// Log driver settings for the awslogs driver.
const (
	LogDriverAwsLogs = "awslogs"

	AwsLogsGroup        = "awslogs-group"
	AwsLogsRegion       = "awslogs-region"
	AwsLogsStreamPrefix = "awslogs-stream-prefix"
	AwsLogsMode         = "mode"

	AwsLogDriverModeNonBlocking = "non-blocking"
	AwsLogDriverModeBlocking    = "blocking"
)
