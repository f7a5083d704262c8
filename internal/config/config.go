// Package config defines the configuration for composing the performance test
// stack.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> YAML file -> Defaults (Lowest)
//
// Environment variables use the PERFTEST prefix and follow the nesting of the
// YAML document, e.g. PERFTEST_FEATURE_ENABLE_PERFORMANCE_TESTING or
// PERFTEST_ECS_TASK_PERF_TAG_VERSION.
package config

import (
	"strings"

	perftest "github.com/lex00/perftest-infra-go"
)

// DefaultFile is the configuration file read when none is given.
const DefaultFile = "perftest.yaml"

// EnvPrefix is the envconfig prefix for environment overrides.
const EnvPrefix = "PERFTEST"

// Config is the top-level configuration.
type Config struct {
	StackName string `yaml:"stackName" envconfig:"STACK_NAME" validate:"required"`
	Account   string `yaml:"account" envconfig:"ACCOUNT" validate:"omitempty,len=12,numeric"`
	Region    string `yaml:"region" envconfig:"REGION"`

	FeatureFlags FeatureFlags  `yaml:"featureFlags" envconfig:"FEATURE"`
	ECS          ECSConfig     `yaml:"ecs" envconfig:"ECS"`
	Trigger      TriggerConfig `yaml:"trigger" envconfig:"TRIGGER"`
	Network      NetworkConfig `yaml:"network" envconfig:"NETWORK"`
}

// FeatureFlags holds deploy-time switches.
type FeatureFlags struct {
	EnablePerformanceTesting bool `yaml:"enablePerformanceTesting" envconfig:"ENABLE_PERFORMANCE_TESTING"`
}

// ECSConfig groups the ECS task settings.
type ECSConfig struct {
	TaskDefinitions TaskDefinitions `yaml:"taskDefinitions" envconfig:"TASK"`
}

// TaskDefinitions holds one entry per scheduled task.
type TaskDefinitions struct {
	PerformanceTesting ScheduledTaskConfig `yaml:"PerformanceTesting" envconfig:"PERF"`
}

// ScheduledTaskConfig describes the externally owned pieces of the
// performance test task.
type ScheduledTaskConfig struct {
	RegistryURI      string `yaml:"registryUri" envconfig:"REGISTRY_URI" validate:"required,excludesall=@"`
	TagVersion       string `yaml:"tagVersion" envconfig:"TAG_VERSION" validate:"immutable_tag"`
	ClusterARN       string `yaml:"clusterArn" envconfig:"CLUSTER_ARN" validate:"required,startswith=arn:"`
	ExecutionRoleARN string `yaml:"executionRoleArn" envconfig:"EXECUTION_ROLE_ARN" validate:"required,startswith=arn:"`
}

// Image returns the container image reference. Digests are joined with '@',
// tags with ':'.
func (c ScheduledTaskConfig) Image() string {
	if strings.HasPrefix(c.TagVersion, digestPrefix) {
		return c.RegistryURI + "@" + c.TagVersion
	}
	return c.RegistryURI + ":" + c.TagVersion
}

// TriggerConfig locates the packaged trigger function artifact.
type TriggerConfig struct {
	ArtifactBucket  string `yaml:"artifactBucket" envconfig:"ARTIFACT_BUCKET" validate:"required"`
	ArtifactKey     string `yaml:"artifactKey" envconfig:"ARTIFACT_KEY" validate:"required"`
	ArtifactVersion string `yaml:"artifactVersion" envconfig:"ARTIFACT_VERSION"`
	Architecture    string `yaml:"architecture" envconfig:"ARCHITECTURE" validate:"oneof=arm64 x86_64"`
	MemorySize      int    `yaml:"memorySize" envconfig:"MEMORY_SIZE" validate:"min=128,max=10240"`
	Timeout         int    `yaml:"timeout" envconfig:"TIMEOUT" validate:"min=1,max=900"`
}

// NetworkConfig is passed to RunTask; awsvpc tasks need at least one subnet
// at run time.
type NetworkConfig struct {
	Subnets        []string `yaml:"subnets" envconfig:"SUBNETS" validate:"dive,startswith=subnet-"`
	SecurityGroups []string `yaml:"securityGroups" envconfig:"SECURITY_GROUPS" validate:"dive,startswith=sg-"`
	AssignPublicIP bool     `yaml:"assignPublicIp" envconfig:"ASSIGN_PUBLIC_IP"`
}

// Default returns a Config with defaults applied. The feature flag is off.
func Default() *Config {
	return &Config{
		StackName: "PerformanceTestStack",
		Trigger: TriggerConfig{
			Architecture: "arm64",
			MemorySize:   128,
			Timeout:      30,
		},
	}
}

// Enabled reports whether the performance test stack should be composed.
func (c *Config) Enabled() bool {
	return c.FeatureFlags.EnablePerformanceTesting
}

// Task returns the performance test task settings.
func (c *Config) Task() ScheduledTaskConfig {
	return c.ECS.TaskDefinitions.PerformanceTesting
}

// Environment returns the explicitly configured environment. Empty fields
// are resolved by the environment package.
func (c *Config) Environment() perftest.Environment {
	return perftest.Environment{Account: c.Account, Region: c.Region}
}
