package trigger

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// Environment variables set on the trigger function by the stack.
const (
	EnvClusterARN        = "PERFTEST_CLUSTER_ARN"
	EnvTaskDefinitionARN = "PERFTEST_TASK_DEFINITION_ARN"
	EnvSubnets           = "PERFTEST_SUBNETS"
	EnvSecurityGroups    = "PERFTEST_SECURITY_GROUPS"
	EnvAssignPublicIP    = "PERFTEST_ASSIGN_PUBLIC_IP"
)

// Config is read from the function's environment at cold start.
type Config struct {
	ClusterARN        string   `envconfig:"PERFTEST_CLUSTER_ARN" validate:"required,startswith=arn:"`
	TaskDefinitionARN string   `envconfig:"PERFTEST_TASK_DEFINITION_ARN" validate:"required,startswith=arn:"`
	Subnets           []string `envconfig:"PERFTEST_SUBNETS"`
	SecurityGroups    []string `envconfig:"PERFTEST_SECURITY_GROUPS"`
	AssignPublicIP    bool     `envconfig:"PERFTEST_ASSIGN_PUBLIC_IP"`
}

// LoadConfig reads and validates the trigger configuration.
func LoadConfig() (Config, error) {
	var cfg Config
	// Empty prefix: the tags are the exact variable names.
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Variables renders cfg as the function environment.
func (c Config) Variables() map[string]string {
	vars := map[string]string{
		EnvClusterARN:        c.ClusterARN,
		EnvTaskDefinitionARN: c.TaskDefinitionARN,
	}
	if len(c.Subnets) > 0 {
		vars[EnvSubnets] = strings.Join(c.Subnets, ",")
	}
	if len(c.SecurityGroups) > 0 {
		vars[EnvSecurityGroups] = strings.Join(c.SecurityGroups, ",")
	}
	if c.AssignPublicIP {
		vars[EnvAssignPublicIP] = "true"
	}
	return vars
}
