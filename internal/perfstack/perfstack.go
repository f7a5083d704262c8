// Package perfstack composes the performance test stack: a KMS-encrypted log
// group, a Fargate task definition, and a scheduled function that starts one
// task every five minutes.
package perfstack

import (
	"fmt"
	"strings"
	"time"

	perftest "github.com/lex00/perftest-infra-go"
	"github.com/lex00/perftest-infra-go/internal/config"
	"github.com/lex00/perftest-infra-go/internal/stack"
	"github.com/lex00/perftest-infra-go/internal/trigger"
	. "github.com/lex00/perftest-infra-go/intrinsics"
	"github.com/lex00/perftest-infra-go/resources/ecs"
	"github.com/lex00/perftest-infra-go/resources/iam"
	"github.com/lex00/perftest-infra-go/resources/kms"
	"github.com/lex00/perftest-infra-go/resources/lambda"
	"github.com/lex00/perftest-infra-go/resources/logs"
	"github.com/lex00/perftest-infra-go/resources/scheduler"
)

// Logical IDs.
const (
	KeyID            = "PerformanceTestLogKmsKey"
	TaskDefinitionID = "PerformanceTestTaskDefinition"
	LogGroupID       = "PerformanceTestLogGroup"
	FunctionID       = "KickOffPerfTestFn"
	FunctionRoleID   = "KickOffPerfTestFnServiceRole"
	SchedulerRoleID  = "PerfTestSchedulerRole"
	ScheduleID       = "PerfTestSchedule"
)

const (
	ContainerName       = "PerformanceTestContainer"
	LogGroupName        = "/app/perftest-ecs-logs"
	LogStreamPrefix     = "perftest"
	TaskCPU             = "512"
	TaskMemory          = "1024"
	VersionEnvVar       = "FT_VAR_VERSION"
	ScheduleExpression  = "cron(0/5 * * * ? *)"
	ScheduleDescription = "Kick off ECS perf tests every 5 minutes via Lambda"
	ScheduleInput       = "{}"

	FunctionRuntime = "provided.al2023"
	FunctionHandler = "bootstrap"

	logsPrincipal      = "logs.amazonaws.com"
	lambdaPrincipal    = "lambda.amazonaws.com"
	schedulerPrincipal = "scheduler.amazonaws.com"

	// VersionLayout formats the deployment timestamp passed as FT_VAR_VERSION.
	VersionLayout = "20060102T150405Z"
)

// Phases run in order inside one shell. They are joined with ';' so a failing
// phase does not stop the next one.
var Phases = []string{"LoadSimulation", "StressSimulation", "EnduranceSimulation"}

// ResourceTypes are the CloudFormation types declared by the stack.
var ResourceTypes = []string{
	kms.Key{}.ResourceType(),
	ecs.TaskDefinition{}.ResourceType(),
	logs.LogGroup{}.ResourceType(),
	lambda.Function{}.ResourceType(),
	iam.Role{}.ResourceType(),
	scheduler.Schedule{}.ResourceType(),
}

// Command is the container command.
func Command() []string {
	steps := make([]string, len(Phases))
	for i, p := range Phases {
		steps[i] = "./perftest.sh " + p
	}
	return []string{"/bin/sh", "-c", strings.Join(steps, "; ")}
}

// Options carries the deploy-time inputs that do not come from config.
type Options struct {
	// Env is the resolved environment. Defaults to the configured one.
	Env perftest.Environment
	// Now stamps FT_VAR_VERSION. Defaults to time.Now.
	Now func() time.Time
}

// Compose declares the stack. It returns a nil stack when the feature flag is
// off.
func Compose(cfg *config.Config, opts Options) (*stack.Stack, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if !cfg.Enabled() {
		return nil, nil
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	env := opts.Env
	if env == (perftest.Environment{}) {
		env = cfg.Environment()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	task := cfg.Task()
	s := stack.New(cfg.StackName, env)

	key := s.Add(KeyID, kms.Key{
		Enabled: true,
		KeyPolicy: NewPolicyDocument(
			PolicyStatement{
				Effect:    "Allow",
				Principal: AWSPrincipal{Sub{String: "arn:${AWS::Partition}:iam::${AWS::AccountId}:root"}},
				Action:    "kms:*",
				Resource:  "*",
			},
			PolicyStatement{
				Effect:    "Allow",
				Principal: ServicePrincipal{logsPrincipal},
				Action:    kms.EncryptDecryptActions,
				Resource:  "*",
			},
		),
	})

	logGroup := s.Add(LogGroupID, logs.LogGroup{
		LogGroupName:    LogGroupName,
		RetentionInDays: logs.RetentionOneWeek,
		KmsKeyId:        key.Arn(),
	}, stack.Retain())

	command := make([]any, 0, 3)
	for _, c := range Command() {
		command = append(command, c)
	}

	taskDef := s.Add(TaskDefinitionID, ecs.TaskDefinition{
		Cpu:                     TaskCPU,
		Memory:                  TaskMemory,
		NetworkMode:             "awsvpc",
		RequiresCompatibilities: []any{"FARGATE"},
		ExecutionRoleArn:        task.ExecutionRoleARN,
		ContainerDefinitions: []any{
			ecs.TaskDefinition_ContainerDefinition{
				Name:      ContainerName,
				Image:     task.Image(),
				Essential: true,
				Command:   command,
				Environment: []any{
					ecs.TaskDefinition_KeyValuePair{
						Name:  VersionEnvVar,
						Value: now().UTC().Format(VersionLayout),
					},
				},
				LogConfiguration: &ecs.TaskDefinition_LogConfiguration{
					LogDriver: ecs.LogDriverAwsLogs,
					Options: map[string]any{
						ecs.AwsLogsGroup:        logGroup.Ref(),
						ecs.AwsLogsRegion:       s.Region(),
						ecs.AwsLogsStreamPrefix: LogStreamPrefix,
						ecs.AwsLogsMode:         ecs.AwsLogDriverModeNonBlocking,
					},
				},
			},
		},
	})

	functionRole := s.Add(FunctionRoleID, iam.Role{
		AssumeRolePolicyDocument: NewPolicyDocument(AssumeRoleStatement(lambdaPrincipal)),
		ManagedPolicyArns: []any{
			Sub{String: "arn:${AWS::Partition}:iam::aws:policy/service-role/AWSLambdaBasicExecutionRole"},
		},
		Policies: []any{
			iam.Role_Policy{
				PolicyName: "RunPerformanceTestTask",
				PolicyDocument: NewPolicyDocument(
					Allow([]string{"ecs:RunTask", "iam:PassRole"}, taskDef.Ref(), task.ExecutionRoleARN),
				),
			},
		},
	})

	vars := map[string]any{}
	triggerCfg := trigger.Config{
		ClusterARN:     task.ClusterARN,
		Subnets:        cfg.Network.Subnets,
		SecurityGroups: cfg.Network.SecurityGroups,
		AssignPublicIP: cfg.Network.AssignPublicIP,
	}
	for k, v := range triggerCfg.Variables() {
		if v != "" {
			vars[k] = v
		}
	}
	vars[trigger.EnvTaskDefinitionARN] = taskDef.Ref()

	code := &lambda.Function_Code{
		S3Bucket: cfg.Trigger.ArtifactBucket,
		S3Key:    cfg.Trigger.ArtifactKey,
	}
	if cfg.Trigger.ArtifactVersion != "" {
		code.S3ObjectVersion = cfg.Trigger.ArtifactVersion
	}

	fn := s.Add(FunctionID, lambda.Function{
		Description:   "Starts one run of the performance test task",
		Runtime:       FunctionRuntime,
		Handler:       FunctionHandler,
		Code:          code,
		Role:          functionRole.Arn(),
		Architectures: []any{cfg.Trigger.Architecture},
		MemorySize:    cfg.Trigger.MemorySize,
		Timeout:       cfg.Trigger.Timeout,
		Environment:   &lambda.Function_Environment{Variables: vars},
	})

	schedulerRole := s.Add(SchedulerRoleID, iam.Role{
		AssumeRolePolicyDocument: NewPolicyDocument(AssumeRoleStatement(schedulerPrincipal)),
		Policies: []any{
			iam.Role_Policy{
				PolicyName:     "InvokeKickOffPerfTestFn",
				PolicyDocument: NewPolicyDocument(Allow([]string{"lambda:InvokeFunction"}, fn.Arn())),
			},
		},
	})

	// The target must stay a function invocation; schedules that start ECS
	// tasks directly are rejected by PERF001.
	s.Add(ScheduleID, scheduler.Schedule{
		Description:        ScheduleDescription,
		ScheduleExpression: ScheduleExpression,
		FlexibleTimeWindow: &scheduler.Schedule_FlexibleTimeWindow{Mode: scheduler.FlexibleTimeWindowOff},
		Target: &scheduler.Schedule_Target{
			Arn:     fn.Arn(),
			RoleArn: schedulerRole.Arn(),
			Input:   ScheduleInput,
		},
	})

	s.AddOutput("TaskDefinitionArn", perftest.Output{
		Description: "Performance test task definition",
		Value:       taskDef.Ref(),
	})
	s.AddOutput("TriggerFunctionArn", perftest.Output{
		Description: "Function that starts one performance test run",
		Value:       fn.Arn(),
	})
	s.AddOutput("LogGroupName", perftest.Output{
		Description: "Retained log group for performance test output",
		Value:       logGroup.Ref(),
	})

	if err := s.Err(); err != nil {
		return nil, err
	}
	return s, nil
}
