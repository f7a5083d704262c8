// Package trigger starts one run of the performance test task. It backs the
// function invoked by the schedule every five minutes.
package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/google/uuid"
)

// Fixed RunTask parameters.
const (
	LaunchType      = ecstypes.LaunchTypeFargate
	PlatformVersion = "1.4.0"
	TaskCount       = 1
)

// ErrTaskNotStarted is returned when RunTask succeeds at the API level but
// reports failures instead of a started task.
var ErrTaskNotStarted = errors.New("task not started")

// RunTaskAPI is the subset of the ECS client used by the handler.
type RunTaskAPI interface {
	RunTask(ctx context.Context, params *ecs.RunTaskInput, optFns ...func(*ecs.Options)) (*ecs.RunTaskOutput, error)
}

// Handler issues the RunTask call.
type Handler struct {
	ECS    RunTaskAPI
	Config Config
	Logger *slog.Logger

	// NewToken generates a client token when no Lambda context is present.
	NewToken func() string
}

// NewHandler wires a Handler with a UUID token source.
func NewHandler(client RunTaskAPI, cfg Config, logger *slog.Logger) *Handler {
	return &Handler{
		ECS:      client,
		Config:   cfg,
		Logger:   logger,
		NewToken: uuid.NewString,
	}
}

// Handle starts exactly one task. The event payload is ignored. Errors are
// returned so the invocation is recorded as failed.
func (h *Handler) Handle(ctx context.Context, event json.RawMessage) error {
	token := h.clientToken(ctx)
	logger := h.Logger.With("client_token", token)

	input := h.runTaskInput(token)
	logger.Info("starting performance test task",
		"cluster", h.Config.ClusterARN,
		"task_definition", h.Config.TaskDefinitionARN,
		"launch_type", string(LaunchType),
		"platform_version", PlatformVersion,
	)

	out, err := h.ECS.RunTask(ctx, input)
	if err != nil {
		logger.Error("RunTask failed", "error", err)
		return fmt.Errorf("run task: %w", err)
	}

	if len(out.Failures) > 0 {
		for _, f := range out.Failures {
			logger.Error("RunTask reported failure",
				"arn", aws.ToString(f.Arn),
				"reason", aws.ToString(f.Reason),
				"detail", aws.ToString(f.Detail),
			)
		}
		first := out.Failures[0]
		return fmt.Errorf("%w: %s", ErrTaskNotStarted, aws.ToString(first.Reason))
	}

	for _, task := range out.Tasks {
		logger.Info("performance test task started", "task_arn", aws.ToString(task.TaskArn))
	}
	return nil
}

func (h *Handler) runTaskInput(token string) *ecs.RunTaskInput {
	input := &ecs.RunTaskInput{
		Cluster:         aws.String(h.Config.ClusterARN),
		TaskDefinition:  aws.String(h.Config.TaskDefinitionARN),
		LaunchType:      LaunchType,
		PlatformVersion: aws.String(PlatformVersion),
		Count:           aws.Int32(TaskCount),
		ClientToken:     aws.String(token),
	}

	if len(h.Config.Subnets) > 0 {
		assign := ecstypes.AssignPublicIpDisabled
		if h.Config.AssignPublicIP {
			assign = ecstypes.AssignPublicIpEnabled
		}
		input.NetworkConfiguration = &ecstypes.NetworkConfiguration{
			AwsvpcConfiguration: &ecstypes.AwsVpcConfiguration{
				Subnets:        h.Config.Subnets,
				SecurityGroups: h.Config.SecurityGroups,
				AssignPublicIp: assign,
			},
		}
	}
	return input
}

// clientToken makes retries of the same invocation idempotent.
func (h *Handler) clientToken(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	if h.NewToken != nil {
		return h.NewToken()
	}
	return uuid.NewString()
}
