// Package main is the entrypoint for the performance test trigger Lambda.
//
// The schedule invokes the function every five minutes. Each invocation
// starts exactly one Fargate task from the performance test task definition.
//
// Build for the provided.al2023 runtime:
//
//	GOOS=linux GOARCH=arm64 go build -tags lambda.norpc -o bootstrap ./cmd/perftest-trigger
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ecs"

	"github.com/lex00/perftest-infra-go/internal/trigger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	logger.Info("Trigger Lambda initializing (cold start)")

	cfg, err := trigger.LoadConfig()
	if err != nil {
		logger.Error("Failed to load trigger config", "error", err)
		os.Exit(1)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		logger.Error("Failed to load AWS config", "error", err)
		os.Exit(1)
	}

	handler := trigger.NewHandler(ecs.NewFromConfig(awsCfg), cfg, logger)

	logger.Info("Trigger Lambda initialized",
		"cluster_arn", cfg.ClusterARN,
		"task_definition_arn", cfg.TaskDefinitionARN,
		"subnets", len(cfg.Subnets),
	)

	// Local mode: read one event from stdin instead of starting the Lambda runtime.
	// Usage: echo '{}' | APP_ENV=local go run ./cmd/perftest-trigger
	if os.Getenv("APP_ENV") == "local" {
		logger.Info("APP_ENV=local: reading event from stdin")
		if err := runLocal(context.Background(), handler, os.Stdin); err != nil {
			logger.Error("Handler execution failed", "error", err)
			os.Exit(1)
		}
		logger.Info("Handler execution completed successfully")
		return
	}

	lambda.Start(handler.Handle)
}

// eventHandler is the subset of *trigger.Handler used by runLocal.
type eventHandler interface {
	Handle(ctx context.Context, event json.RawMessage) error
}

// runLocal invokes h once with the JSON event read from r. Empty input is
// treated as an empty object, the payload the schedule sends.
func runLocal(ctx context.Context, h eventHandler, r io.Reader) error {
	payload, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	if !json.Valid(payload) {
		return errors.New("stdin is not valid JSON")
	}
	return h.Handle(ctx, json.RawMessage(payload))
}
