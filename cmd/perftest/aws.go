package main

import (
	"context"
	"fmt"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"

	"github.com/lex00/perftest-infra-go/internal/deploy"
	"github.com/lex00/perftest-infra-go/internal/environment"
)

type awsClients struct {
	deployer *deploy.Deployer
	resolver *environment.Resolver
}

// newAWSClients loads the SDK default chain. A configured region overrides
// the chain's region.
func newAWSClients(ctx context.Context, region string) (*awsClients, error) {
	var optFns []func(*awsconfig.LoadOptions) error
	if region != "" {
		optFns = append(optFns, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &awsClients{
		deployer: deploy.New(cloudformation.NewFromConfig(cfg), slog.Default()),
		resolver: environment.NewResolver(cfg),
	}, nil
}
