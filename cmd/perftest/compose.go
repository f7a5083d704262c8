package main

import (
	"context"
	"log/slog"

	perftest "github.com/lex00/perftest-infra-go"
	"github.com/lex00/perftest-infra-go/internal/config"
	"github.com/lex00/perftest-infra-go/internal/environment"
	"github.com/lex00/perftest-infra-go/internal/perfstack"
	"github.com/lex00/perftest-infra-go/internal/stack"
)

// composed is a loaded config and the stack it declares. Stack is nil when
// the feature flag is off.
type composed struct {
	Config *config.Config
	Env    perftest.Environment
	Stack  *stack.Stack
}

// compose loads the config file and declares the stack. Offline commands pass
// environment.Offline so no AWS call is made.
func compose(ctx context.Context, path string, resolver *environment.Resolver) (*composed, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return declare(ctx, cfg, resolver)
}

// declare resolves the environment and composes the stack for cfg.
func declare(ctx context.Context, cfg *config.Config, resolver *environment.Resolver) (*composed, error) {
	env, err := resolver.Resolve(ctx, cfg.Environment())
	if err != nil {
		return nil, err
	}

	s, err := perfstack.Compose(cfg, perfstack.Options{Env: env})
	if err != nil {
		return nil, err
	}
	if s == nil {
		slog.Info("performance testing is disabled, no stack declared",
			"flag", "featureFlags.enablePerformanceTesting")
	} else {
		slog.Debug("stack composed", "stack", s.Name(), "env", env.String(), "resources", s.Len())
	}

	return &composed{Config: cfg, Env: env, Stack: s}, nil
}

// synth composes the stack offline and synthesizes its template. The
// template is nil when the feature flag is off.
func synth(ctx context.Context, path string) (*composed, *perftest.Template, error) {
	c, err := compose(ctx, path, environment.Offline())
	if err != nil {
		return nil, nil, err
	}
	if c.Stack == nil {
		return c, nil, nil
	}
	tmpl, err := c.Stack.Synth()
	if err != nil {
		return nil, nil, err
	}
	return c, tmpl, nil
}
