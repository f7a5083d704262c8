// Package environment resolves the account and region a stack deploys to.
package environment

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	perftest "github.com/lex00/perftest-infra-go"
)

// ErrAccountMismatch is returned when the credentials in use belong to a
// different account than the one the stack is pinned to.
var ErrAccountMismatch = errors.New("account mismatch")

// IdentityAPI is the subset of the STS client used here.
type IdentityAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Resolver fills in the account and region of an environment.
type Resolver struct {
	// Identity looks up the caller's account. May be nil for offline use.
	Identity IdentityAPI
	// Region is the region from the AWS SDK default chain.
	Region string

	lookupEnv func(string) (string, bool)
}

// NewResolver creates a Resolver backed by an AWS SDK configuration.
func NewResolver(cfg aws.Config) *Resolver {
	return &Resolver{
		Identity:  sts.NewFromConfig(cfg),
		Region:    cfg.Region,
		lookupEnv: os.LookupEnv,
	}
}

// Offline returns a Resolver that never calls AWS.
func Offline() *Resolver {
	return &Resolver{lookupEnv: os.LookupEnv}
}

// Resolve fills the empty fields of explicit, in order, from
// CDK_DEFAULT_ACCOUNT / CDK_DEFAULT_REGION, the SDK region and the caller
// identity. Fields that cannot be resolved stay empty.
func (r *Resolver) Resolve(ctx context.Context, explicit perftest.Environment) (perftest.Environment, error) {
	env := explicit

	if env.Account == "" {
		env.Account = r.getenv("CDK_DEFAULT_ACCOUNT")
	}
	if env.Region == "" {
		env.Region = r.getenv("CDK_DEFAULT_REGION")
	}
	if env.Region == "" {
		env.Region = r.Region
	}

	if env.Account == "" && r.Identity != nil {
		account, err := r.callerAccount(ctx)
		if err != nil {
			return env, err
		}
		env.Account = account
	}

	return env, nil
}

// CheckAccount verifies that the caller belongs to the environment's account.
// An environment without a pinned account always passes.
func (r *Resolver) CheckAccount(ctx context.Context, env perftest.Environment) error {
	if env.Account == "" {
		return nil
	}
	if r.Identity == nil {
		return errors.New("no identity client configured")
	}

	account, err := r.callerAccount(ctx)
	if err != nil {
		return err
	}
	if account != env.Account {
		return fmt.Errorf("%w: credentials are for %s, stack is pinned to %s", ErrAccountMismatch, account, env.Account)
	}
	return nil
}

func (r *Resolver) callerAccount(ctx context.Context) (string, error) {
	out, err := r.Identity.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("get caller identity: %w", err)
	}
	return aws.ToString(out.Account), nil
}

func (r *Resolver) getenv(key string) string {
	lookup := r.lookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	v, _ := lookup(key)
	return v
}
