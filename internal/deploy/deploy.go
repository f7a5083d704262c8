// Package deploy applies a synthesized template through CloudFormation change
// sets and removes the stack again.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/smithy-go"

	perftest "github.com/lex00/perftest-infra-go"
	"github.com/lex00/perftest-infra-go/internal/template"
)

var (
	// ErrNoChanges is returned by Deploy when the deployed stack already
	// matches the template.
	ErrNoChanges = errors.New("no changes to deploy")

	// ErrStackNotFound is returned when the named stack does not exist.
	ErrStackNotFound = errors.New("stack does not exist")
)

const (
	// DefaultTimeout bounds each wait on CloudFormation.
	DefaultTimeout = 30 * time.Minute

	defaultMinDelay = 5 * time.Second
	defaultMaxDelay = 30 * time.Second

	changeSetPrefix = "perftest-"
)

// Capabilities acknowledged on every change set. The stack creates IAM roles.
var Capabilities = []cftypes.Capability{cftypes.CapabilityCapabilityIam}

// CloudFormationAPI is the subset of the CloudFormation client used here.
type CloudFormationAPI interface {
	CreateChangeSet(ctx context.Context, params *cloudformation.CreateChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.CreateChangeSetOutput, error)
	DescribeChangeSet(ctx context.Context, params *cloudformation.DescribeChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeChangeSetOutput, error)
	ExecuteChangeSet(ctx context.Context, params *cloudformation.ExecuteChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.ExecuteChangeSetOutput, error)
	DeleteChangeSet(ctx context.Context, params *cloudformation.DeleteChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DeleteChangeSetOutput, error)
	DescribeStacks(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error)
	DeleteStack(ctx context.Context, params *cloudformation.DeleteStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DeleteStackOutput, error)
	GetTemplate(ctx context.Context, params *cloudformation.GetTemplateInput, optFns ...func(*cloudformation.Options)) (*cloudformation.GetTemplateOutput, error)
}

// Deployer drives CloudFormation for one stack.
type Deployer struct {
	API    CloudFormationAPI
	Logger *slog.Logger

	// Timeout bounds each wait. Zero means DefaultTimeout.
	Timeout time.Duration
	// MinDelay and MaxDelay bound the polling interval of the waiters.
	MinDelay time.Duration
	MaxDelay time.Duration

	Now func() time.Time
}

// New creates a Deployer with default polling.
func New(client CloudFormationAPI, logger *slog.Logger) *Deployer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deployer{
		API:      client,
		Logger:   logger,
		Timeout:  DefaultTimeout,
		MinDelay: defaultMinDelay,
		MaxDelay: defaultMaxDelay,
		Now:      time.Now,
	}
}

// Input describes one deployment.
type Input struct {
	StackName string
	Template  *perftest.Template
	Tags      map[string]string
}

// Result describes a completed deployment.
type Result struct {
	StackID     string
	ChangeSetID string
	Created     bool
	Outputs     map[string]string
}

// Deploy creates or updates the stack through a change set and waits for it
// to settle. It returns ErrNoChanges when the change set is empty.
func (d *Deployer) Deploy(ctx context.Context, in Input) (*Result, error) {
	if in.StackName == "" {
		return nil, errors.New("stack name is required")
	}
	if in.Template == nil {
		return nil, errors.New("template is required")
	}

	body, err := template.ToJSON(in.Template)
	if err != nil {
		return nil, fmt.Errorf("serializing template: %w", err)
	}

	stack, err := d.describe(ctx, in.StackName)
	create := false
	switch {
	case errors.Is(err, ErrStackNotFound):
		create = true
	case err != nil:
		return nil, err
	case stack.StackStatus == cftypes.StackStatusReviewInProgress:
		// A previous create change set was never executed.
		create = true
	case stack.StackStatus == cftypes.StackStatusRollbackComplete:
		return nil, fmt.Errorf("stack %s is in %s and must be destroyed before it can be deployed again", in.StackName, stack.StackStatus)
	case strings.HasSuffix(string(stack.StackStatus), "_IN_PROGRESS"):
		return nil, fmt.Errorf("stack %s is busy (%s)", in.StackName, stack.StackStatus)
	}

	changeSetType := cftypes.ChangeSetTypeUpdate
	if create {
		changeSetType = cftypes.ChangeSetTypeCreate
	}
	changeSetName := changeSetPrefix + d.now().UTC().Format("20060102-150405")

	d.Logger.Info("creating change set",
		"stack", in.StackName,
		"change_set", changeSetName,
		"type", string(changeSetType),
	)

	created, err := d.API.CreateChangeSet(ctx, &cloudformation.CreateChangeSetInput{
		StackName:     aws.String(in.StackName),
		ChangeSetName: aws.String(changeSetName),
		ChangeSetType: changeSetType,
		TemplateBody:  aws.String(string(body)),
		Capabilities:  Capabilities,
		Tags:          toTags(in.Tags),
	})
	if err != nil {
		return nil, fmt.Errorf("creating change set: %w", err)
	}
	changeSetID := aws.ToString(created.Id)

	waiter := cloudformation.NewChangeSetCreateCompleteWaiter(d.API, func(o *cloudformation.ChangeSetCreateCompleteWaiterOptions) {
		o.MinDelay, o.MaxDelay = d.delays()
	})
	describeIn := &cloudformation.DescribeChangeSetInput{
		StackName:     aws.String(in.StackName),
		ChangeSetName: aws.String(changeSetID),
	}
	if err := waiter.Wait(ctx, describeIn, d.timeout()); err != nil {
		return nil, d.changeSetFailure(ctx, in.StackName, changeSetID, err)
	}

	if _, err := d.API.ExecuteChangeSet(ctx, &cloudformation.ExecuteChangeSetInput{
		StackName:     aws.String(in.StackName),
		ChangeSetName: aws.String(changeSetID),
	}); err != nil {
		return nil, fmt.Errorf("executing change set: %w", err)
	}

	d.Logger.Info("executing change set", "stack", in.StackName, "change_set", changeSetName)

	describeStacks := &cloudformation.DescribeStacksInput{StackName: aws.String(in.StackName)}
	if create {
		w := cloudformation.NewStackCreateCompleteWaiter(d.API, func(o *cloudformation.StackCreateCompleteWaiterOptions) {
			o.MinDelay, o.MaxDelay = d.delays()
		})
		err = w.Wait(ctx, describeStacks, d.timeout())
	} else {
		w := cloudformation.NewStackUpdateCompleteWaiter(d.API, func(o *cloudformation.StackUpdateCompleteWaiterOptions) {
			o.MinDelay, o.MaxDelay = d.delays()
		})
		err = w.Wait(ctx, describeStacks, d.timeout())
	}
	if err != nil {
		return nil, fmt.Errorf("waiting for stack %s: %w", in.StackName, err)
	}

	final, err := d.describe(ctx, in.StackName)
	if err != nil {
		return nil, err
	}

	return &Result{
		StackID:     aws.ToString(final.StackId),
		ChangeSetID: changeSetID,
		Created:     create,
		Outputs:     outputs(final.Outputs),
	}, nil
}

// changeSetFailure explains why a change set did not reach CREATE_COMPLETE.
// An empty change set is deleted and reported as ErrNoChanges.
func (d *Deployer) changeSetFailure(ctx context.Context, stackName, changeSetID string, waitErr error) error {
	out, err := d.API.DescribeChangeSet(ctx, &cloudformation.DescribeChangeSetInput{
		StackName:     aws.String(stackName),
		ChangeSetName: aws.String(changeSetID),
	})
	if err != nil {
		return fmt.Errorf("waiting for change set: %w", waitErr)
	}

	reason := aws.ToString(out.StatusReason)
	if out.Status == cftypes.ChangeSetStatusFailed && isNoChangeReason(reason) {
		if _, err := d.API.DeleteChangeSet(ctx, &cloudformation.DeleteChangeSetInput{
			StackName:     aws.String(stackName),
			ChangeSetName: aws.String(changeSetID),
		}); err != nil {
			d.Logger.Warn("failed to delete empty change set", "change_set", changeSetID, "error", err)
		}
		return ErrNoChanges
	}
	if reason != "" {
		return fmt.Errorf("change set %s: %s", out.Status, reason)
	}
	return fmt.Errorf("waiting for change set: %w", waitErr)
}

func isNoChangeReason(reason string) bool {
	return strings.Contains(reason, "didn't contain changes") ||
		strings.Contains(reason, "No updates are to be performed")
}

// Destroy deletes the stack and waits until it is gone. Resources with a
// Retain deletion policy stay in the account.
func (d *Deployer) Destroy(ctx context.Context, stackName string) error {
	stack, err := d.describe(ctx, stackName)
	if err != nil {
		return err
	}

	d.Logger.Info("deleting stack", "stack", stackName, "status", string(stack.StackStatus))

	if _, err := d.API.DeleteStack(ctx, &cloudformation.DeleteStackInput{
		StackName: aws.String(stackName),
	}); err != nil {
		return fmt.Errorf("deleting stack: %w", err)
	}

	w := cloudformation.NewStackDeleteCompleteWaiter(d.API, func(o *cloudformation.StackDeleteCompleteWaiterOptions) {
		o.MinDelay, o.MaxDelay = d.delays()
	})
	if err := w.Wait(ctx, &cloudformation.DescribeStacksInput{
		StackName: stack.StackId,
	}, d.timeout()); err != nil {
		return fmt.Errorf("waiting for stack deletion: %w", err)
	}
	return nil
}

// DeployedTemplate returns the template of the currently deployed stack.
func (d *Deployer) DeployedTemplate(ctx context.Context, stackName string) (*perftest.Template, error) {
	out, err := d.API.GetTemplate(ctx, &cloudformation.GetTemplateInput{
		StackName:     aws.String(stackName),
		TemplateStage: cftypes.TemplateStageOriginal,
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrStackNotFound, stackName)
		}
		return nil, fmt.Errorf("getting template: %w", err)
	}
	tmpl, err := template.Parse([]byte(aws.ToString(out.TemplateBody)))
	if err != nil {
		return nil, fmt.Errorf("parsing deployed template: %w", err)
	}
	return tmpl, nil
}

func (d *Deployer) describe(ctx context.Context, stackName string) (*cftypes.Stack, error) {
	out, err := d.API.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(stackName),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrStackNotFound, stackName)
		}
		return nil, fmt.Errorf("describing stack: %w", err)
	}
	if len(out.Stacks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrStackNotFound, stackName)
	}
	return &out.Stacks[0], nil
}

// isNotFound reports whether err is CloudFormation's ValidationError for a
// missing stack.
func isNotFound(err error) bool {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		return ae.ErrorCode() == "ValidationError" && strings.Contains(ae.ErrorMessage(), "does not exist")
	}
	return false
}

func (d *Deployer) timeout() time.Duration {
	if d.Timeout > 0 {
		return d.Timeout
	}
	return DefaultTimeout
}

func (d *Deployer) delays() (time.Duration, time.Duration) {
	lo, hi := d.MinDelay, d.MaxDelay
	if lo <= 0 {
		lo = defaultMinDelay
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

func (d *Deployer) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func toTags(tags map[string]string) []cftypes.Tag {
	if len(tags) == 0 {
		return nil
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]cftypes.Tag, 0, len(keys))
	for _, k := range keys {
		out = append(out, cftypes.Tag{Key: aws.String(k), Value: aws.String(tags[k])})
	}
	return out
}

func outputs(in []cftypes.Output) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for _, o := range in {
		out[aws.ToString(o.OutputKey)] = aws.ToString(o.OutputValue)
	}
	return out
}
