package deploy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perftest "github.com/lex00/perftest-infra-go"
)

const stackName = "PerformanceTestStack"

var notFound = &smithy.GenericAPIError{
	Code:    "ValidationError",
	Message: "Stack with id PerformanceTestStack does not exist",
}

type mockCFN struct {
	stacks   []cftypes.Stack // successive DescribeStacks results; the last one repeats
	calls    int
	stackErr error // returned by the first DescribeStacks call

	changeSet      cloudformation.DescribeChangeSetOutput
	createInput    *cloudformation.CreateChangeSetInput
	executed       bool
	deletedSet     bool
	deletedStack   bool
	templateBody   string
	getTemplateErr error
}

func (m *mockCFN) CreateChangeSet(_ context.Context, in *cloudformation.CreateChangeSetInput, _ ...func(*cloudformation.Options)) (*cloudformation.CreateChangeSetOutput, error) {
	m.createInput = in
	return &cloudformation.CreateChangeSetOutput{Id: aws.String("arn:aws:cloudformation:eu-west-1:123456789012:changeSet/cs"), StackId: aws.String("stack-id")}, nil
}

func (m *mockCFN) DescribeChangeSet(_ context.Context, _ *cloudformation.DescribeChangeSetInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeChangeSetOutput, error) {
	out := m.changeSet
	return &out, nil
}

func (m *mockCFN) ExecuteChangeSet(_ context.Context, _ *cloudformation.ExecuteChangeSetInput, _ ...func(*cloudformation.Options)) (*cloudformation.ExecuteChangeSetOutput, error) {
	m.executed = true
	return &cloudformation.ExecuteChangeSetOutput{}, nil
}

func (m *mockCFN) DeleteChangeSet(_ context.Context, _ *cloudformation.DeleteChangeSetInput, _ ...func(*cloudformation.Options)) (*cloudformation.DeleteChangeSetOutput, error) {
	m.deletedSet = true
	return &cloudformation.DeleteChangeSetOutput{}, nil
}

func (m *mockCFN) DescribeStacks(_ context.Context, _ *cloudformation.DescribeStacksInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
	if m.stackErr != nil && m.calls == 0 {
		m.calls++
		return nil, m.stackErr
	}
	i := m.calls
	if m.stackErr != nil {
		i--
	}
	if i >= len(m.stacks) {
		i = len(m.stacks) - 1
	}
	m.calls++
	return &cloudformation.DescribeStacksOutput{Stacks: []cftypes.Stack{m.stacks[i]}}, nil
}

func (m *mockCFN) DeleteStack(_ context.Context, _ *cloudformation.DeleteStackInput, _ ...func(*cloudformation.Options)) (*cloudformation.DeleteStackOutput, error) {
	m.deletedStack = true
	return &cloudformation.DeleteStackOutput{}, nil
}

func (m *mockCFN) GetTemplate(_ context.Context, _ *cloudformation.GetTemplateInput, _ ...func(*cloudformation.Options)) (*cloudformation.GetTemplateOutput, error) {
	if m.getTemplateErr != nil {
		return nil, m.getTemplateErr
	}
	return &cloudformation.GetTemplateOutput{TemplateBody: aws.String(m.templateBody)}, nil
}

func newTestDeployer(m *mockCFN) *Deployer {
	d := New(m, slog.New(slog.NewTextHandler(io.Discard, nil)))
	d.MinDelay = time.Millisecond
	d.MaxDelay = time.Millisecond
	d.Timeout = time.Second
	d.Now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return d
}

func testTemplate() *perftest.Template {
	return &perftest.Template{
		AWSTemplateFormatVersion: "2010-09-09",
		Resources: map[string]perftest.ResourceDef{
			"PerformanceTestLogGroup": {Type: "AWS::Logs::LogGroup", Properties: map[string]any{"RetentionInDays": 7}},
		},
	}
}

func stack(status cftypes.StackStatus) cftypes.Stack {
	return cftypes.Stack{
		StackName:   aws.String(stackName),
		StackId:     aws.String("stack-id"),
		StackStatus: status,
		Outputs: []cftypes.Output{
			{OutputKey: aws.String("LogGroupName"), OutputValue: aws.String("/app/perftest-ecs-logs")},
		},
	}
}

func TestDeploy_Create(t *testing.T) {
	m := &mockCFN{
		stackErr:  notFound,
		stacks:    []cftypes.Stack{stack(cftypes.StackStatusCreateComplete)},
		changeSet: cloudformation.DescribeChangeSetOutput{Status: cftypes.ChangeSetStatusCreateComplete},
	}

	res, err := newTestDeployer(m).Deploy(context.Background(), Input{
		StackName: stackName,
		Template:  testTemplate(),
		Tags:      map[string]string{"project": "perftest", "env": "dev"},
	})
	require.NoError(t, err)

	assert.True(t, res.Created)
	assert.True(t, m.executed)
	assert.Equal(t, "stack-id", res.StackID)
	assert.Equal(t, "/app/perftest-ecs-logs", res.Outputs["LogGroupName"])

	require.NotNil(t, m.createInput)
	assert.Equal(t, cftypes.ChangeSetTypeCreate, m.createInput.ChangeSetType)
	assert.Equal(t, "perftest-20260102-030405", aws.ToString(m.createInput.ChangeSetName))
	assert.Equal(t, Capabilities, m.createInput.Capabilities)
	assert.Contains(t, aws.ToString(m.createInput.TemplateBody), "PerformanceTestLogGroup")
	require.Len(t, m.createInput.Tags, 2)
	assert.Equal(t, "env", aws.ToString(m.createInput.Tags[0].Key))
}

func TestDeploy_Update(t *testing.T) {
	m := &mockCFN{
		stacks:    []cftypes.Stack{stack(cftypes.StackStatusUpdateComplete)},
		changeSet: cloudformation.DescribeChangeSetOutput{Status: cftypes.ChangeSetStatusCreateComplete},
	}

	res, err := newTestDeployer(m).Deploy(context.Background(), Input{StackName: stackName, Template: testTemplate()})
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, cftypes.ChangeSetTypeUpdate, m.createInput.ChangeSetType)
}

func TestDeploy_NoChanges(t *testing.T) {
	m := &mockCFN{
		stacks: []cftypes.Stack{stack(cftypes.StackStatusUpdateComplete)},
		changeSet: cloudformation.DescribeChangeSetOutput{
			Status:       cftypes.ChangeSetStatusFailed,
			StatusReason: aws.String("The submitted information didn't contain changes. Submit different information to create a change set."),
		},
	}

	_, err := newTestDeployer(m).Deploy(context.Background(), Input{StackName: stackName, Template: testTemplate()})
	require.ErrorIs(t, err, ErrNoChanges)
	assert.True(t, m.deletedSet)
	assert.False(t, m.executed)
}

func TestDeploy_ChangeSetFailed(t *testing.T) {
	m := &mockCFN{
		stacks: []cftypes.Stack{stack(cftypes.StackStatusUpdateComplete)},
		changeSet: cloudformation.DescribeChangeSetOutput{
			Status:       cftypes.ChangeSetStatusFailed,
			StatusReason: aws.String("Template format error"),
		},
	}

	_, err := newTestDeployer(m).Deploy(context.Background(), Input{StackName: stackName, Template: testTemplate()})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoChanges)
	assert.Contains(t, err.Error(), "Template format error")
	assert.False(t, m.executed)
}

func TestDeploy_RejectsRollbackComplete(t *testing.T) {
	m := &mockCFN{stacks: []cftypes.Stack{stack(cftypes.StackStatusRollbackComplete)}}

	_, err := newTestDeployer(m).Deploy(context.Background(), Input{StackName: stackName, Template: testTemplate()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ROLLBACK_COMPLETE")
	assert.Nil(t, m.createInput)
}

func TestDeploy_RequiresInput(t *testing.T) {
	d := newTestDeployer(&mockCFN{})
	_, err := d.Deploy(context.Background(), Input{Template: testTemplate()})
	require.Error(t, err)
	_, err = d.Deploy(context.Background(), Input{StackName: stackName})
	require.Error(t, err)
}

func TestDestroy(t *testing.T) {
	m := &mockCFN{stacks: []cftypes.Stack{
		stack(cftypes.StackStatusCreateComplete),
		stack(cftypes.StackStatusDeleteComplete),
	}}

	require.NoError(t, newTestDeployer(m).Destroy(context.Background(), stackName))
	assert.True(t, m.deletedStack)
}

func TestDestroy_NotFound(t *testing.T) {
	m := &mockCFN{stackErr: notFound, stacks: []cftypes.Stack{stack(cftypes.StackStatusDeleteComplete)}}

	err := newTestDeployer(m).Destroy(context.Background(), stackName)
	require.ErrorIs(t, err, ErrStackNotFound)
	assert.False(t, m.deletedStack)
}

func TestDeployedTemplate(t *testing.T) {
	m := &mockCFN{templateBody: `{"Resources":{"PerformanceTestLogGroup":{"Type":"AWS::Logs::LogGroup","DeletionPolicy":"Retain"}}}`}

	tmpl, err := newTestDeployer(m).DeployedTemplate(context.Background(), stackName)
	require.NoError(t, err)
	assert.Equal(t, perftest.DeletionPolicyRetain, tmpl.Resources["PerformanceTestLogGroup"].DeletionPolicy)

	m.getTemplateErr = notFound
	_, err = newTestDeployer(m).DeployedTemplate(context.Background(), stackName)
	require.ErrorIs(t, err, ErrStackNotFound)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(notFound))
	assert.True(t, isNotFound(errors.Join(errors.New("wrapped"), notFound)))
	assert.False(t, isNotFound(&smithy.GenericAPIError{Code: "ValidationError", Message: "Template format error"}))
	assert.False(t, isNotFound(errors.New("does not exist")))
}
