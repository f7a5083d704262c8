package stack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perftest "github.com/lex00/perftest-infra-go"
	"github.com/lex00/perftest-infra-go/intrinsics"
	"github.com/lex00/perftest-infra-go/resources/kms"
	"github.com/lex00/perftest-infra-go/resources/logs"
)

var testEnv = perftest.Environment{Account: "123456789012", Region: "eu-west-1"}

func TestStack_AddAndSynth(t *testing.T) {
	s := New("PerformanceTestStack", testEnv)

	key := s.Add("Key", kms.Key{Enabled: true})
	lg := s.Add("LogGroup", logs.LogGroup{
		LogGroupName: "/app/perftest-ecs-logs",
		KmsKeyId:     key.Arn(),
	}, Retain())
	s.AddOutput("LogGroupName", perftest.Output{Value: lg.Ref()})

	assert.Equal(t, "Key", key.LogicalID())
	assert.Equal(t, "AWS::KMS::Key", key.Type())
	assert.Equal(t, 2, s.Len())

	tmpl, err := s.Synth()
	require.NoError(t, err)

	assert.Equal(t, "PerformanceTestStack", tmpl.Description)
	def := tmpl.Resources["LogGroup"]
	assert.Equal(t, perftest.DeletionPolicyRetain, def.DeletionPolicy)
	assert.Equal(t, perftest.DeletionPolicyRetain, def.UpdateReplacePolicy)
	assert.Equal(t, map[string]any{"Fn::GetAtt": []any{"Key", "Arn"}}, def.Properties["KmsKeyId"])
	assert.Equal(t, map[string]any{"Ref": "LogGroup"}, tmpl.Outputs["LogGroupName"].Value)
}

func TestStack_Resources(t *testing.T) {
	s := New("PerformanceTestStack", testEnv)
	key := s.Add("Key", kms.Key{Enabled: true})
	s.Add("LogGroup", logs.LogGroup{KmsKeyId: key.Arn()}, Retain())

	resources, err := s.Resources()
	require.NoError(t, err)
	require.Len(t, resources, 2)

	assert.Equal(t, "Key", resources[0].Name)
	assert.Empty(t, resources[0].DeletionPolicy)
	assert.Equal(t, "LogGroup", resources[1].Name)
	assert.Equal(t, perftest.DeletionPolicyRetain, resources[1].DeletionPolicy)
	assert.Equal(t, []string{"Key"}, resources[1].Dependencies)
}

func TestStack_DependsOn(t *testing.T) {
	s := New("PerformanceTestStack", testEnv)
	key := s.Add("Key", kms.Key{Enabled: true})
	s.Add("LogGroup", logs.LogGroup{RetentionInDays: 7}, DependsOn(key))

	tmpl, err := s.Synth()
	require.NoError(t, err)
	assert.Equal(t, []string{"Key"}, tmpl.Resources["LogGroup"].DependsOn)
}

func TestStack_DuplicateIsReported(t *testing.T) {
	s := New("PerformanceTestStack", testEnv)
	s.Add("Key", kms.Key{})
	s.Add("Key", kms.Key{})

	require.Error(t, s.Err())
	_, err := s.Synth()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate logical ID")
	_, err = s.Resources()
	require.Error(t, err)
}

func TestStack_DanglingReference(t *testing.T) {
	s := New("PerformanceTestStack", testEnv)
	s.Add("LogGroup", logs.LogGroup{
		KmsKeyId: Handle{logicalID: "Missing"}.Arn(),
	})

	_, err := s.Synth()
	require.ErrorIs(t, err, ErrDanglingReference)
}

func TestStack_Region(t *testing.T) {
	assert.Equal(t, "eu-west-1", New("s", testEnv).Region())
	assert.Equal(t, intrinsics.AWS_REGION, New("s", perftest.Environment{}).Region())
}

func TestHandle_Intrinsics(t *testing.T) {
	h := Handle{logicalID: "KickOffPerfTestFn", resourceType: "AWS::Lambda::Function"}
	assert.Equal(t, intrinsics.Ref{LogicalName: "KickOffPerfTestFn"}, h.Ref())
	assert.Equal(t, perftest.AttrRef{Resource: "KickOffPerfTestFn", Attribute: "Arn"}, h.Arn())
	assert.Equal(t, perftest.AttrRef{Resource: "KickOffPerfTestFn", Attribute: "Name"}, h.GetAtt("Name"))
}
