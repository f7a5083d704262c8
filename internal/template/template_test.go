package template

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perftest "github.com/lex00/perftest-infra-go"
	"github.com/lex00/perftest-infra-go/intrinsics"
	"github.com/lex00/perftest-infra-go/resources/iam"
	"github.com/lex00/perftest-infra-go/resources/kms"
	"github.com/lex00/perftest-infra-go/resources/logs"
)

func TestBuilder_Build_SimpleResource(t *testing.T) {
	builder := NewBuilder()
	require.NoError(t, builder.Add("LogGroup", logs.LogGroup{
		LogGroupName:    "/app/perftest-ecs-logs",
		RetentionInDays: 7,
	}, Options{}))

	tmpl, err := builder.Build()
	require.NoError(t, err)

	assert.Equal(t, "2010-09-09", tmpl.AWSTemplateFormatVersion)
	assert.Len(t, tmpl.Resources, 1)

	lg := tmpl.Resources["LogGroup"]
	assert.Equal(t, "AWS::Logs::LogGroup", lg.Type)
	assert.Equal(t, "/app/perftest-ecs-logs", lg.Properties["LogGroupName"])
	assert.Equal(t, float64(7), lg.Properties["RetentionInDays"])
	assert.Empty(t, lg.DeletionPolicy)
}

func TestBuilder_Build_DeletionPolicy(t *testing.T) {
	builder := NewBuilder()
	require.NoError(t, builder.Add("LogGroup", logs.LogGroup{RetentionInDays: 7}, Options{
		DeletionPolicy:      perftest.DeletionPolicyRetain,
		UpdateReplacePolicy: perftest.DeletionPolicyRetain,
	}))

	tmpl, err := builder.Build()
	require.NoError(t, err)

	lg := tmpl.Resources["LogGroup"]
	assert.Equal(t, perftest.DeletionPolicyRetain, lg.DeletionPolicy)
	assert.Equal(t, perftest.DeletionPolicyRetain, lg.UpdateReplacePolicy)
}

func TestBuilder_Resources_DependencyOrder(t *testing.T) {
	builder := NewBuilder()
	// Registered consumer-first to prove ordering comes from references.
	require.NoError(t, builder.Add("LogGroup", logs.LogGroup{
		KmsKeyId: perftest.AttrRef{Resource: "Key", Attribute: "Arn"},
	}, Options{}))
	require.NoError(t, builder.Add("Role", iam.Role{
		RoleName: intrinsics.Ref{LogicalName: "LogGroup"},
	}, Options{}))
	require.NoError(t, builder.Add("Key", kms.Key{Enabled: true}, Options{}))

	resources, err := builder.Resources()
	require.NoError(t, err)
	require.Len(t, resources, 3)

	assert.Equal(t, "Key", resources[0].Name)
	assert.Equal(t, "LogGroup", resources[1].Name)
	assert.Equal(t, "Role", resources[2].Name)

	assert.Equal(t, []string{"Key"}, resources[1].Dependencies)
	assert.Equal(t, []string{"Key"}, resources[1].AttrDependencies)
	assert.Equal(t, []string{"LogGroup"}, resources[2].Dependencies)
	assert.Empty(t, resources[2].AttrDependencies)
}

func TestBuilder_Build_ExplicitDependsOn(t *testing.T) {
	builder := NewBuilder()
	require.NoError(t, builder.Add("Key", kms.Key{Enabled: true}, Options{}))
	require.NoError(t, builder.Add("LogGroup", logs.LogGroup{RetentionInDays: 7}, Options{
		DependsOn: []string{"Key"},
	}))

	tmpl, err := builder.Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"Key"}, tmpl.Resources["LogGroup"].DependsOn)

	resources, err := builder.Resources()
	require.NoError(t, err)
	assert.Equal(t, "Key", resources[0].Name)
}

func TestBuilder_Build_CircularDependency(t *testing.T) {
	builder := NewBuilder()
	require.NoError(t, builder.Add("A", logs.LogGroup{KmsKeyId: intrinsics.Ref{LogicalName: "B"}}, Options{}))
	require.NoError(t, builder.Add("B", logs.LogGroup{KmsKeyId: intrinsics.Ref{LogicalName: "A"}}, Options{}))

	_, err := builder.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circular dependency")
}

func TestBuilder_Build_DanglingReference(t *testing.T) {
	builder := NewBuilder()
	require.NoError(t, builder.Add("LogGroup", logs.LogGroup{
		KmsKeyId: perftest.AttrRef{Resource: "MissingKey", Attribute: "Arn"},
	}, Options{}))

	_, err := builder.Build()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDanglingReference))
	assert.Contains(t, err.Error(), "LogGroup -> MissingKey")
}

func TestBuilder_Build_DanglingOutputReference(t *testing.T) {
	builder := NewBuilder()
	require.NoError(t, builder.Add("Key", kms.Key{Enabled: true}, Options{}))
	builder.AddOutput("Missing", perftest.Output{Value: intrinsics.Ref{LogicalName: "Nope"}})

	_, err := builder.Build()
	require.ErrorIs(t, err, ErrDanglingReference)
}

func TestBuilder_Build_PseudoParametersAreNotReferences(t *testing.T) {
	builder := NewBuilder()
	require.NoError(t, builder.Add("LogGroup", logs.LogGroup{
		LogGroupName: intrinsics.Sub{String: "/app/${AWS::StackName}"},
		KmsKeyId:     intrinsics.AWS_REGION,
	}, Options{}))

	_, err := builder.Build()
	require.NoError(t, err)
}

func TestBuilder_Add_Duplicate(t *testing.T) {
	builder := NewBuilder()
	require.NoError(t, builder.Add("Key", kms.Key{}, Options{}))

	err := builder.Add("Key", kms.Key{}, Options{})
	require.ErrorIs(t, err, ErrDuplicateResource)
	assert.Equal(t, 1, builder.Len())

	assert.Error(t, builder.Add("", kms.Key{}, Options{}))
	assert.Error(t, builder.Add("Nil", nil, Options{}))
}

func TestBuilder_Build_Outputs(t *testing.T) {
	builder := NewBuilder()
	builder.SetDescription("perf test stack")
	require.NoError(t, builder.Add("LogGroup", logs.LogGroup{RetentionInDays: 7}, Options{}))
	builder.AddOutput("LogGroupName", perftest.Output{
		Description: "Log group name",
		Value:       intrinsics.Ref{LogicalName: "LogGroup"},
	})

	tmpl, err := builder.Build()
	require.NoError(t, err)

	assert.Equal(t, "perf test stack", tmpl.Description)
	assert.Equal(t, map[string]any{"Ref": "LogGroup"}, tmpl.Outputs["LogGroupName"].Value)
}

func TestBuilder_Build_Empty(t *testing.T) {
	tmpl, err := NewBuilder().Build()
	require.NoError(t, err)
	assert.Empty(t, tmpl.Resources)
	assert.Nil(t, tmpl.Outputs)
}

func TestToJSON(t *testing.T) {
	builder := NewBuilder()
	require.NoError(t, builder.Add("LogGroup", logs.LogGroup{RetentionInDays: 7}, Options{
		DeletionPolicy: perftest.DeletionPolicyRetain,
	}))
	tmpl, err := builder.Build()
	require.NoError(t, err)

	data, err := ToJSON(tmpl)
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, "2010-09-09", parsed["AWSTemplateFormatVersion"])

	resources := parsed["Resources"].(map[string]any)
	lg := resources["LogGroup"].(map[string]any)
	assert.Equal(t, "Retain", lg["DeletionPolicy"])
}

func TestToYAML_Parse(t *testing.T) {
	builder := NewBuilder()
	require.NoError(t, builder.Add("Key", kms.Key{Enabled: true}, Options{}))
	require.NoError(t, builder.Add("LogGroup", logs.LogGroup{
		KmsKeyId: perftest.AttrRef{Resource: "Key", Attribute: "Arn"},
	}, Options{DeletionPolicy: perftest.DeletionPolicyRetain}))
	tmpl, err := builder.Build()
	require.NoError(t, err)

	data, err := ToYAML(tmpl)
	require.NoError(t, err)
	assert.Contains(t, string(data), "AWSTemplateFormatVersion: \"2010-09-09\"")

	parsed, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, perftest.DeletionPolicyRetain, parsed.Resources["LogGroup"].DeletionPolicy)
	assert.Equal(t,
		map[string]any{"Fn::GetAtt": []any{"Key", "Arn"}},
		parsed.Resources["LogGroup"].Properties["KmsKeyId"])
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("{not: [valid"))
	assert.Error(t, err)
}
