package perftest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestAttrRef_MarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		ref      AttrRef
		expected string
	}{
		{
			name:     "key arn",
			ref:      AttrRef{Resource: "PerformanceTestLogKmsKey", Attribute: "Arn"},
			expected: `{"Fn::GetAtt":["PerformanceTestLogKmsKey","Arn"]}`,
		},
		{
			name:     "function arn",
			ref:      AttrRef{Resource: "KickOffPerfTestFn", Attribute: "Arn"},
			expected: `{"Fn::GetAtt":["KickOffPerfTestFn","Arn"]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.ref)
			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, string(data))
		})
	}
}

func TestAttrRef_IsZero(t *testing.T) {
	assert.True(t, AttrRef{}.IsZero())
	assert.False(t, AttrRef{Resource: "MyRole"}.IsZero())
	assert.False(t, AttrRef{Attribute: "Arn"}.IsZero())
}

func TestResourceDef_DeletionPolicy(t *testing.T) {
	def := ResourceDef{
		Type:                "AWS::Logs::LogGroup",
		Properties:          map[string]any{"RetentionInDays": 7},
		DeletionPolicy:      DeletionPolicyRetain,
		UpdateReplacePolicy: DeletionPolicyRetain,
	}

	data, err := json.Marshal(def)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"Type": "AWS::Logs::LogGroup",
		"Properties": {"RetentionInDays": 7},
		"DeletionPolicy": "Retain",
		"UpdateReplacePolicy": "Retain"
	}`, string(data))

	// Default policy is omitted
	data, err = json.Marshal(ResourceDef{Type: "AWS::KMS::Key"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "DeletionPolicy")
}

func TestTemplate_YAMLRoundTrip(t *testing.T) {
	tmpl := Template{
		AWSTemplateFormatVersion: "2010-09-09",
		Resources: map[string]ResourceDef{
			"PerformanceTestLogGroup": {
				Type:           "AWS::Logs::LogGroup",
				DeletionPolicy: DeletionPolicyRetain,
			},
		},
		Outputs: map[string]Output{
			"LogGroupName": {Value: "/app/perftest-ecs-logs", Export: &OutputExport{Name: "perftest-logs"}},
		},
	}

	data, err := yaml.Marshal(tmpl)
	require.NoError(t, err)

	var parsed Template
	require.NoError(t, yaml.Unmarshal(data, &parsed))
	assert.Equal(t, DeletionPolicyRetain, parsed.Resources["PerformanceTestLogGroup"].DeletionPolicy)
	assert.Equal(t, "perftest-logs", parsed.Outputs["LogGroupName"].Export.Name)
}

func TestEnvironment_String(t *testing.T) {
	assert.Equal(t, "aws://123456789012/eu-west-1", Environment{Account: "123456789012", Region: "eu-west-1"}.String())
	assert.Equal(t, "aws://unknown-account/unknown-region", Environment{}.String())
	assert.True(t, Environment{Account: "1", Region: "r"}.IsResolved())
	assert.False(t, Environment{Region: "r"}.IsResolved())
}
