package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perftest "github.com/lex00/perftest-infra-go"
)

func TestValidateTemplate(t *testing.T) {
	tmpl := &perftest.Template{Resources: map[string]perftest.ResourceDef{
		"PerformanceTestLogGroup": {
			Type: "AWS::Logs::LogGroup",
			Properties: map[string]any{
				"LogGroupName":    "/app/perftest-ecs-logs",
				"RetentionInDays": float64(7),
				"KmsKeyId":        map[string]any{"Fn::GetAtt": []any{"PerformanceTestLogKmsKey", "Arn"}},
			},
		},
		"PerfTestSchedule": {
			Type: "AWS::Scheduler::Schedule",
			Properties: map[string]any{
				"ScheduleExpression": "cron(0/5 * * * ? *)",
				"FlexibleTimeWindow": map[string]any{"Mode": "OFF"},
				"Target":             map[string]any{"Arn": "arn", "RoleArn": "arn", "Input": "{}"},
			},
		},
	}}

	result := ValidateTemplate(tmpl, Options{})
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
}

func TestValidateTemplate_Errors(t *testing.T) {
	tests := []struct {
		name string
		def  perftest.ResourceDef
		want string
	}{
		{
			name: "missing required",
			def:  perftest.ResourceDef{Type: "AWS::IAM::Role", Properties: map[string]any{}},
			want: "missing required property: AssumeRolePolicyDocument",
		},
		{
			name: "wrong type",
			def:  perftest.ResourceDef{Type: "AWS::KMS::Key", Properties: map[string]any{"Enabled": "yes"}},
			want: "expected type Boolean",
		},
		{
			name: "not allowed",
			def:  perftest.ResourceDef{Type: "AWS::ECS::TaskDefinition", Properties: map[string]any{"NetworkMode": "nat"}},
			want: `value "nat" not in allowed values`,
		},
		{
			name: "list element not allowed",
			def:  perftest.ResourceDef{Type: "AWS::ECS::TaskDefinition", Properties: map[string]any{"RequiresCompatibilities": []any{"LAMBDA"}}},
			want: `value "LAMBDA" not in allowed values`,
		},
		{
			name: "out of range",
			def:  perftest.ResourceDef{Type: "AWS::KMS::Key", Properties: map[string]any{"PendingWindowInDays": float64(3)}},
			want: "out of range",
		},
		{
			name: "retention not a CloudWatch period",
			def:  perftest.ResourceDef{Type: "AWS::Logs::LogGroup", Properties: map[string]any{"RetentionInDays": float64(8)}},
			want: "value 8 not in allowed values",
		},
		{
			name: "zero retention",
			def:  perftest.ResourceDef{Type: "AWS::Logs::LogGroup", Properties: map[string]any{"RetentionInDays": float64(0)}},
			want: "value 0 not in allowed values",
		},
		{
			name: "bad type format",
			def:  perftest.ResourceDef{Type: "Logs::LogGroup"},
			want: "invalid resource type format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateTemplate(&perftest.Template{Resources: map[string]perftest.ResourceDef{"R": tt.def}}, Options{})
			assert.False(t, result.Valid)
			require.NotEmpty(t, result.Errors)
			assert.Contains(t, result.Errors[0].Message, tt.want)
			assert.Equal(t, "R", result.Errors[0].Resource)
		})
	}
}

func TestValidateTemplate_Warnings(t *testing.T) {
	tmpl := &perftest.Template{Resources: map[string]perftest.ResourceDef{
		"Bucket": {Type: "AWS::S3::Bucket"},
		"Key":    {Type: "AWS::KMS::Key", Properties: map[string]any{"MultiRegion": true}},
	}}

	loose := ValidateTemplate(tmpl, Options{})
	assert.True(t, loose.Valid)
	require.Len(t, loose.Warnings, 1)
	assert.Contains(t, loose.Warnings[0].Message, "unknown resource type: AWS::S3::Bucket")

	strict := ValidateTemplate(tmpl, Options{Strict: true})
	require.Len(t, strict.Warnings, 2)
	assert.Equal(t, "Key.MultiRegion: unknown property: MultiRegion", strict.Warnings[1].Error())
}

func TestIsValidResourceType(t *testing.T) {
	assert.True(t, isValidResourceType("AWS::Lambda::Function"))
	assert.True(t, isValidResourceType("Custom::Thing"))
	assert.False(t, isValidResourceType("AWS::Lambda"))
	assert.False(t, isValidResourceType("Alexa::ASK::Skill"))
}
