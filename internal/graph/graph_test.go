package graph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perftest "github.com/lex00/perftest-infra-go"
)

var testResources = []perftest.StackResource{
	{Name: "PerformanceTestLogKmsKey", Type: "AWS::KMS::Key"},
	{
		Name:             "PerformanceTestLogGroup",
		Type:             "AWS::Logs::LogGroup",
		Dependencies:     []string{"PerformanceTestLogKmsKey"},
		AttrDependencies: []string{"PerformanceTestLogKmsKey"},
		DeletionPolicy:   perftest.DeletionPolicyRetain,
	},
	{Name: "KickOffPerfTestFnServiceRole", Type: "AWS::IAM::Role"},
	{Name: "PerfTestSchedulerRole", Type: "AWS::IAM::Role"},
	{
		Name:         "KickOffPerfTestFn",
		Type:         "AWS::Lambda::Function",
		Dependencies: []string{"KickOffPerfTestFnServiceRole", "Unknown"},
	},
}

func TestGenerator_Generate_DOT(t *testing.T) {
	gen := &Generator{}
	var sb strings.Builder
	require.NoError(t, gen.Generate(testResources, &sb))

	output := sb.String()
	assert.Contains(t, output, "digraph")
	assert.Contains(t, output, "PerformanceTestLogGroup")
	assert.Contains(t, output, `AWS::Lambda::Function`)
	assert.Contains(t, output, "blue")
	assert.Contains(t, output, "bold")
	assert.NotContains(t, output, "Unknown")
}

func TestGenerator_Generate_ClusterByType(t *testing.T) {
	output, err := (&Generator{ClusterByType: true}).GenerateString(testResources)
	require.NoError(t, err)

	assert.Contains(t, output, "cluster_IAM")
	assert.NotContains(t, output, "cluster_KMS")
}

func TestGenerator_Generate_MermaidFormat(t *testing.T) {
	output, err := (&Generator{Format: FormatMermaid}).GenerateString(testResources)
	require.NoError(t, err)

	assert.True(t, strings.Contains(output, "graph") || strings.Contains(output, "flowchart"), output)
	assert.NotContains(t, output, "digraph")
}

func TestGenerator_Empty(t *testing.T) {
	output, err := (&Generator{}).GenerateString(nil)
	require.NoError(t, err)
	assert.Contains(t, output, "digraph")
}

func TestExtractService(t *testing.T) {
	assert.Equal(t, "IAM", extractService("AWS::IAM::Role"))
	assert.Equal(t, "Scheduler", extractService("AWS::Scheduler::Schedule"))
	assert.Equal(t, "Other", extractService("custom"))
}
