// Package intrinsics provides the CloudFormation intrinsic functions used by
// the performance test stack.
//
// The core types come from cloudformation-schema-go:
//
//	Ref{LogicalName: "PerformanceTestTaskDefinition"} → {"Ref": "PerformanceTestTaskDefinition"}
//	GetAtt{LogicalName: "KickOffPerfTestFn", Attribute: "Arn"} → {"Fn::GetAtt": ["KickOffPerfTestFn", "Arn"]}
//	Sub{String: "arn:${AWS::Partition}:iam::${AWS::AccountId}:root"} → {"Fn::Sub": "..."}
package intrinsics

import (
	"github.com/lex00/cloudformation-schema-go/intrinsics"
)

type (
	// Ref represents a CloudFormation Ref intrinsic function.
	Ref = intrinsics.Ref

	// GetAtt represents a CloudFormation Fn::GetAtt intrinsic function.
	GetAtt = intrinsics.GetAtt

	// Sub represents a CloudFormation Fn::Sub intrinsic function.
	Sub = intrinsics.Sub

	// Join represents a CloudFormation Fn::Join intrinsic function.
	Join = intrinsics.Join
)

// IsPseudoParameter reports whether a Ref target is a CloudFormation pseudo
// parameter such as AWS::Region rather than a logical resource ID.
func IsPseudoParameter(name string) bool {
	return len(name) > 5 && name[:5] == "AWS::"
}
