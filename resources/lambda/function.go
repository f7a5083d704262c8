// Package lambda contains the AWS::Lambda resource types.
package lambda

// Function is an AWS::Lambda::Function.
type Function struct {
	FunctionName  any                   `json:"FunctionName,omitempty"`
	Description   string                `json:"Description,omitempty"`
	Runtime       string                `json:"Runtime,omitempty"`
	Handler       string                `json:"Handler,omitempty"`
	Code          *Function_Code        `json:"Code,omitempty"`
	Role          any                   `json:"Role,omitempty"`
	Architectures []any                 `json:"Architectures,omitempty"`
	MemorySize    int                   `json:"MemorySize,omitempty"`
	Timeout       int                   `json:"Timeout,omitempty"`
	Environment   *Function_Environment `json:"Environment,omitempty"`
	Tags          []any                 `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (Function) ResourceType() string { return "AWS::Lambda::Function" }

// Function_Code locates the deployment package.
type Function_Code struct {
	S3Bucket        any `json:"S3Bucket,omitempty"`
	S3Key           any `json:"S3Key,omitempty"`
	S3ObjectVersion any `json:"S3ObjectVersion,omitempty"`
	ImageUri        any `json:"ImageUri,omitempty"`
	ZipFile         any `json:"ZipFile,omitempty"`
}

// Function_Environment holds the function's environment variables.
type Function_Environment struct {
	Variables map[string]any `json:"Variables,omitempty"`
}
