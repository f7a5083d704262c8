package intrinsics

import "github.com/lex00/cloudformation-schema-go/intrinsics"

// AWS_REGION is a Ref to the region the stack deploys into. The awslogs
// driver falls back to it when no region was resolved.
var AWS_REGION = intrinsics.AWS_REGION
