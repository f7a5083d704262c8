package schema

// ResourceSchema defines the schema for a resource type.
type ResourceSchema struct {
	Required   []string
	Properties map[string]PropertySchema
}

// PropertySchema defines the schema for a property. Type is one of String,
// Integer, Boolean, List, Map or Json.
type PropertySchema struct {
	Type          string
	AllowedValues []string
	// Min and Max bound Integer values when either is set.
	Min, Max float64
}

var tags = PropertySchema{Type: "List"}

// logRetentionDays are the retention periods CloudWatch Logs accepts.
var logRetentionDays = []string{
	"1", "3", "5", "7", "14", "30", "60", "90", "120", "150", "180",
	"365", "400", "545", "731", "1096", "1827", "2192", "2557", "2922", "3288", "3653",
}

// resourceSchemas covers the types the stack declares.
var resourceSchemas = map[string]ResourceSchema{
	"AWS::KMS::Key": {
		Properties: map[string]PropertySchema{
			"Description":         {Type: "String"},
			"Enabled":             {Type: "Boolean"},
			"EnableKeyRotation":   {Type: "Boolean"},
			"KeyPolicy":           {Type: "Json"},
			"KeySpec":             {Type: "String"},
			"KeyUsage":            {Type: "String", AllowedValues: []string{"ENCRYPT_DECRYPT", "SIGN_VERIFY", "GENERATE_VERIFY_MAC", "KEY_AGREEMENT"}},
			"PendingWindowInDays": {Type: "Integer", Min: 7, Max: 30},
			"Tags":                tags,
		},
	},
	"AWS::Logs::LogGroup": {
		Properties: map[string]PropertySchema{
			"LogGroupName":    {Type: "String"},
			"LogGroupClass":   {Type: "String", AllowedValues: []string{"STANDARD", "INFREQUENT_ACCESS"}},
			"KmsKeyId":        {Type: "String"},
			"RetentionInDays": {Type: "Integer", AllowedValues: logRetentionDays},
			"Tags":            tags,
		},
	},
	"AWS::ECS::TaskDefinition": {
		Properties: map[string]PropertySchema{
			"Family":                  {Type: "String"},
			"Cpu":                     {Type: "String"},
			"Memory":                  {Type: "String"},
			"NetworkMode":             {Type: "String", AllowedValues: []string{"awsvpc", "bridge", "host", "none"}},
			"RequiresCompatibilities": {Type: "List", AllowedValues: []string{"EC2", "FARGATE", "EXTERNAL", "MANAGED_INSTANCES"}},
			"ExecutionRoleArn":        {Type: "String"},
			"TaskRoleArn":             {Type: "String"},
			"RuntimePlatform":         {Type: "Map"},
			"ContainerDefinitions":    {Type: "List"},
			"Tags":                    tags,
		},
	},
	"AWS::Lambda::Function": {
		Required: []string{"Code", "Role"},
		Properties: map[string]PropertySchema{
			"FunctionName":  {Type: "String"},
			"Description":   {Type: "String"},
			"Runtime":       {Type: "String"},
			"Handler":       {Type: "String"},
			"Code":          {Type: "Map"},
			"Role":          {Type: "String"},
			"Architectures": {Type: "List", AllowedValues: []string{"arm64", "x86_64"}},
			"MemorySize":    {Type: "Integer", Min: 128, Max: 10240},
			"Timeout":       {Type: "Integer", Min: 1, Max: 900},
			"Environment":   {Type: "Map"},
			"Tags":          tags,
		},
	},
	"AWS::IAM::Role": {
		Required: []string{"AssumeRolePolicyDocument"},
		Properties: map[string]PropertySchema{
			"RoleName":                 {Type: "String"},
			"Description":              {Type: "String"},
			"Path":                     {Type: "String"},
			"AssumeRolePolicyDocument": {Type: "Json"},
			"ManagedPolicyArns":        {Type: "List"},
			"Policies":                 {Type: "List"},
			"MaxSessionDuration":       {Type: "Integer", Min: 3600, Max: 43200},
			"Tags":                     tags,
		},
	},
	"AWS::Scheduler::Schedule": {
		Required: []string{"FlexibleTimeWindow", "ScheduleExpression", "Target"},
		Properties: map[string]PropertySchema{
			"Name":                       {Type: "String"},
			"GroupName":                  {Type: "String"},
			"Description":                {Type: "String"},
			"ScheduleExpression":         {Type: "String"},
			"ScheduleExpressionTimezone": {Type: "String"},
			"FlexibleTimeWindow":         {Type: "Map"},
			"State":                      {Type: "String", AllowedValues: []string{"ENABLED", "DISABLED"}},
			"Target":                     {Type: "Map"},
		},
	},
}
