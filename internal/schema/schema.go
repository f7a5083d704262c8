// Package schema provides offline CloudFormation schema validation.
// It validates resources against the schemas of the types the stack declares.
package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	perftest "github.com/lex00/perftest-infra-go"
)

// Options configures schema validation.
type Options struct {
	// Strict reports properties missing from the schema as warnings.
	Strict bool
}

// Result contains schema validation results.
type Result struct {
	Valid    bool
	Errors   []perftest.SchemaError
	Warnings []perftest.SchemaError
}

// ValidateTemplate validates a CloudFormation template against known schemas.
func ValidateTemplate(template *perftest.Template, opts Options) *Result {
	result := &Result{Valid: true}

	names := make([]string, 0, len(template.Resources))
	for name := range template.Resources {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		errs, warnings := validateResource(name, template.Resources[name], opts)
		result.Errors = append(result.Errors, errs...)
		result.Warnings = append(result.Warnings, warnings...)
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// validateResource validates a single resource.
func validateResource(name string, resource perftest.ResourceDef, opts Options) ([]perftest.SchemaError, []perftest.SchemaError) {
	var errs, warnings []perftest.SchemaError

	if !isValidResourceType(resource.Type) {
		errs = append(errs, perftest.SchemaError{
			Resource: name,
			Property: "Type",
			Message:  fmt.Sprintf("invalid resource type format: %s", resource.Type),
		})
		return errs, warnings
	}

	schema, ok := resourceSchemas[resource.Type]
	if !ok {
		warnings = append(warnings, perftest.SchemaError{
			Resource: name,
			Property: "Type",
			Message:  fmt.Sprintf("unknown resource type: %s (schema not available for validation)", resource.Type),
		})
		return errs, warnings
	}

	for _, required := range schema.Required {
		if _, exists := resource.Properties[required]; !exists {
			errs = append(errs, perftest.SchemaError{
				Resource: name,
				Property: required,
				Message:  fmt.Sprintf("missing required property: %s", required),
			})
		}
	}

	props := make([]string, 0, len(resource.Properties))
	for prop := range resource.Properties {
		props = append(props, prop)
	}
	sort.Strings(props)

	for _, propName := range props {
		propSchema, ok := schema.Properties[propName]
		if !ok {
			if opts.Strict {
				warnings = append(warnings, perftest.SchemaError{
					Resource: name,
					Property: propName,
					Message:  fmt.Sprintf("unknown property: %s", propName),
				})
			}
			continue
		}
		errs = append(errs, validateProperty(name, propName, resource.Properties[propName], propSchema)...)
	}

	return errs, warnings
}

// isValidResourceType checks that a type has the AWS::Service::Resource or
// Custom:: form.
func isValidResourceType(resourceType string) bool {
	if strings.HasPrefix(resourceType, "Custom::") {
		return true
	}
	parts := strings.Split(resourceType, "::")
	if len(parts) != 3 {
		return false
	}
	return parts[0] == "AWS"
}

// validateProperty validates a property value against its schema.
func validateProperty(resource, property string, value any, schema PropertySchema) []perftest.SchemaError {
	var errs []perftest.SchemaError

	if isIntrinsic(value) {
		return nil
	}

	if !isValidType(value, schema.Type) {
		errs = append(errs, perftest.SchemaError{
			Resource: resource,
			Property: property,
			Message:  fmt.Sprintf("expected type %s", schema.Type),
		})
	}

	if len(schema.AllowedValues) > 0 {
		values := []any{value}
		if list, ok := value.([]any); ok {
			values = list
		}
		for _, v := range values {
			var shown string
			switch v := v.(type) {
			case string:
				shown = strconv.Quote(v)
			case float64, int, int32, int64:
				shown = fmt.Sprint(v)
			default:
				continue
			}
			if contains(schema.AllowedValues, fmt.Sprint(v)) {
				continue
			}
			errs = append(errs, perftest.SchemaError{
				Resource: resource,
				Property: property,
				Message:  fmt.Sprintf("value %s not in allowed values: %v", shown, schema.AllowedValues),
			})
		}
	}

	if schema.Type == "Integer" && (schema.Min != 0 || schema.Max != 0) {
		if n, ok := value.(float64); ok && (n < schema.Min || (schema.Max != 0 && n > schema.Max)) {
			errs = append(errs, perftest.SchemaError{
				Resource: resource,
				Property: property,
				Message:  fmt.Sprintf("value %v out of range [%v, %v]", n, schema.Min, schema.Max),
			})
		}
	}

	return errs
}

func isIntrinsic(value any) bool {
	m, ok := value.(map[string]any)
	if !ok || len(m) != 1 {
		return false
	}
	for key := range m {
		return strings.HasPrefix(key, "Fn::") || key == "Ref"
	}
	return false
}

// isValidType checks if a value matches the expected type.
func isValidType(value any, expectedType string) bool {
	switch expectedType {
	case "String":
		_, ok := value.(string)
		return ok
	case "Integer":
		switch value.(type) {
		case int, int32, int64, float64:
			return true
		}
		return false
	case "Boolean":
		_, ok := value.(bool)
		return ok
	case "List":
		_, ok := value.([]any)
		return ok
	case "Map":
		_, ok := value.(map[string]any)
		return ok
	default:
		return true
	}
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
