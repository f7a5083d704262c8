// Package serialize converts resource structs to CloudFormation properties and
// scans properties for references to other resources.
package serialize

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/lex00/perftest-infra-go/intrinsics"
)

// Resource serializes a Go struct to CloudFormation resource properties.
// It handles:
// - field names from json tags (PascalCase in the resources/ packages)
// - omitting nil/zero values
// - nested structs and pointers
// - json.Marshaler values (intrinsics, principals, AttrRef)
//
// The result is normalized through encoding/json so numbers are float64 and
// collections are []any / map[string]any, the same shape a template read back
// from disk or from CloudFormation has.
func Resource(v any) (map[string]any, error) {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil, fmt.Errorf("serialize: nil %T", v)
		}
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return nil, fmt.Errorf("serialize: expected struct, got %s", val.Kind())
	}

	props, err := structToMap(val)
	if err != nil {
		return nil, err
	}
	return normalize(props)
}

func structToMap(val reflect.Value) (map[string]any, error) {
	result := make(map[string]any)
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		fieldVal := val.Field(i)

		if !field.IsExported() {
			continue
		}

		name := getFieldName(field)
		if name == "-" {
			continue
		}

		if isZeroValue(fieldVal) {
			continue
		}

		serialized, err := serializeValue(fieldVal)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		if serialized != nil {
			result[name] = serialized
		}
	}

	return result, nil
}

// getFieldName returns the JSON field name for a struct field.
func getFieldName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" {
		return field.Name
	}

	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return field.Name
	}
	return name
}

// isZeroValue returns true if the value is the zero value for its type.
func isZeroValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.Slice, reflect.Map:
		return v.IsNil() || v.Len() == 0
	case reflect.String:
		return v.String() == ""
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Struct:
		if v.CanInterface() {
			if zeroer, ok := v.Interface().(interface{ IsZero() bool }); ok {
				return zeroer.IsZero()
			}
		}
		return false
	default:
		return false
	}
}

// serializeValue converts a reflect.Value to a JSON-compatible value.
func serializeValue(v reflect.Value) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}

	if v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, nil
		}
		// Marshalers on the pointer itself take precedence over the element.
		if v.Kind() == reflect.Ptr && v.CanInterface() {
			if m, ok := v.Interface().(json.Marshaler); ok {
				return marshalerValue(m)
			}
		}
		return serializeValue(v.Elem())
	}

	if v.CanInterface() {
		if m, ok := v.Interface().(json.Marshaler); ok {
			return marshalerValue(m)
		}
	}

	switch v.Kind() {
	case reflect.Struct:
		return structToMap(v)

	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return nil, nil
		}
		result := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			elem, err := serializeValue(v.Index(i))
			if err != nil {
				return nil, err
			}
			result[i] = elem
		}
		return result, nil

	case reflect.Map:
		if v.Len() == 0 {
			return nil, nil
		}
		result := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			val, err := serializeValue(iter.Value())
			if err != nil {
				return nil, err
			}
			result[fmt.Sprint(iter.Key().Interface())] = val
		}
		return result, nil

	case reflect.String:
		return v.String(), nil

	case reflect.Bool:
		return v.Bool(), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint(), nil

	case reflect.Float32, reflect.Float64:
		return v.Float(), nil

	default:
		data, err := json.Marshal(v.Interface())
		if err != nil {
			return nil, err
		}
		var result any
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, err
		}
		return result, nil
	}
}

func marshalerValue(m json.Marshaler) (any, error) {
	data, err := m.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var result any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func normalize(props map[string]any) (map[string]any, error) {
	data, err := json.Marshal(props)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// References lists the logical IDs a serialized value points at.
// refs holds every Ref and Fn::GetAtt target; attrs holds only the GetAtt
// targets. Fn::Sub strings are scanned for ${Name} and ${Name.Attr}
// placeholders. Both slices are sorted and deduplicated; pseudo parameters
// (AWS::*) are excluded.
func References(v any) (refs, attrs []string) {
	refSet := make(map[string]bool)
	attrSet := make(map[string]bool)
	collectReferences(v, refSet, attrSet)
	return sortedKeys(refSet), sortedKeys(attrSet)
}

func collectReferences(v any, refs, attrs map[string]bool) {
	switch val := v.(type) {
	case map[string]any:
		if len(val) == 1 {
			if name, ok := val["Ref"].(string); ok {
				addRef(name, refs)
				return
			}
			if parts, ok := val["Fn::GetAtt"].([]any); ok && len(parts) > 0 {
				if name, ok := parts[0].(string); ok {
					addRef(name, refs)
					addRef(name, attrs)
				}
				return
			}
			if sub, ok := val["Fn::Sub"]; ok {
				collectSub(sub, refs, attrs)
				return
			}
		}
		for _, elem := range val {
			collectReferences(elem, refs, attrs)
		}
	case []any:
		for _, elem := range val {
			collectReferences(elem, refs, attrs)
		}
	}
}

func collectSub(sub any, refs, attrs map[string]bool) {
	var (
		str  string
		vars map[string]any
	)
	switch s := sub.(type) {
	case string:
		str = s
	case []any:
		if len(s) > 0 {
			str, _ = s[0].(string)
		}
		if len(s) > 1 {
			vars, _ = s[1].(map[string]any)
			collectReferences(s[1], refs, attrs)
		}
	}

	for {
		start := strings.Index(str, "${")
		if start < 0 {
			return
		}
		end := strings.Index(str[start:], "}")
		if end < 0 {
			return
		}
		placeholder := str[start+2 : start+end]
		str = str[start+end+1:]

		if strings.HasPrefix(placeholder, "!") {
			continue
		}
		if _, local := vars[placeholder]; local {
			continue
		}
		name, attr, hasAttr := strings.Cut(placeholder, ".")
		addRef(name, refs)
		if hasAttr && attr != "" {
			addRef(name, attrs)
		}
	}
}

func addRef(name string, set map[string]bool) {
	if name == "" || intrinsics.IsPseudoParameter(name) {
		return
	}
	set[name] = true
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
