// Package differ provides semantic comparison of CloudFormation templates.
package differ

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"sort"

	perftest "github.com/lex00/perftest-infra-go"
	"github.com/lex00/perftest-infra-go/internal/template"
)

// Options configures the differ.
type Options struct {
	// IgnoreOrder ignores array element order in comparisons
	IgnoreOrder bool
}

// Result contains the difference between two templates.
type Result struct {
	Diff    perftest.TemplateDiff
	Summary perftest.DiffSummary
}

// Retained lists the removed resources CloudFormation will leave in place.
func (r *Result) Retained() []string {
	var names []string
	for _, e := range r.Diff.Removed {
		if e.Retained {
			names = append(names, e.Resource)
		}
	}
	return names
}

// Compare compares two CloudFormation templates and returns differences.
// A nil template is treated as empty, so comparing against nil describes a
// fresh create or a full teardown.
func Compare(before, after *perftest.Template, opts Options) (*Result, error) {
	result := &Result{}

	res1 := resources(before)
	res2 := resources(after)

	for name, def := range res2 {
		if _, exists := res1[name]; !exists {
			result.Diff.Added = append(result.Diff.Added, perftest.DiffEntry{
				Resource: name,
				Type:     def.Type,
			})
		}
	}

	for name, def := range res1 {
		if _, exists := res2[name]; !exists {
			result.Diff.Removed = append(result.Diff.Removed, perftest.DiffEntry{
				Resource: name,
				Type:     def.Type,
				Retained: def.DeletionPolicy == perftest.DeletionPolicyRetain,
			})
		}
	}

	for name, def1 := range res1 {
		if def2, exists := res2[name]; exists {
			changes := compareResources(def1, def2, opts)
			if len(changes) > 0 {
				result.Diff.Modified = append(result.Diff.Modified, perftest.DiffEntry{
					Resource: name,
					Type:     def1.Type,
					Changes:  changes,
				})
			}
		}
	}

	sortEntries(result.Diff.Added)
	sortEntries(result.Diff.Removed)
	sortEntries(result.Diff.Modified)

	result.Summary = perftest.DiffSummary{
		Added:    len(result.Diff.Added),
		Removed:  len(result.Diff.Removed),
		Modified: len(result.Diff.Modified),
	}
	result.Summary.Total = result.Summary.Added + result.Summary.Removed + result.Summary.Modified

	return result, nil
}

// CompareFiles compares two template files.
func CompareFiles(file1, file2 string, opts Options) (*Result, error) {
	t1, err := LoadTemplate(file1)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file1, err)
	}

	t2, err := LoadTemplate(file2)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file2, err)
	}

	return Compare(t1, t2, opts)
}

// LoadTemplate loads a CloudFormation template from a JSON or YAML file.
func LoadTemplate(path string) (*perftest.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return template.Parse(data)
}

func resources(t *perftest.Template) map[string]perftest.ResourceDef {
	if t == nil {
		return nil
	}
	return t.Resources
}

// compareResources compares two resource definitions and returns changes.
func compareResources(def1, def2 perftest.ResourceDef, opts Options) []string {
	var changes []string

	if def1.Type != def2.Type {
		changes = append(changes, fmt.Sprintf("Type changed: %s → %s", def1.Type, def2.Type))
	}

	changes = append(changes, compareProperties("", def1.Properties, def2.Properties, opts)...)

	if !equalStringSlices(def1.DependsOn, def2.DependsOn) {
		changes = append(changes, "DependsOn changed")
	}
	if def1.DeletionPolicy != def2.DeletionPolicy {
		changes = append(changes, fmt.Sprintf("DeletionPolicy changed: %s → %s",
			policyName(def1.DeletionPolicy), policyName(def2.DeletionPolicy)))
	}
	if def1.UpdateReplacePolicy != def2.UpdateReplacePolicy {
		changes = append(changes, fmt.Sprintf("UpdateReplacePolicy changed: %s → %s",
			policyName(def1.UpdateReplacePolicy), policyName(def2.UpdateReplacePolicy)))
	}

	return changes
}

func policyName(p perftest.DeletionPolicy) string {
	if p == "" {
		return string(perftest.DeletionPolicyDelete)
	}
	return string(p)
}

// compareProperties recursively compares property maps. Nested maps are
// reported by their dotted path.
func compareProperties(prefix string, props1, props2 map[string]any, opts Options) []string {
	var changes []string

	for key, val2 := range props2 {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		val1, exists := props1[key]
		if !exists {
			changes = append(changes, fmt.Sprintf("%s added", path))
			continue
		}

		m1, ok1 := val1.(map[string]any)
		m2, ok2 := val2.(map[string]any)
		if ok1 && ok2 && !isIntrinsic(m1) && !isIntrinsic(m2) {
			changes = append(changes, compareProperties(path, m1, m2, opts)...)
			continue
		}

		if !deepEqual(val1, val2, opts) {
			changes = append(changes, fmt.Sprintf("%s modified", path))
		}
	}

	for key := range props1 {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		if _, exists := props2[key]; !exists {
			changes = append(changes, fmt.Sprintf("%s removed", path))
		}
	}

	sort.Strings(changes)
	return changes
}

// isIntrinsic reports whether m is a single-key intrinsic such as Ref or Fn::GetAtt.
func isIntrinsic(m map[string]any) bool {
	if len(m) != 1 {
		return false
	}
	for k := range m {
		return k == "Ref" || (len(k) > 4 && k[:4] == "Fn::")
	}
	return false
}

// deepEqual compares two values deeply, optionally ignoring order.
func deepEqual(a, b any, opts Options) bool {
	if opts.IgnoreOrder {
		a = normalizeValue(a)
		b = normalizeValue(b)
	}
	return reflect.DeepEqual(a, b)
}

// normalizeValue sorts slices by their JSON encoding, recursively.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []any:
		result := make([]any, len(val))
		for i, elem := range val {
			result[i] = normalizeValue(elem)
		}
		sort.SliceStable(result, func(i, j int) bool {
			return sortKey(result[i]) < sortKey(result[j])
		})
		return result
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, v := range val {
			result[k] = normalizeValue(v)
		}
		return result
	default:
		return v
	}
}

func sortKey(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// equalStringSlices compares two string slices for equality.
func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// sortEntries sorts diff entries by resource name.
func sortEntries(entries []perftest.DiffEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Resource < entries[j].Resource
	})
}
