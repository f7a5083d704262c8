// Package template builds CloudFormation templates from registered resources.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	perftest "github.com/lex00/perftest-infra-go"
	"github.com/lex00/perftest-infra-go/internal/serialize"
)

// FormatVersion is the only CloudFormation template format version.
const FormatVersion = "2010-09-09"

// ErrDanglingReference is returned when a Ref or Fn::GetAtt names a logical ID
// that is not part of the template.
var ErrDanglingReference = errors.New("dangling reference")

// ErrDuplicateResource is returned when a logical ID is registered twice.
var ErrDuplicateResource = errors.New("duplicate logical ID")

// Options carries the resource-level attributes that live beside Properties.
type Options struct {
	DeletionPolicy      perftest.DeletionPolicy
	UpdateReplacePolicy perftest.DeletionPolicy
	// DependsOn adds explicit ordering on top of the derived dependencies.
	DependsOn []string
}

type entry struct {
	resource perftest.Resource
	opts     Options
}

// Builder constructs CloudFormation templates from registered resources.
type Builder struct {
	description string
	order       []string // registration order
	resources   map[string]entry
	outputs     map[string]perftest.Output
}

// NewBuilder creates an empty template builder.
func NewBuilder() *Builder {
	return &Builder{
		resources: make(map[string]entry),
		outputs:   make(map[string]perftest.Output),
	}
}

// SetDescription sets the template description.
func (b *Builder) SetDescription(description string) {
	b.description = description
}

// Add registers a resource under a logical ID.
func (b *Builder) Add(name string, res perftest.Resource, opts Options) error {
	if name == "" {
		return errors.New("logical ID must not be empty")
	}
	if res == nil {
		return fmt.Errorf("%s: nil resource", name)
	}
	if _, exists := b.resources[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateResource, name)
	}
	b.resources[name] = entry{resource: res, opts: opts}
	b.order = append(b.order, name)
	return nil
}

// AddOutput registers a stack output.
func (b *Builder) AddOutput(name string, out perftest.Output) {
	b.outputs[name] = out
}

// Len returns the number of registered resources.
func (b *Builder) Len() int {
	return len(b.resources)
}

type serialized struct {
	props map[string]any
	refs  []string
	attrs []string
}

func (b *Builder) serializeAll() (map[string]serialized, error) {
	out := make(map[string]serialized, len(b.resources))
	for _, name := range b.order {
		e := b.resources[name]
		props, err := serialize.Resource(e.resource)
		if err != nil {
			return nil, fmt.Errorf("serializing %s: %w", name, err)
		}
		refs, attrs := serialize.References(props)
		refs = mergeSorted(refs, e.opts.DependsOn)
		out[name] = serialized{props: props, refs: refs, attrs: attrs}
	}
	return out, nil
}

// Resources describes the registered resources in dependency order.
func (b *Builder) Resources() ([]perftest.StackResource, error) {
	ser, err := b.serializeAll()
	if err != nil {
		return nil, err
	}
	order, err := b.topologicalSort(ser)
	if err != nil {
		return nil, err
	}

	result := make([]perftest.StackResource, 0, len(order))
	for _, name := range order {
		e := b.resources[name]
		result = append(result, perftest.StackResource{
			Name:             name,
			Type:             e.resource.ResourceType(),
			Dependencies:     ser[name].refs,
			AttrDependencies: ser[name].attrs,
			DeletionPolicy:   e.opts.DeletionPolicy,
		})
	}
	return result, nil
}

// Build constructs the CloudFormation template.
func (b *Builder) Build() (*perftest.Template, error) {
	ser, err := b.serializeAll()
	if err != nil {
		return nil, err
	}

	if err := b.checkReferences(ser); err != nil {
		return nil, err
	}

	if _, err := b.topologicalSort(ser); err != nil {
		return nil, err
	}

	tmpl := &perftest.Template{
		AWSTemplateFormatVersion: FormatVersion,
		Description:              b.description,
		Resources:                make(map[string]perftest.ResourceDef, len(b.resources)),
	}

	for name, e := range b.resources {
		def := perftest.ResourceDef{
			Type:                e.resource.ResourceType(),
			Properties:          ser[name].props,
			DeletionPolicy:      e.opts.DeletionPolicy,
			UpdateReplacePolicy: e.opts.UpdateReplacePolicy,
		}
		if len(e.opts.DependsOn) > 0 {
			def.DependsOn = append([]string(nil), e.opts.DependsOn...)
			sort.Strings(def.DependsOn)
		}
		tmpl.Resources[name] = def
	}

	if len(b.outputs) > 0 {
		tmpl.Outputs = make(map[string]perftest.Output, len(b.outputs))
		for name, out := range b.outputs {
			value, err := normalizeValue(out.Value)
			if err != nil {
				return nil, fmt.Errorf("serializing output %s: %w", name, err)
			}
			out.Value = value
			tmpl.Outputs[name] = out
		}
	}

	return tmpl, nil
}

// checkReferences rejects references to logical IDs that are not registered.
func (b *Builder) checkReferences(ser map[string]serialized) error {
	var dangling []string
	for _, name := range b.order {
		for _, ref := range ser[name].refs {
			if _, ok := b.resources[ref]; !ok {
				dangling = append(dangling, fmt.Sprintf("%s -> %s", name, ref))
			}
		}
	}

	outputNames := make([]string, 0, len(b.outputs))
	for name := range b.outputs {
		outputNames = append(outputNames, name)
	}
	sort.Strings(outputNames)
	for _, name := range outputNames {
		value, err := normalizeValue(b.outputs[name].Value)
		if err != nil {
			return fmt.Errorf("serializing output %s: %w", name, err)
		}
		refs, _ := serialize.References(value)
		for _, ref := range refs {
			if _, ok := b.resources[ref]; !ok {
				dangling = append(dangling, fmt.Sprintf("Outputs.%s -> %s", name, ref))
			}
		}
	}

	if len(dangling) > 0 {
		return fmt.Errorf("%w: %s", ErrDanglingReference, strings.Join(dangling, ", "))
	}
	return nil
}

// topologicalSort returns resources in dependency order.
func (b *Builder) topologicalSort(ser map[string]serialized) ([]string, error) {
	graph := make(map[string][]string)
	inDegree := make(map[string]int)

	for name := range b.resources {
		graph[name] = nil
		inDegree[name] = 0
	}

	for name := range b.resources {
		for _, dep := range ser[name].refs {
			if _, exists := b.resources[dep]; exists {
				graph[dep] = append(graph[dep], name)
				inDegree[name]++
			}
		}
	}

	// Kahn's algorithm
	var queue []string
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	var result []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, neighbor := range graph[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
				sort.Strings(queue)
			}
		}
	}

	if len(result) != len(b.resources) {
		return nil, b.detectCycle(ser)
	}

	return result, nil
}

// detectCycle finds and reports a cycle in the dependency graph.
func (b *Builder) detectCycle(ser map[string]serialized) error {
	visited := make(map[string]bool)
	path := make(map[string]bool)

	var cycle []string
	var findCycle func(node string) bool
	findCycle = func(node string) bool {
		visited[node] = true
		path[node] = true

		for _, dep := range ser[node].refs {
			if _, exists := b.resources[dep]; !exists {
				continue
			}
			if !visited[dep] {
				if findCycle(dep) {
					cycle = append([]string{node}, cycle...)
					return true
				}
			} else if path[dep] {
				cycle = append([]string{dep, node}, cycle...)
				return true
			}
		}

		path[node] = false
		return false
	}

	names := append([]string(nil), b.order...)
	sort.Strings(names)
	for _, name := range names {
		if !visited[name] && findCycle(name) {
			break
		}
	}

	if len(cycle) > 0 {
		return fmt.Errorf("circular dependency detected: %s", strings.Join(cycle, " → "))
	}
	return errors.New("circular dependency detected")
}

func normalizeValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func mergeSorted(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	set := make(map[string]bool, len(a)+len(b))
	for _, s := range a {
		set[s] = true
	}
	for _, s := range b {
		set[s] = true
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// ToJSON serializes the template to JSON.
func ToJSON(t *perftest.Template) ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// ToYAML serializes the template to YAML.
func ToYAML(t *perftest.Template) ([]byte, error) {
	return yaml.Marshal(t)
}

// Parse reads a JSON or YAML template.
func Parse(data []byte) (*perftest.Template, error) {
	var tmpl perftest.Template
	if err := json.Unmarshal(data, &tmpl); err == nil {
		return &tmpl, nil
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse as JSON or YAML: %w", err)
	}
	// Round-trip through JSON so nested values match the JSON decoding shape.
	normalized, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("normalizing YAML template: %w", err)
	}
	if err := json.Unmarshal(normalized, &tmpl); err != nil {
		return nil, fmt.Errorf("decoding YAML template: %w", err)
	}
	return &tmpl, nil
}
