// Package stack collects resources under logical IDs and synthesizes them
// into a single CloudFormation template bound to one environment.
package stack

import (
	"errors"
	"fmt"

	perftest "github.com/lex00/perftest-infra-go"
	"github.com/lex00/perftest-infra-go/internal/template"
	"github.com/lex00/perftest-infra-go/intrinsics"
)

// ErrDanglingReference is returned by Synth when a resource or output refers
// to a logical ID that was never added.
var ErrDanglingReference = template.ErrDanglingReference

// Stack is a deployment-scoped set of resources.
type Stack struct {
	name    string
	env     perftest.Environment
	builder *template.Builder
	errs    []error
}

// Option sets resource-level attributes on Add.
type Option func(*template.Options)

// Retain keeps the resource in the account when it leaves the stack or the
// stack is deleted, and when an update replaces it.
func Retain() Option {
	return func(o *template.Options) {
		o.DeletionPolicy = perftest.DeletionPolicyRetain
		o.UpdateReplacePolicy = perftest.DeletionPolicyRetain
	}
}

// DependsOn adds explicit ordering beyond the derived references.
func DependsOn(handles ...Handle) Option {
	return func(o *template.Options) {
		for _, h := range handles {
			o.DependsOn = append(o.DependsOn, h.LogicalID())
		}
	}
}

// Handle refers to a resource added to a stack.
type Handle struct {
	logicalID    string
	resourceType string
}

// LogicalID returns the resource's logical ID.
func (h Handle) LogicalID() string { return h.logicalID }

// Type returns the CloudFormation resource type.
func (h Handle) Type() string { return h.resourceType }

// Ref returns a Ref to the resource.
func (h Handle) Ref() intrinsics.Ref {
	return intrinsics.Ref{LogicalName: h.logicalID}
}

// GetAtt returns a Fn::GetAtt for one of the resource's attributes.
func (h Handle) GetAtt(attr string) perftest.AttrRef {
	return perftest.AttrRef{Resource: h.logicalID, Attribute: attr}
}

// Arn is shorthand for GetAtt("Arn").
func (h Handle) Arn() perftest.AttrRef {
	return h.GetAtt("Arn")
}

// New creates an empty stack.
func New(name string, env perftest.Environment) *Stack {
	b := template.NewBuilder()
	b.SetDescription(name)
	return &Stack{name: name, env: env, builder: b}
}

// Name returns the stack name.
func (s *Stack) Name() string { return s.name }

// Env returns the environment the stack is bound to.
func (s *Stack) Env() perftest.Environment { return s.env }

// Region returns the environment's region, or the AWS::Region pseudo
// parameter when the region is resolved at deploy time.
func (s *Stack) Region() any {
	if s.env.Region != "" {
		return s.env.Region
	}
	return intrinsics.AWS_REGION
}

// Add registers a resource. Registration errors are collected and reported
// by Synth and Resources.
func (s *Stack) Add(logicalID string, res perftest.Resource, opts ...Option) Handle {
	var o template.Options
	for _, opt := range opts {
		opt(&o)
	}
	if err := s.builder.Add(logicalID, res, o); err != nil {
		s.errs = append(s.errs, err)
	}
	h := Handle{logicalID: logicalID}
	if res != nil {
		h.resourceType = res.ResourceType()
	}
	return h
}

// AddOutput registers a stack output.
func (s *Stack) AddOutput(name string, out perftest.Output) {
	s.builder.AddOutput(name, out)
}

// Len returns the number of registered resources.
func (s *Stack) Len() int {
	return s.builder.Len()
}

// Err returns the registration errors collected so far.
func (s *Stack) Err() error {
	return errors.Join(s.errs...)
}

// Resources lists the stack's resources in dependency order.
func (s *Stack) Resources() ([]perftest.StackResource, error) {
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("stack %s: %w", s.name, err)
	}
	res, err := s.builder.Resources()
	if err != nil {
		return nil, fmt.Errorf("stack %s: %w", s.name, err)
	}
	return res, nil
}

// Synth produces the CloudFormation template.
func (s *Stack) Synth() (*perftest.Template, error) {
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("stack %s: %w", s.name, err)
	}
	tmpl, err := s.builder.Build()
	if err != nil {
		return nil, fmt.Errorf("stack %s: %w", s.name, err)
	}
	return tmpl, nil
}
