package api

import (
	"errors"
	"fmt"
)

// Plan builds a Registry.
//
//	reg, err := api.NewPlan().
//		WithSignature(api.Signature{Name: "Read", InputTypes: []string{"string"}}).
//		Func("Read", readFile).
//		Build()
type Plan struct {
	signatures []Signature
	names      []string
	handlers   map[string]Handler
	singleUse  bool
	errs       []error
}

// NewPlan starts an empty plan.
func NewPlan() *Plan {
	return &Plan{handlers: make(map[string]Handler)}
}

// WithSignature declares a handler signature.
func (p *Plan) WithSignature(sig Signature) *Plan {
	p.signatures = append(p.signatures, sig)
	return p
}

// WithFunction adds a named handler. It fails if the plan already holds a
// handler with the same name.
func (p *Plan) WithFunction(name string, h Handler) (*Plan, error) {
	if name == "" {
		return p, errors.New("handler name is required")
	}
	if h == nil {
		return p, fmt.Errorf("handler %q is nil", name)
	}
	if _, exists := p.handlers[name]; exists {
		return p, fmt.Errorf("%w: %s", ErrHandlerExists, name)
	}
	p.names = append(p.names, name)
	p.handlers[name] = h
	return p, nil
}

// Func is the chaining form of WithFunction. Errors are deferred to Build.
func (p *Plan) Func(name string, fn HandlerFunc) *Plan {
	if _, err := p.WithFunction(name, fn); err != nil {
		p.errs = append(p.errs, err)
	}
	return p
}

// Handle is like Func for any Handler.
func (p *Plan) Handle(name string, h Handler) *Plan {
	if _, err := p.WithFunction(name, h); err != nil {
		p.errs = append(p.errs, err)
	}
	return p
}

// WithSingleUse makes the built registry consume each handler on its first
// successful resolution.
func (p *Plan) WithSingleUse() *Plan {
	p.singleUse = true
	return p
}

// Build creates the registry. It fails if any deferred registration failed.
func (p *Plan) Build() (*Registry, error) {
	if err := errors.Join(p.errs...); err != nil {
		return nil, fmt.Errorf("build plan: %w", err)
	}
	reg := NewRegistry()
	reg.singleUse = p.singleUse
	for _, sig := range p.signatures {
		reg.Sign(sig)
	}
	for _, name := range p.names {
		if err := reg.Add(name, p.handlers[name]); err != nil {
			return nil, fmt.Errorf("build plan: %w", err)
		}
	}
	return reg, nil
}

// MustBuild is like Build but panics on error. Intended for tests and
// package-level setup.
func (p *Plan) MustBuild() *Registry {
	reg, err := p.Build()
	if err != nil {
		panic(err)
	}
	return reg
}
