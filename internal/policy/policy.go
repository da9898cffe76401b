// Package policy compiles the access rule applied to identified people.
//
// A rule is an expr-lang boolean expression over the identity, for example:
//
//	department in ["CSE", "ECE"] && hour >= 7 && hour < 22
//
// An empty rule allows everyone.
package policy

import (
	"fmt"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/oshokin/access-terminal/internal/domain/access"
)

// Env is the data a rule can reference.
type Env struct {
	// ID is the identity id.
	ID string `expr:"id"`
	// Name is the display name.
	Name string `expr:"name"`
	// Department is the department id.
	Department string `expr:"department"`
	// Section is the section id.
	Section string `expr:"section"`
	// Enrolled reports whether a face descriptor is registered.
	Enrolled bool `expr:"enrolled"`
	// Hour is the local hour of the decision, 0-23.
	Hour int `expr:"hour"`
	// Weekday is the local weekday, 0 for Sunday.
	Weekday int `expr:"weekday"`
}

// Policy is a compiled rule implementing access.Policy.
type Policy struct {
	// source is the rule text.
	source string
	// program is nil for the empty rule.
	program *vm.Program
	// now supplies the decision time.
	now func() time.Time
}

// Compile parses and type-checks rule.
func Compile(rule string) (*Policy, error) {
	rule = strings.TrimSpace(rule)

	p := &Policy{
		source: rule,
		now:    time.Now,
	}

	if rule == "" {
		return p, nil
	}

	program, err := expr.Compile(rule, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile access policy: %w", err)
	}

	p.program = program

	return p, nil
}

// WithClock returns a copy of p that reads the time from now.
func (p *Policy) WithClock(now func() time.Time) *Policy {
	cloned := *p
	cloned.now = now

	return &cloned
}

// String returns the rule text.
func (p *Policy) String() string {
	return p.source
}

// Allow evaluates the rule for identity.
func (p *Policy) Allow(identity access.Identity) (bool, error) {
	if p.program == nil {
		return true, nil
	}

	now := p.now()

	out, err := expr.Run(p.program, Env{
		ID:         identity.ID,
		Name:       identity.DisplayName,
		Department: identity.DepartmentID,
		Section:    identity.SectionID,
		Enrolled:   identity.HasDescriptor(),
		Hour:       now.Hour(),
		Weekday:    int(now.Weekday()),
	})
	if err != nil {
		return false, fmt.Errorf("evaluate access policy: %w", err)
	}

	allowed, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("access policy must evaluate to bool (got %T)", out)
	}

	return allowed, nil
}
