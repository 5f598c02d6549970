package conversation

import (
	"context"
	"fmt"

	conv "github.com/tradepost/tradepost/internal/domain/conversation"
	"github.com/tradepost/tradepost/internal/domain/principal"
)

// Turn carries one inbound event through a rule.
type Turn struct {
	Ctx       context.Context
	Principal *principal.Principal
	Event     conv.Event
	Session   *conv.Session
}

// Rule defines the behavior of one (kind, state) step.
type Rule struct {
	// Prompt produces the message shown when the state is entered or when
	// validation rejects the input.
	Prompt func(t *Turn) conv.Action

	// Validate rejects bad input with a user-facing error. A non-nil
	// return re-prompts; the session does not move.
	Validate func(t *Turn) error

	// Apply folds the validated input into the session payload.
	Apply func(t *Turn)

	// Next returns the state to advance to. StateTerminal triggers the
	// kind's commit.
	Next func(t *Turn) conv.State

	// Skippable allows the skip signal to advance without Apply.
	Skippable bool

	// Immediate runs the state on entry without waiting for input.
	Immediate bool
}

// KindSpec defines a flow: where it starts and how it commits.
type KindSpec struct {
	Kind    conv.Kind
	Initial conv.State

	// Admin gates the flow behind moderation access.
	Admin bool

	// Seed optionally consumes start parameters, pre-filling the payload
	// and overriding the initial state.
	Seed func(t *Turn, params []string) (conv.State, error)

	// Commit runs the terminal effect and produces the closing actions.
	Commit func(t *Turn) ([]conv.Action, error)
}

// Registry maps (kind, state) pairs to rules and start tags to kinds.
// Registration happens once at startup; lookups are read-only after.
type Registry struct {
	specs  map[conv.Kind]*KindSpec
	rules  map[conv.Kind]map[conv.State]*Rule
	starts map[string]conv.Kind
}

func NewRegistry() *Registry {
	return &Registry{
		specs:  make(map[conv.Kind]*KindSpec),
		rules:  make(map[conv.Kind]map[conv.State]*Rule),
		starts: make(map[string]conv.Kind),
	}
}

// RegisterKind installs a flow spec and binds its start tags.
func (r *Registry) RegisterKind(spec *KindSpec, startTags ...string) {
	r.specs[spec.Kind] = spec
	for _, tag := range startTags {
		r.starts[tag] = spec.Kind
	}
}

// RegisterRule installs the rule for one state of a kind.
func (r *Registry) RegisterRule(kind conv.Kind, state conv.State, rule *Rule) {
	states, ok := r.rules[kind]
	if !ok {
		states = make(map[conv.State]*Rule)
		r.rules[kind] = states
	}
	states[state] = rule
}

// Spec returns the flow spec for a kind.
func (r *Registry) Spec(kind conv.Kind) (*KindSpec, error) {
	spec, ok := r.specs[kind]
	if !ok {
		return nil, fmt.Errorf("%w: kind %q", conv.ErrUnknownState, kind)
	}
	return spec, nil
}

// Rule returns the rule for a (kind, state) pair. A miss is a wiring
// defect, not a user error.
func (r *Registry) Rule(kind conv.Kind, state conv.State) (*Rule, error) {
	rule, ok := r.rules[kind][state]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", conv.ErrUnknownState, kind, state)
	}
	return rule, nil
}

// Start resolves a start tag to its kind.
func (r *Registry) Start(tag string) (conv.Kind, bool) {
	kind, ok := r.starts[tag]
	return kind, ok
}
