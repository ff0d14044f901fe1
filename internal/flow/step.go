package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/flowdeck/pkg/domain"
)

// State key namespaces. Persistent keys are saved with named sessions,
// volatile keys are cleared on session switches.
const (
	persistentPrefix = "pdata_"
	volatilePrefix   = "vdata_"
	outputKeySuffix  = "_output_key"
)

// Step is one unit of a flow: it declares dependencies on earlier steps,
// derives its status from the shared state and performs its task while
// active.
type Step interface {
	Name() string
	Heading() string
	Config() StepConfig
	Options() Options

	// DependsOn maps a dependency alias to its path ('step' or
	// 'step.subkey').
	DependsOn() map[string]string

	// OutputSubkeys declares the sub-keys this step's output mapping will
	// contain, for static validation of deep dependency paths.
	OutputSubkeys() []string

	// OutputKey is the state key the step's output lives under.
	OutputKey() string

	// Status derives the step's current status from state. Never cached;
	// recomputed freshly every pass.
	Status(state *domain.State) domain.Status

	// Perform runs the step's task against state. Only invoked while the
	// status is in the active family.
	Perform(ctx context.Context, state *domain.State, status domain.Status) error

	// Reset clears the step's output and, when resetInternal is set, its
	// internal working keys including acknowledgement flags.
	Reset(state *domain.State, resetOutput, resetInternal bool)
}

// baseStep carries the key management, dependency handling and status
// derivation shared by all step variants.
type baseStep struct {
	name    string
	heading string
	config  StepConfig
	opts    Options
	flow    *Flow
}

func newBaseStep(cfg StepConfig, opts Options, flow *Flow, defaultHeading string) baseStep {
	heading := cfg.Heading
	if heading == "" {
		heading = defaultHeading
	}
	return baseStep{
		name:    cfg.Name,
		heading: heading,
		config:  cfg,
		opts:    opts,
		flow:    flow,
	}
}

func (b *baseStep) Name() string                 { return b.name }
func (b *baseStep) Heading() string              { return b.heading }
func (b *baseStep) Config() StepConfig           { return b.config }
func (b *baseStep) Options() Options             { return b.opts }
func (b *baseStep) DependsOn() map[string]string { return b.config.DependsOn }
func (b *baseStep) OutputSubkeys() []string      { return nil }

func (b *baseStep) keyPrefix(persistent bool) string {
	if persistent {
		return persistentPrefix + b.name
	}
	return volatilePrefix + b.name
}

func (b *baseStep) OutputKey() string {
	return b.keyPrefix(true) + outputKeySuffix
}

// internalKey builds a state key in the step's namespace, persistent or
// volatile.
func (b *baseStep) internalKey(persistent bool, parts ...string) string {
	return b.keyPrefix(persistent) + "_" + strings.Join(parts, "_")
}

func (b *baseStep) ackStartKey() string   { return b.internalKey(true, "ack", "start") }
func (b *baseStep) ackChangesKey() string { return b.internalKey(true, "ack", "changes") }

// dependencyPath returns the configured path for an alias.
func (b *baseStep) dependencyPath(alias string) (string, error) {
	path, ok := b.config.DependsOn[alias]
	if !ok {
		return "", &ConfigError{Step: b.name, Dependency: alias, Reason: "not declared in depends_on"}
	}
	return path, nil
}

// dependencyValue reads the state value a dependency alias points at,
// descending into the dependency step's output when the path names a
// subkey.
func (b *baseStep) dependencyValue(alias string, state *domain.State) (any, error) {
	path, err := b.dependencyPath(alias)
	if err != nil {
		return nil, err
	}
	stepName := stepNameFromPath(path)
	dep, ok := b.flow.Step(stepName)
	if !ok {
		return nil, &ConfigError{Step: b.name, Dependency: alias, Reason: fmt.Sprintf("step %q not found", stepName)}
	}
	lookupPath := dep.OutputKey()
	if subkey := subkeyFromPath(path, stepName); subkey != "" {
		lookupPath += "." + subkey
	}
	value, ok := state.Lookup(lookupPath)
	if !ok {
		return nil, fmt.Errorf("step %q: dependency %q has no value at %q", b.name, alias, path)
	}
	return value, nil
}

// dependencySteps returns the distinct steps this step depends on, in no
// particular order.
func (b *baseStep) dependencySteps() []Step {
	seen := make(map[string]bool)
	var steps []Step
	for _, path := range b.config.DependsOn {
		name := stepNameFromPath(path)
		if seen[name] {
			continue
		}
		seen[name] = true
		if dep, ok := b.flow.Step(name); ok {
			steps = append(steps, dep)
		}
	}
	return steps
}

// inputDataReady reports whether every dependency step's output is
// present and non-nil.
func (b *baseStep) inputDataReady(state *domain.State) bool {
	for _, dep := range b.dependencySteps() {
		if !state.Has(dep.OutputKey()) {
			return false
		}
	}
	return true
}

// outputDataReady reports whether this step's own output is present and
// non-nil.
func (b *baseStep) outputDataReady(state *domain.State) bool {
	return state.Has(b.OutputKey())
}

// prevStepDone reports whether the previous step has fully completed.
// The gate is on DONE, not on output presence: a step stays ENQUEUED
// while its predecessor's confirm-changes acknowledgement is pending,
// even though the predecessor's output already exists. The first step
// has no previous step and is always unblocked.
func (b *baseStep) prevStepDone(state *domain.State) bool {
	prev, ok := b.flow.PrevStep(b.name)
	if !ok {
		return true
	}
	return prev.Status(state) == domain.StatusDone
}

// Status derives the step's status. Progression is strictly forward:
// WAITING, ENQUEUED, ACTIVE_ACK_START, ACTIVE, ACTIVE_ACK_CHANGES, DONE.
// Only a reset moves a step backward.
func (b *baseStep) Status(state *domain.State) domain.Status {
	if !b.inputDataReady(state) {
		return domain.StatusWaiting
	}
	if !b.prevStepDone(state) {
		return domain.StatusEnqueued
	}
	if !b.outputDataReady(state) {
		if b.opts.RequireStartAck && !state.Has(b.ackStartKey()) {
			return domain.StatusActiveAckStart
		}
		return domain.StatusActive
	}
	if b.opts.RequireConfirmChanges && !state.Has(b.ackChangesKey()) {
		return domain.StatusActiveAckChanges
	}
	return domain.StatusDone
}

// Reset clears the step's keys. Output and internal keys can be cleared
// independently so "reset output only" keeps widget values intact.
func (b *baseStep) Reset(state *domain.State, resetOutput, resetInternal bool) {
	outputKey := b.OutputKey()
	if resetOutput {
		state.Delete(outputKey)
	}
	if resetInternal {
		for _, prefix := range []string{b.keyPrefix(true), b.keyPrefix(false)} {
			for _, key := range state.KeysWithPrefix(prefix + "_") {
				if key == outputKey {
					continue
				}
				state.Delete(key)
			}
		}
	}
}

// statusDescription wordings shown inside a step container.
func statusDescription(step Step, flow *Flow, status domain.Status) string {
	switch status {
	case domain.StatusWaiting:
		var headings []string
		for _, path := range step.DependsOn() {
			name := stepNameFromPath(path)
			if dep, ok := flow.Step(name); ok {
				headings = append(headings, dep.Heading())
			}
		}
		return fmt.Sprintf("This step is waiting for data from the following steps '%s'", strings.Join(headings, ", "))
	case domain.StatusEnqueued:
		prevHeading := "No Previous Step"
		if prev, ok := flow.PrevStep(step.Name()); ok {
			prevHeading = prev.Heading()
		}
		return fmt.Sprintf("This step is waiting for the previous step '%s' to be done.", prevHeading)
	default:
		return fmt.Sprintf("This step is '%s'", status)
	}
}

// stepNameFromPath returns the step a dependency path addresses: the
// first dot separated segment.
func stepNameFromPath(path string) string {
	if i := strings.IndexByte(path, '.'); i >= 0 {
		return path[:i]
	}
	return path
}

// subkeyFromPath strips the step name from a dependency path, returning
// "" when the path has no subkey.
func subkeyFromPath(path, stepName string) string {
	rest := strings.TrimPrefix(path, stepName)
	return strings.TrimPrefix(rest, ".")
}
