// Package flow turns a resolved template document into an ordered
// pipeline of steps sharing one state map, and drives the render passes
// that move the pipeline forward.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/aretw0/flowdeck/internal/logging"
	"github.com/aretw0/flowdeck/internal/session"
	"github.com/aretw0/flowdeck/pkg/domain"
	"github.com/aretw0/flowdeck/pkg/observability"
	"github.com/aretw0/flowdeck/pkg/ports"
)

// maxPasses bounds consecutive render passes in which statuses change
// without any step moving strictly forward. Forward motion resets the
// budget, so a long gated flow never trips it; pure flip-flop does.
const maxPasses = 8

// Flow is the orchestrator: an ordered registry of steps instantiated
// from one configuration, sharing one state map.
type Flow struct {
	config   *Config
	renderer ports.Renderer
	registry Registry

	order []string
	steps map[string]Step

	sessions  *session.Store
	extractor ports.Extractor
	models    ports.ModelCatalog
	uploads   ports.Storage
	enricher  *ContextEnricher
	metrics   *observability.Metrics
	logger    *slog.Logger

	rerunRequested bool
}

// Option configures a Flow.
type Option func(*Flow)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Flow) { f.logger = logger }
}

// WithSessions enables session persistence at the end of each clean pass.
func WithSessions(store *session.Store) Option {
	return func(f *Flow) { f.sessions = store }
}

// WithExtractor sets the text extraction collaborator used by retrieval
// steps.
func WithExtractor(extractor ports.Extractor) Option {
	return func(f *Flow) { f.extractor = extractor }
}

// WithModels sets the chat model catalog.
func WithModels(models ports.ModelCatalog) Option {
	return func(f *Flow) { f.models = models }
}

// WithUploads sets the storage backend uploaded files are persisted to.
func WithUploads(storage ports.Storage) Option {
	return func(f *Flow) { f.uploads = storage }
}

// WithContextEnricher sets the enricher that scrapes links and issue
// references out of chat prompts.
func WithContextEnricher(enricher *ContextEnricher) Option {
	return func(f *Flow) { f.enricher = enricher }
}

// WithMetrics enables pass and step instrumentation.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(f *Flow) { f.metrics = metrics }
}

// WithRegistry replaces the step variant registry.
func WithRegistry(registry Registry) Option {
	return func(f *Flow) { f.registry = registry }
}

// New creates a flow for a parsed configuration. Call LoadSteps before
// rendering.
func New(config *Config, renderer ports.Renderer, opts ...Option) *Flow {
	f := &Flow{
		config:   config,
		renderer: renderer,
		registry: DefaultRegistry(),
		steps:    make(map[string]Step),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// StatePatterns classifies flow state keys for session persistence:
// pdata_ keys survive saves, vdata_ keys are cleared on session switches.
func StatePatterns() session.PatternSet {
	return session.PatternSet{
		Persistent: []string{persistentPrefix + "*"},
		Volatile:   []string{volatilePrefix + "*"},
	}
}

// Config returns the flow configuration.
func (f *Flow) Config() *Config { return f.config }

// Step returns a step by name.
func (f *Flow) Step(name string) (Step, bool) {
	s, ok := f.steps[name]
	return s, ok
}

// Steps returns the steps in declaration order.
func (f *Flow) Steps() []Step {
	out := make([]Step, 0, len(f.order))
	for _, name := range f.order {
		out = append(out, f.steps[name])
	}
	return out
}

// PrevStep returns the step declared immediately before name.
func (f *Flow) PrevStep(name string) (Step, bool) {
	i := slices.Index(f.order, name)
	if i <= 0 {
		return nil, false
	}
	return f.steps[f.order[i-1]], true
}

// RequestRerun schedules an immediate extra render pass after the current
// one completes. Used by steps whose perform changed state mid-pass.
func (f *Flow) RequestRerun() {
	f.rerunRequested = true
}

// LoadSteps instantiates every configured step in declaration order,
// validating the graph: no duplicate names, every dependency addresses a
// previously declared step, and subkey paths address declared output
// subkeys.
func (f *Flow) LoadSteps() error {
	for _, stepCfg := range f.config.Steps {
		if _, exists := f.steps[stepCfg.Name]; exists {
			return &ConfigError{Step: stepCfg.Name, Reason: "a step with that name already exists"}
		}

		opts, err := resolveOptions(f.config.Raw, stepCfg)
		if err != nil {
			return err
		}
		step, err := f.registry.New(stepCfg, opts, f)
		if err != nil {
			return err
		}

		if err := f.validateDependencies(step); err != nil {
			return err
		}

		f.steps[stepCfg.Name] = step
		f.order = append(f.order, stepCfg.Name)
	}
	f.logger.Info("flow loaded", "title", f.config.Title, "steps", len(f.order))
	return nil
}

// validateDependencies checks a step's depends_on paths against the
// already instantiated steps. Steps may only depend on steps declared
// before them.
func (f *Flow) validateDependencies(step Step) error {
	for alias, path := range step.DependsOn() {
		depName := stepNameFromPath(path)
		dep, ok := f.steps[depName]
		if !ok {
			return &ConfigError{
				Step:       step.Name(),
				Dependency: alias,
				Reason:     fmt.Sprintf("dependency step %q was not found among previously declared steps", depName),
			}
		}
		if subkey := subkeyFromPath(path, depName); subkey != "" {
			declared := dep.OutputSubkeys()
			if !slices.Contains(declared, subkey) {
				return &ConfigError{
					Step:       step.Name(),
					Dependency: alias,
					Reason: fmt.Sprintf("dependency step %q does not support sub key %q in path %q; supported keys are %v",
						depName, subkey, path, declared),
				}
			}
		}
	}
	return nil
}

// RenderPass runs one top-to-bottom sweep of the registry: each step's
// status is computed fresh, its container rendered per policy, and its
// task performed while active. The returned flag reports whether any
// step's status changed during the pass, which obligates the caller to
// run another pass before yielding.
func (f *Flow) RenderPass(ctx context.Context, state *domain.State) (statusChanged bool, err error) {
	f.renderer.Title(f.config.Title)
	f.renderer.Markdown(f.config.Description)

	before := make(map[string]domain.Status, len(f.order))

	for _, name := range f.order {
		step := f.steps[name]
		status := step.Status(state)
		before[name] = status

		view := f.stepView(step, status)
		renderErr := f.renderer.Container(view, func() error {
			return f.renderStepBody(ctx, step, state, status)
		})
		if renderErr != nil {
			if f.metrics != nil {
				f.metrics.StepErrors.WithLabelValues(name).Inc()
			}
			return false, fmt.Errorf("step %q: %w", name, renderErr)
		}
	}

	for _, name := range f.order {
		if f.steps[name].Status(state) != before[name] {
			statusChanged = true
			break
		}
	}
	return statusChanged, nil
}

// stepView computes presentation flags from the step's policy options.
func (f *Flow) stepView(step Step, status domain.Status) ports.StepView {
	opts := step.Options()

	hidden := true
	switch opts.Visibility {
	case VisibilityAlways:
		hidden = false
	case VisibilityShowAfterActive:
		hidden = !(status.Active() || status == domain.StatusDone)
	}

	expanded := false
	switch opts.Expandability {
	case ExpandAlways:
		expanded = true
	case ExpandOnlyWhenActive:
		expanded = status.Active()
	}

	description := ""
	switch opts.ShowStatusDescription {
	case StatusDescriptionAlways:
		description = statusDescription(step, f, status)
	case StatusDescriptionWaitingAndEnqueued:
		if status == domain.StatusWaiting || status == domain.StatusEnqueued {
			description = statusDescription(step, f, status)
		}
	}

	return ports.StepView{
		Name:              step.Name(),
		Heading:           step.Heading(),
		Status:            status,
		Hidden:            hidden,
		Expanded:          expanded,
		StatusDescription: description,
	}
}

// renderStepBody renders a step's contents for its current status. The
// acknowledgement gates are handled here so variants only implement their
// task.
func (f *Flow) renderStepBody(ctx context.Context, step Step, state *domain.State, status domain.Status) error {
	base, _ := step.(interface {
		ackStartKey() string
		ackChangesKey() string
	})

	switch status {
	case domain.StatusWaiting, domain.StatusEnqueued:
		return nil

	case domain.StatusActiveAckStart:
		if f.renderer.Button("Start", step.Name()+"_ack_start") && base != nil {
			state.Set(base.ackStartKey(), true)
		}
		return nil

	case domain.StatusActive, domain.StatusActiveAckChanges:
		if err := step.Perform(ctx, state, status); err != nil {
			return err
		}
		if status == domain.StatusActiveAckChanges {
			if f.renderer.Button("Confirm", step.Name()+"_ack_changes") && base != nil {
				state.Set(base.ackChangesKey(), true)
			}
		}
		return nil

	default: // DONE
		if done, ok := step.(interface{ RenderDone(state *domain.State) }); ok {
			done.RenderDone(state)
		}
		return nil
	}
}

// Run drives render passes until no step's status changes, then persists
// the session. A pass aborted by a step error persists nothing. A pass
// that advances some step's status resets the oscillation budget; changes
// that advance nothing for maxPasses consecutive passes are reported as
// an error, with the state persisted first so user input survives.
func (f *Flow) Run(ctx context.Context, state *domain.State) error {
	prev := f.statuses(state)
	stalled := 0
	for pass := 1; ; pass++ {
		f.rerunRequested = false

		if f.metrics != nil {
			f.metrics.RenderPasses.Inc()
		}
		changed, err := f.RenderPass(ctx, state)
		if err != nil {
			return err
		}
		if !changed && !f.rerunRequested {
			break
		}

		cur := f.statuses(state)
		if statusesAdvanced(prev, cur) {
			stalled = 0
		} else if changed {
			stalled++
		}
		prev = cur

		if stalled >= maxPasses {
			if err := f.saveSession(ctx, state); err != nil {
				f.logger.Warn("saving session after aborted run", "error", err)
			}
			return fmt.Errorf("flow %q: statuses oscillating without progress after %d passes, aborting", f.config.Title, maxPasses)
		}
		f.logger.Debug("rerunning render pass", "pass", pass)
	}

	return f.saveSession(ctx, state)
}

func (f *Flow) saveSession(ctx context.Context, state *domain.State) error {
	if f.sessions == nil {
		return nil
	}
	if err := f.sessions.SaveCurrent(ctx, state); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

func (f *Flow) statuses(state *domain.State) map[string]domain.Status {
	out := make(map[string]domain.Status, len(f.order))
	for _, name := range f.order {
		out[name] = f.steps[name].Status(state)
	}
	return out
}

// statusesAdvanced reports whether any step moved strictly forward
// between two status snapshots.
func statusesAdvanced(prev, cur map[string]domain.Status) bool {
	for name, status := range cur {
		if status.Rank() > prev[name].Rank() {
			return true
		}
	}
	return false
}

// ResetAll applies a full reset to every step in declaration order.
func (f *Flow) ResetAll(state *domain.State) {
	for _, step := range f.Steps() {
		step.Reset(state, true, true)
	}
}

// ResetFrom resets the named step and every step declared after it.
func (f *Flow) ResetFrom(state *domain.State, name string) {
	i := slices.Index(f.order, name)
	if i < 0 {
		return
	}
	for _, stepName := range f.order[i:] {
		f.steps[stepName].Reset(state, true, true)
	}
}

// ResetToPrevious resets the named step and its immediate predecessor.
func (f *Flow) ResetToPrevious(state *domain.State, name string) {
	if step, ok := f.steps[name]; ok {
		step.Reset(state, true, true)
	}
	if prev, ok := f.PrevStep(name); ok {
		prev.Reset(state, true, true)
	}
}
