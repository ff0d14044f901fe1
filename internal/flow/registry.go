package flow

import "fmt"

// Factory builds one step variant from its configuration.
type Factory func(cfg StepConfig, opts Options, flow *Flow) (Step, error)

// Registry maps the class names used in template files to step variant
// factories. Populated by explicit registration, never by reflection.
type Registry map[string]Factory

// Register adds a variant under its class name.
func (r Registry) Register(class string, factory Factory) {
	r[class] = factory
}

// New instantiates the variant named by cfg.Class.
func (r Registry) New(cfg StepConfig, opts Options, flow *Flow) (Step, error) {
	factory, ok := r[cfg.Class]
	if !ok {
		return nil, &ConfigError{Step: cfg.Name, Reason: fmt.Sprintf("unknown step class %q", cfg.Class)}
	}
	return factory(cfg, opts, flow)
}

// DefaultRegistry returns the built-in step variants under the class
// names template files use.
func DefaultRegistry() Registry {
	r := make(Registry)
	r.Register("ChooseLLMFlavour", newChooseModelStep)
	r.Register("DefineInputDataStep", newDefineInputsStep)
	r.Register("RetrieveDataStep", newRetrieveDataStep)
	r.Register("SelectPromptFragmentsStep", newSelectFragmentsStep)
	r.Register("FormatPromptStep", newFormatPromptStep)
	r.Register("ChatLoopStep", newChatLoopStep)
	return r
}
