package flow

import (
	"fmt"

	"github.com/aretw0/flowdeck/internal/template"
)

// ConfigError reports a problem in a flow configuration. It names the
// offending step and dependency alias where one applies.
type ConfigError struct {
	Step       string
	Dependency string
	Reason     string
}

func (e *ConfigError) Error() string {
	msg := e.Reason
	if e.Dependency != "" {
		msg = fmt.Sprintf("dependency %q: %s", e.Dependency, msg)
	}
	if e.Step != "" {
		msg = fmt.Sprintf("step %q: %s", e.Step, msg)
	}
	return "flow config: " + msg
}

// StepConfig is one entry of the steps mapping. Raw keeps the full step
// mapping so variants can read their type-specific keys.
type StepConfig struct {
	Name      string
	Class     string
	Heading   string
	DependsOn map[string]string
	Raw       *template.Mapping
}

// Value returns a raw config value by key.
func (c StepConfig) Value(key string) (any, bool) {
	if c.Raw == nil {
		return nil, false
	}
	return c.Raw.Get(key)
}

// String returns a raw string config value, or def when absent.
func (c StepConfig) String(key, def string) string {
	if v, ok := c.Value(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns a raw bool config value, or def when absent.
func (c StepConfig) Bool(key string, def bool) bool {
	if v, ok := c.Value(key); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Mapping returns a raw mapping config value, or nil when absent.
func (c StepConfig) Mapping(key string) *template.Mapping {
	if v, ok := c.Value(key); ok {
		if m, ok := v.(*template.Mapping); ok {
			return m
		}
	}
	return nil
}

// Config is a parsed flow configuration: a title, a description and an
// ordered list of step configurations. Declaration order is execution
// order.
type Config struct {
	Title       string
	Description string
	Steps       []StepConfig
	Raw         *template.Mapping
}

// Step returns the named step config.
func (c *Config) Step(name string) (StepConfig, bool) {
	for _, s := range c.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return StepConfig{}, false
}

// ParseConfig validates and extracts a flow configuration from a resolved
// template document.
func ParseConfig(doc *template.Mapping) (*Config, error) {
	cfg := &Config{Raw: doc}
	for _, key := range []string{"title", "description", "steps"} {
		if _, ok := doc.Get(key); !ok {
			return nil, &ConfigError{Reason: fmt.Sprintf("missing required key %q", key)}
		}
	}
	if title, ok := doc.Get("title"); ok {
		cfg.Title, _ = title.(string)
	}
	if desc, ok := doc.Get("description"); ok {
		cfg.Description, _ = desc.(string)
	}

	stepsValue, _ := doc.Get("steps")
	steps, ok := stepsValue.(*template.Mapping)
	if !ok {
		return nil, &ConfigError{Reason: "steps must be a mapping of step name to step config"}
	}

	for pair := steps.Oldest(); pair != nil; pair = pair.Next() {
		raw, ok := pair.Value.(*template.Mapping)
		if !ok {
			return nil, &ConfigError{Step: pair.Key, Reason: "step config must be a mapping"}
		}
		step, err := parseStepConfig(pair.Key, raw)
		if err != nil {
			return nil, err
		}
		cfg.Steps = append(cfg.Steps, step)
	}
	return cfg, nil
}

func parseStepConfig(name string, raw *template.Mapping) (StepConfig, error) {
	step := StepConfig{Name: name, Raw: raw}

	classValue, ok := raw.Get("class")
	if !ok {
		return step, &ConfigError{Step: name, Reason: "the class attribute is missing"}
	}
	step.Class, ok = classValue.(string)
	if !ok {
		return step, &ConfigError{Step: name, Reason: "the class attribute must be a string"}
	}

	step.Heading = step.String("heading", "")

	if depsValue, ok := raw.Get("depends_on"); ok {
		deps, ok := depsValue.(*template.Mapping)
		if !ok {
			return step, &ConfigError{Step: name, Reason: "depends_on must be a mapping of alias to dependency path"}
		}
		step.DependsOn = make(map[string]string, deps.Len())
		for pair := deps.Oldest(); pair != nil; pair = pair.Next() {
			path, ok := pair.Value.(string)
			if !ok {
				return step, &ConfigError{
					Step:       name,
					Dependency: pair.Key,
					Reason:     "expecting a dot separated dependency path starting with a step name",
				}
			}
			step.DependsOn[pair.Key] = path
		}
	}
	return step, nil
}
