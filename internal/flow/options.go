package flow

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/flowdeck/internal/template"
)

// Visibility policies.
const (
	VisibilityAlways          = "always"
	VisibilityNever           = "never"
	VisibilityShowAfterActive = "showAfterActive"
)

// Expandability policies.
const (
	ExpandAlways         = "always"
	ExpandNever          = "never"
	ExpandOnlyWhenActive = "expandOnlyWhenActive"
)

// Status-description policies.
const (
	StatusDescriptionAlways             = "always"
	StatusDescriptionNever              = "never"
	StatusDescriptionWaitingAndEnqueued = "waitingAndEnqueuedOnly"
)

// Options are the per-step presentation and gating policies. Flow-wide
// defaults come from the top-level step_options mapping; a step's own
// options mapping overrides them key by key.
type Options struct {
	Visibility            string `mapstructure:"visibility"`
	Expandability         string `mapstructure:"expandability"`
	ShowStatusDescription string `mapstructure:"show_status_description"`
	RequireStartAck       bool   `mapstructure:"require_start_ack"`
	RequireConfirmChanges bool   `mapstructure:"require_confirm_changes"`
}

func defaultOptions() Options {
	return Options{
		Visibility:            VisibilityAlways,
		Expandability:         ExpandOnlyWhenActive,
		ShowStatusDescription: StatusDescriptionAlways,
	}
}

// resolveOptions layers the flow-wide step_options and the step's own
// options onto the defaults. Keys absent from a layer leave the value
// from the layer below untouched.
func resolveOptions(flowConfig *template.Mapping, step StepConfig) (Options, error) {
	opts := defaultOptions()

	if flowConfig != nil {
		if v, ok := flowConfig.Get("step_options"); ok {
			if err := decodeOptions(v, &opts); err != nil {
				return opts, &ConfigError{Reason: fmt.Sprintf("step_options: %v", err)}
			}
		}
	}
	if v, ok := step.Value("options"); ok {
		if err := decodeOptions(v, &opts); err != nil {
			return opts, &ConfigError{Step: step.Name, Reason: fmt.Sprintf("options: %v", err)}
		}
	}
	return opts, nil
}

func decodeOptions(value any, opts *Options) error {
	plain, ok := template.ToPlain(value).(map[string]any)
	if !ok {
		return fmt.Errorf("expected a mapping, got %T", value)
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      opts,
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(plain)
}
