package ports

import (
	"github.com/aretw0/flowdeck/pkg/domain"
)

// StepView describes how a step's container should be presented on the
// current render pass. It is computed by the orchestrator from the step's
// status and the configured policy options.
type StepView struct {
	Name              string
	Heading           string
	Status            domain.Status
	Hidden            bool
	Expanded          bool
	StatusDescription string
}

// Renderer is the "show widget, get value" capability of the host surface.
//
// Widget methods are pure exchanges: the caller passes the current value
// (usually read from the session state) and receives the value after any
// user interaction this pass. Persisting the value back into the state is
// the caller's job. A widget key identifies the widget instance so that
// scripted and remote surfaces can route queued inputs.
type Renderer interface {
	// Title renders the flow title; Markdown renders formatted body text.
	Title(text string)
	Markdown(text string)
	Write(text string)
	Warning(text string)

	// Container renders a step's box and invokes body for its contents
	// unless the view is hidden.
	Container(view StepView, body func() error) error

	// SelectBox shows a single-choice selector and returns the chosen
	// option. current must be one of options.
	SelectBox(label string, options []string, current string, key string) string

	// TextInput and TextArea capture free text; they return the value as
	// of this pass.
	TextInput(label string, current string, key string) string
	TextArea(label string, current string, key string) string

	// Button reports whether the named action was triggered this pass.
	Button(label string, key string) bool

	// ChatInput captures the next chat message; ok is false when the user
	// submitted nothing this pass.
	ChatInput(placeholder string, key string) (value string, ok bool)

	// ChatMessage renders one transcript entry.
	ChatMessage(role string, content string)

	// FileUpload captures a set of files; it returns the raw contents so
	// the caller can content-address and persist them.
	FileUpload(label string, types []string, key string) []FilePayload

	// Busy runs fn while showing a busy indicator. The call is synchronous;
	// the pass blocks until fn returns.
	Busy(label string, fn func() error) error
}

// FilePayload is a file captured by an upload widget before persistence.
type FilePayload struct {
	Name        string
	ContentType string
	Content     []byte
}
