package domain

// ModelChoice describes one named chat model configuration from the
// catalog: a human readable name, the provider model id and the invocation
// parameters (temperature, max tokens, ...).
type ModelChoice struct {
	Name        string         `json:"name" mapstructure:"name"`
	Description string         `json:"description" mapstructure:"description"`
	ModelID     string         `json:"model_id" mapstructure:"model_id"`
	Params      map[string]any `json:"params,omitempty" mapstructure:"params"`
}

// Message is one entry of a chat transcript. Length, when non-zero, is the
// visible length of the content: retrieval context appended to a prompt is
// stored but trimmed off when the transcript is displayed.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Length  int    `json:"length,omitempty"`
}

// VisibleContent returns the content truncated to the visible length tag.
func (m Message) VisibleContent() string {
	if m.Length > 0 && m.Length < len(m.Content) {
		return m.Content[:m.Length]
	}
	return m.Content
}

// UploadedFile describes a file captured by an upload widget and persisted
// to the upload area under a content-addressed name.
type UploadedFile struct {
	Name        string `json:"name" mapstructure:"name"`
	ContentType string `json:"type" mapstructure:"type"`
	Path        string `json:"path" mapstructure:"path"`
}
