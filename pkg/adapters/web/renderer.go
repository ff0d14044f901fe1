package web

import (
	"github.com/aretw0/flowdeck/pkg/ports"
)

// Widget is one rendered widget in a pass response.
type Widget struct {
	Type    string   `json:"type"`
	Key     string   `json:"key,omitempty"`
	Label   string   `json:"label,omitempty"`
	Options []string `json:"options,omitempty"`
	Value   string   `json:"value,omitempty"`
	Role    string   `json:"role,omitempty"`
}

// StepView is one step container in a pass response.
type StepView struct {
	Name              string   `json:"name"`
	Heading           string   `json:"heading"`
	Status            string   `json:"status"`
	Hidden            bool     `json:"hidden"`
	Expanded          bool     `json:"expanded"`
	StatusDescription string   `json:"status_description,omitempty"`
	Widgets           []Widget `json:"widgets,omitempty"`
}

// FileUploadRequest is a file submitted with a pass request.
type FileUploadRequest struct {
	Name        string `json:"name"`
	ContentType string `json:"type"`
	Content     []byte `json:"content"` // base64 in JSON
}

// passRenderer implements ports.Renderer for one stateless HTTP pass:
// widget values come from the request and the rendered widget tree goes
// back in the response. The flow may render several passes per request;
// Title starts a pass, so only the last pass's tree survives.
type passRenderer struct {
	inputs map[string]string
	clicks map[string]int
	chat   []string
	files  map[string][]FileUploadRequest

	title   string
	header  []Widget
	views   []*StepView
	current *StepView
}

func newPassRenderer() *passRenderer {
	return &passRenderer{
		inputs: make(map[string]string),
		clicks: make(map[string]int),
		files:  make(map[string][]FileUploadRequest),
	}
}

func (r *passRenderer) record(w Widget) {
	if r.current != nil {
		r.current.Widgets = append(r.current.Widgets, w)
		return
	}
	r.header = append(r.header, w)
}

func (r *passRenderer) Title(text string) {
	r.title = text
	r.header = nil
	r.views = nil
}

func (r *passRenderer) Markdown(text string) {
	r.record(Widget{Type: "markdown", Value: text})
}

func (r *passRenderer) Write(text string) {
	r.record(Widget{Type: "text", Value: text})
}

func (r *passRenderer) Warning(text string) {
	r.record(Widget{Type: "warning", Value: text})
}

func (r *passRenderer) Container(view ports.StepView, body func() error) error {
	v := &StepView{
		Name:              view.Name,
		Heading:           view.Heading,
		Status:            string(view.Status),
		Hidden:            view.Hidden,
		Expanded:          view.Expanded,
		StatusDescription: view.StatusDescription,
	}
	r.views = append(r.views, v)
	if view.Hidden {
		return nil
	}
	r.current = v
	defer func() { r.current = nil }()
	return body()
}

func (r *passRenderer) SelectBox(label string, options []string, current string, key string) string {
	value := current
	if v, ok := r.inputs[key]; ok {
		value = v
	}
	if value == "" && len(options) > 0 {
		value = options[0]
	}
	r.record(Widget{Type: "select", Key: key, Label: label, Options: options, Value: value})
	return value
}

func (r *passRenderer) TextInput(label string, current string, key string) string {
	value := current
	if v, ok := r.inputs[key]; ok {
		value = v
	}
	r.record(Widget{Type: "text_input", Key: key, Label: label, Value: value})
	return value
}

func (r *passRenderer) TextArea(label string, current string, key string) string {
	value := current
	if v, ok := r.inputs[key]; ok {
		value = v
	}
	r.record(Widget{Type: "text_area", Key: key, Label: label, Value: value})
	return value
}

func (r *passRenderer) Button(label string, key string) bool {
	r.record(Widget{Type: "button", Key: key, Label: label})
	if r.clicks[key] > 0 {
		r.clicks[key]--
		return true
	}
	return false
}

func (r *passRenderer) ChatInput(placeholder string, key string) (string, bool) {
	r.record(Widget{Type: "chat_input", Key: key, Label: placeholder})
	if len(r.chat) == 0 {
		return "", false
	}
	next := r.chat[0]
	r.chat = r.chat[1:]
	return next, true
}

func (r *passRenderer) ChatMessage(role string, content string) {
	r.record(Widget{Type: "chat_message", Role: role, Value: content})
}

func (r *passRenderer) FileUpload(label string, types []string, key string) []ports.FilePayload {
	r.record(Widget{Type: "file_upload", Key: key, Label: label, Options: types})
	uploads := r.files[key]
	delete(r.files, key)
	payloads := make([]ports.FilePayload, 0, len(uploads))
	for _, upload := range uploads {
		payloads = append(payloads, ports.FilePayload{
			Name:        upload.Name,
			ContentType: upload.ContentType,
			Content:     upload.Content,
		})
	}
	return payloads
}

func (r *passRenderer) Busy(_ string, fn func() error) error {
	return fn()
}
