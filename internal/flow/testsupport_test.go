package flow

import (
	"context"
	"fmt"

	"github.com/aretw0/flowdeck/internal/template"
	"github.com/aretw0/flowdeck/pkg/domain"
	"github.com/aretw0/flowdeck/pkg/ports"
)

// scriptRenderer is a ports.Renderer fed with scripted widget values, so
// flows can be driven headlessly in tests.
type scriptRenderer struct {
	inputs  map[string]string // widget key -> scripted value
	selects map[string]string
	clicks  map[string]int // button key -> remaining presses
	chat    []string       // queued chat inputs
	files   map[string][]ports.FilePayload

	views   []ports.StepView
	lines   []string
	prompts []string // widget keys of rendered text inputs
}

func newScriptRenderer() *scriptRenderer {
	return &scriptRenderer{
		inputs:  make(map[string]string),
		selects: make(map[string]string),
		clicks:  make(map[string]int),
		files:   make(map[string][]ports.FilePayload),
	}
}

func (r *scriptRenderer) click(key string) { r.clicks[key]++ }

func (r *scriptRenderer) Title(string)        {}
func (r *scriptRenderer) Markdown(string)     {}
func (r *scriptRenderer) Write(text string)   { r.lines = append(r.lines, text) }
func (r *scriptRenderer) Warning(text string) { r.lines = append(r.lines, text) }

func (r *scriptRenderer) Container(view ports.StepView, body func() error) error {
	r.views = append(r.views, view)
	if view.Hidden {
		return nil
	}
	return body()
}

func (r *scriptRenderer) SelectBox(_ string, options []string, current string, key string) string {
	if v, ok := r.selects[key]; ok {
		return v
	}
	if current != "" {
		return current
	}
	return options[0]
}

func (r *scriptRenderer) TextInput(_ string, current string, key string) string {
	r.prompts = append(r.prompts, key)
	if v, ok := r.inputs[key]; ok {
		return v
	}
	return current
}

func (r *scriptRenderer) TextArea(label string, current string, key string) string {
	return r.TextInput(label, current, key)
}

func (r *scriptRenderer) Button(_ string, key string) bool {
	if r.clicks[key] > 0 {
		r.clicks[key]--
		return true
	}
	return false
}

func (r *scriptRenderer) ChatInput(string, string) (string, bool) {
	if len(r.chat) == 0 {
		return "", false
	}
	next := r.chat[0]
	r.chat = r.chat[1:]
	return next, true
}

func (r *scriptRenderer) ChatMessage(role, content string) {
	r.lines = append(r.lines, role+": "+content)
}

func (r *scriptRenderer) FileUpload(_ string, _ []string, key string) []ports.FilePayload {
	return r.files[key]
}

func (r *scriptRenderer) Busy(_ string, fn func() error) error { return fn() }

// scriptExtractor resolves every extraction from a canned method+src map.
type scriptExtractor struct {
	texts map[string]string // "<method>|<src>" -> text
	fail  map[string]error
}

func newScriptExtractor() *scriptExtractor {
	return &scriptExtractor{texts: make(map[string]string), fail: make(map[string]error)}
}

func (e *scriptExtractor) Extract(_ context.Context, method string, src any) (string, error) {
	key := fmt.Sprintf("%s|%v", method, src)
	if err, ok := e.fail[key]; ok {
		return "", err
	}
	if text, ok := e.texts[key]; ok {
		return text, nil
	}
	return "", fmt.Errorf("no text for %s", key)
}

// scriptModel echoes a canned response.
type scriptModel struct {
	response   string
	invoked    int
	lastSystem string
	lastHuman  string
}

func (m *scriptModel) Invoke(_ context.Context, _ string) (string, error) {
	m.invoked++
	return m.response, nil
}

func (m *scriptModel) InvokeWithHistory(_ context.Context, system, human string, _ []domain.Message) (string, error) {
	m.invoked++
	m.lastSystem = system
	m.lastHuman = human
	return m.response, nil
}

// scriptCatalog serves one model under any number of names.
type scriptCatalog struct {
	names []string
	model *scriptModel
}

func (c *scriptCatalog) Choices() []domain.ModelChoice {
	choices := make([]domain.ModelChoice, len(c.names))
	for i, name := range c.names {
		choices[i] = domain.ModelChoice{Name: name}
	}
	return choices
}

func (c *scriptCatalog) Model(string) (ports.ChatModel, error) {
	return c.model, nil
}

// parseFlowConfig builds a Config from YAML text.
func parseFlowConfig(text string) (*Config, error) {
	doc, err := template.ParseDocument(text)
	if err != nil {
		return nil, err
	}
	resolved, err := template.NewResolver().Resolve(doc)
	if err != nil {
		return nil, err
	}
	return ParseConfig(resolved)
}
