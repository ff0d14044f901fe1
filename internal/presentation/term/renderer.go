// Package term implements ports.Renderer for an interactive terminal.
// Markdown is rendered with glamour, status badges with termenv, and
// widget values are prompted for on standard input.
package term

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/aretw0/flowdeck/pkg/domain"
	"github.com/aretw0/flowdeck/pkg/ports"
)

// contentTypes maps upload extensions to MIME types.
var contentTypes = map[string]string{
	".txt":  "text/plain",
	".md":   "text/markdown",
	".json": "application/json",
	".csv":  "text/csv",
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// Renderer prompts on a terminal. Widgets are only prompted for when
// they have no value yet; answered widgets echo their current value so
// repeated render passes do not re-ask.
type Renderer struct {
	in       *bufio.Reader
	out      io.Writer
	profile  termenv.Profile
	markdown *glamour.TermRenderer
	prompted map[string]bool
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithIO replaces the input and output streams.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(r *Renderer) {
		r.in = bufio.NewReader(in)
		r.out = out
	}
}

// New creates a terminal renderer on stdin/stdout.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		in:       bufio.NewReader(os.Stdin),
		out:      os.Stdout,
		profile:  termenv.ColorProfile(),
		prompted: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}

	width := 100
	if fd := int(os.Stdout.Fd()); term.IsTerminal(fd) {
		if w, _, err := term.GetSize(fd); err == nil && w > 0 {
			width = w
		}
	} else {
		r.profile = termenv.Ascii
	}
	r.markdown, _ = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	return r
}

func (r *Renderer) Title(text string) {
	styled := termenv.String(text).Foreground(r.profile.Color("#818cf8")).Bold()
	fmt.Fprintf(r.out, "\n%s\n\n", styled)
}

func (r *Renderer) Markdown(text string) {
	if r.markdown != nil {
		if rendered, err := r.markdown.Render(text); err == nil {
			fmt.Fprint(r.out, rendered)
			return
		}
	}
	fmt.Fprintln(r.out, text)
}

func (r *Renderer) Write(text string) {
	fmt.Fprintln(r.out, text)
}

func (r *Renderer) Warning(text string) {
	styled := termenv.String(text).Foreground(r.profile.Color("#fb7185"))
	fmt.Fprintln(r.out, styled)
}

func (r *Renderer) Container(view ports.StepView, body func() error) error {
	if view.Hidden {
		return nil
	}
	badge := r.statusBadge(view.Status)
	fmt.Fprintf(r.out, "\n%s %s\n", badge, termenv.String(view.Heading).Bold())
	if view.StatusDescription != "" {
		fmt.Fprintf(r.out, "  %s\n", view.StatusDescription)
	}
	return body()
}

func (r *Renderer) SelectBox(label string, options []string, current string, key string) string {
	if r.prompted[key] && current != "" {
		return current
	}
	r.prompted[key] = true

	fmt.Fprintf(r.out, "%s\n", label)
	defaultIdx := 0
	for i, option := range options {
		marker := " "
		if option == current {
			marker = "*"
			defaultIdx = i
		}
		fmt.Fprintf(r.out, " %s %d) %s\n", marker, i+1, option)
	}
	line := r.readLine(fmt.Sprintf("choice [%d]: ", defaultIdx+1))
	if line == "" {
		if current != "" {
			return current
		}
		return options[0]
	}
	if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(options) {
		return options[n-1]
	}
	return options[defaultIdx]
}

func (r *Renderer) TextInput(label string, current string, key string) string {
	if r.prompted[key] && current != "" {
		return current
	}
	r.prompted[key] = true

	suffix := ""
	if current != "" {
		suffix = fmt.Sprintf(" [%s]", current)
	}
	line := r.readLine(fmt.Sprintf("%s%s: ", label, suffix))
	if line == "" {
		return current
	}
	return line
}

// TextArea reads lines until a lone "." terminator.
func (r *Renderer) TextArea(label string, current string, key string) string {
	if r.prompted[key] && current != "" {
		return current
	}
	r.prompted[key] = true

	fmt.Fprintf(r.out, "%s (end with a single '.'):\n", label)
	var lines []string
	for {
		line, err := r.in.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line == "." || (err != nil && line == "") {
			break
		}
		lines = append(lines, line)
		if err != nil {
			break
		}
	}
	if len(lines) == 0 {
		return current
	}
	return strings.Join(lines, "\n")
}

func (r *Renderer) Button(label string, key string) bool {
	if r.prompted[key] {
		return false
	}
	r.prompted[key] = true
	answer := r.readLine(fmt.Sprintf("%s? [y/N]: ", label))
	return strings.EqualFold(answer, "y") || strings.EqualFold(answer, "yes")
}

func (r *Renderer) ChatInput(placeholder string, key string) (string, bool) {
	line := r.readLine(fmt.Sprintf("%s > ", placeholder))
	if line == "" {
		return "", false
	}
	return line, true
}

func (r *Renderer) ChatMessage(role string, content string) {
	color := "#34d399"
	if role == "user" {
		color = "#60a5fa"
	}
	styled := termenv.String(role + ":").Foreground(r.profile.Color(color)).Bold()
	fmt.Fprintf(r.out, "%s\n", styled)
	r.Markdown(content)
}

// FileUpload reads comma separated local paths and loads their contents.
func (r *Renderer) FileUpload(label string, types []string, key string) []ports.FilePayload {
	if r.prompted[key] {
		return nil
	}
	r.prompted[key] = true

	line := r.readLine(fmt.Sprintf("%s (%s), comma separated paths: ", label, strings.Join(types, ", ")))
	if line == "" {
		return nil
	}
	var payloads []ports.FilePayload
	for _, part := range strings.Split(line, ",") {
		path := strings.TrimSpace(part)
		if path == "" {
			continue
		}
		content, err := os.ReadFile(path)
		if err != nil {
			r.Warning(fmt.Sprintf("could not read %s: %v", path, err))
			continue
		}
		name := filepath.Base(path)
		contentType := contentTypes[strings.ToLower(filepath.Ext(path))]
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		payloads = append(payloads, ports.FilePayload{Name: name, ContentType: contentType, Content: content})
	}
	return payloads
}

func (r *Renderer) Busy(label string, fn func() error) error {
	fmt.Fprintf(r.out, "%s\n", termenv.String(label).Faint())
	return fn()
}

func (r *Renderer) readLine(prompt string) string {
	fmt.Fprint(r.out, prompt)
	line, _ := r.in.ReadString('\n')
	return strings.TrimSpace(line)
}

func (r *Renderer) statusBadge(status domain.Status) termenv.Style {
	var label, color string
	switch {
	case status == domain.StatusDone:
		label, color = "[done]", "#34d399"
	case status.Active():
		label, color = "[active]", "#60a5fa"
	case status == domain.StatusEnqueued:
		label, color = "[queued]", "#fbbf24"
	default:
		label, color = "[waiting]", "#9ca3af"
	}
	return termenv.String(label).Foreground(r.profile.Color(color))
}
