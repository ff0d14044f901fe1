package flow

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/aretw0/flowdeck/internal/template"
	"github.com/aretw0/flowdeck/pkg/domain"
	"github.com/aretw0/flowdeck/pkg/ports"
)

// uploadFileTypes are the extensions the upload widget accepts.
var uploadFileTypes = []string{"pdf", "docx", "pptx", "txt", "xls", "xlsx", "csv"}

// inputMethods maps a data_defs slot type to its extraction method tag.
var inputMethods = map[string]string{
	"url":              ports.ExtractFromURL,
	"jira_issue":       ports.ExtractFromJiraIssue,
	"jira_issues":      ports.ExtractFromJiraIssues,
	"jira_jql_query":   ports.ExtractFromJQLQuery,
	"confluence_page":  ports.ExtractFromConfluencePage,
	"confluence_pages": ports.ExtractFromConfluencePages,
	"free_form_text":   ports.ExtractFromMultilineText,
	"uploaded_files":   ports.ExtractFromUploadedFiles,
}

// defineInputsStep captures the flow's input slots. Each slot in the
// data_defs mapping is typed and rendered with the matching widget; once
// every slot has a value the full slot map, annotated with the captured
// src and the extraction method tag, becomes the step's output.
type defineInputsStep struct {
	baseStep
	dataDefs *template.Mapping
}

func newDefineInputsStep(cfg StepConfig, opts Options, flow *Flow) (Step, error) {
	dataDefs := cfg.Mapping("data_defs")
	if dataDefs == nil {
		return nil, &ConfigError{Step: cfg.Name, Reason: "the data_defs attribute is missing"}
	}
	return &defineInputsStep{
		baseStep: newBaseStep(cfg, opts, flow, "Define the data inputs"),
		dataDefs: dataDefs,
	}, nil
}

// OutputSubkeys are the slot names declared in data_defs.
func (s *defineInputsStep) OutputSubkeys() []string {
	keys := make([]string, 0, s.dataDefs.Len())
	for pair := s.dataDefs.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

func (s *defineInputsStep) Perform(ctx context.Context, state *domain.State, _ domain.Status) error {
	showAllAtOnce := s.config.Bool("show_all_at_once", true)

	output := make(map[string]any, s.dataDefs.Len())
	allDefined := true
	for pair := s.dataDefs.Oldest(); pair != nil; pair = pair.Next() {
		// One-at-a-time mode stops exposing slots past the first empty one.
		if !showAllAtOnce && !allDefined {
			break
		}

		slotName := pair.Key
		def, ok := pair.Value.(*template.Mapping)
		if !ok {
			return &ConfigError{Step: s.name, Reason: fmt.Sprintf("data def %q must be a mapping", slotName)}
		}
		slotType, _ := valueString(def, "type")
		description, _ := valueString(def, "description")

		method, known := inputMethods[slotType]
		if !known {
			return &ConfigError{Step: s.name, Reason: fmt.Sprintf("unknown input type %q", slotType)}
		}

		var src any
		switch slotType {
		case "free_form_text", "confluence_pages":
			pkey := s.internalKey(true, slotName, slotType, "src")
			current, _ := state.Value(pkey).(string)
			value := s.flow.renderer.TextArea(description, current, pkey)
			state.Set(pkey, value)
			if value == "" {
				allDefined = false
			}
			src = value

		case "uploaded_files":
			files, err := s.captureUploads(ctx, state, slotName, slotType)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				allDefined = false
			}
			src = files

		default:
			pkey := s.internalKey(true, slotName, slotType, "src")
			current, _ := state.Value(pkey).(string)
			value := s.flow.renderer.TextInput(description, current, pkey)
			state.Set(pkey, value)
			if value == "" {
				allDefined = false
			}
			src = value
		}

		output[slotName] = map[string]any{
			"type":        slotType,
			"description": description,
			"src":         src,
			"method":      method,
		}
	}

	if allDefined {
		state.Set(s.OutputKey(), output)
	}
	return nil
}

// captureUploads shows the upload widget and persists any captured files
// content-addressed. The widget instance key is generated once and saved
// with the session, so stateless surfaces see the same key across
// requests while a fresh or reset session still gets a fresh uploader.
func (s *defineInputsStep) captureUploads(ctx context.Context, state *domain.State, slotName, slotType string) ([]any, error) {
	keyKey := s.internalKey(true, slotName, slotType, "widget")
	widgetKey, _ := state.Value(keyKey).(string)
	if widgetKey == "" {
		widgetKey = s.internalKey(false, slotName, slotType, "src") + "_" + uuid.NewString()
		state.Set(keyKey, widgetKey)
	}

	// Previously captured descriptors stay valid until reset.
	savedKey := s.internalKey(true, slotName, slotType, "files")
	saved, _ := state.Value(savedKey).([]any)

	payloads := s.flow.renderer.FileUpload("Choose files", uploadFileTypes, widgetKey)
	if len(payloads) == 0 {
		return saved, nil
	}
	if s.flow.uploads == nil {
		return nil, fmt.Errorf("step %q: no upload storage configured", s.name)
	}

	descriptors := make([]any, 0, len(payloads))
	for _, payload := range payloads {
		path, err := SaveUploadedFile(ctx, s.flow.uploads, payload)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, uploadedFileDescriptor(payload, path))
	}
	state.Set(savedKey, descriptors)
	return descriptors, nil
}

func valueString(m *template.Mapping, key string) (string, bool) {
	if v, ok := m.Get(key); ok {
		s, ok := v.(string)
		return s, ok
	}
	return "", false
}
