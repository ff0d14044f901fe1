package flow

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/aretw0/flowdeck/pkg/ports"
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"']+`)

// ContextEnricher scans chat prompts for URLs and issue-tracker
// references and appends the referenced content, so the model sees the
// material the user is talking about.
type ContextEnricher struct {
	extractor    ports.Extractor
	jiraHost     string
	jiraProjects []string
	issuePattern *regexp.Regexp
}

// NewContextEnricher creates an enricher. jiraURL and projects configure
// issue-key recognition; both may be empty to disable it.
func NewContextEnricher(extractor ports.Extractor, jiraURL string, projects []string) *ContextEnricher {
	e := &ContextEnricher{extractor: extractor}
	if jiraURL != "" {
		if u, err := url.Parse(jiraURL); err == nil {
			e.jiraHost = u.Host
		}
	}
	for _, p := range projects {
		if p = strings.TrimSpace(p); p != "" {
			e.jiraProjects = append(e.jiraProjects, regexp.QuoteMeta(p))
		}
	}
	if len(e.jiraProjects) > 0 {
		e.issuePattern = regexp.MustCompile(`\b(?:` + strings.Join(e.jiraProjects, "|") + `)-\d+\b`)
	}
	return e
}

// Enrich appends the content behind every URL and recognized issue key
// in prompt. Issue-browse URLs on the configured Jira host are folded
// into the issue set instead of fetched as pages.
func (e *ContextEnricher) Enrich(ctx context.Context, prompt string) (string, error) {
	issues := make(map[string]bool)
	if e.issuePattern != nil {
		for _, key := range e.issuePattern.FindAllString(prompt, -1) {
			issues[key] = true
		}
	}

	var sections []string
	for _, raw := range urlPattern.FindAllString(prompt, -1) {
		parsed, err := url.Parse(raw)
		if err != nil {
			continue
		}
		if e.jiraHost != "" && parsed.Host == e.jiraHost {
			if strings.HasPrefix(parsed.Path, "/browse") {
				parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
				issues[parts[len(parts)-1]] = true
				continue
			}
			content, err := e.extractor.Extract(ctx, ports.ExtractFromConfluencePage, raw)
			if err != nil {
				return "", fmt.Errorf("retrieving %s: %w", raw, err)
			}
			sections = append(sections, fmt.Sprintf("Content from %s:\n%s", raw, content))
			continue
		}
		content, err := e.extractor.Extract(ctx, ports.ExtractFromURL, raw)
		if err != nil {
			return "", fmt.Errorf("retrieving %s: %w", raw, err)
		}
		sections = append(sections, fmt.Sprintf("Content from %s:\n%s", raw, content))
	}

	enriched := prompt
	if len(sections) > 0 {
		enriched += "\n\n" + strings.Join(sections, "\n\n")
	}
	if len(issues) > 0 {
		keys := make([]string, 0, len(issues))
		for key := range issues {
			keys = append(keys, key)
		}
		content, err := e.extractor.Extract(ctx, ports.ExtractFromJiraIssues, strings.Join(keys, " "))
		if err != nil {
			return "", fmt.Errorf("retrieving issues: %w", err)
		}
		enriched += "\n\n" + content
	}
	return enriched, nil
}
