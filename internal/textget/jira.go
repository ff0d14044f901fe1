package textget

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	jqlPageSize   = 50
	jqlMaxResults = 100
)

var jqlFields = []string{
	"summary", "status", "priority", "created", "updated",
	"reporter", "assignee", "description", "comment", "issuelinks",
}

// FromJiraIssue fetches one issue with its comments and formats it.
func (c *Client) FromJiraIssue(ctx context.Context, issueKey string) (string, error) {
	key := strings.TrimSpace(issueKey)
	base := c.cfg.JiraURL + c.cfg.JiraAPIEndpoint

	issue, err := c.jiraRequest(ctx, http.MethodGet, base+"/issue/"+key, nil)
	if err != nil {
		return "", fmt.Errorf("could not get data for %q: %w", key, err)
	}
	commentsDoc, err := c.jiraRequest(ctx, http.MethodGet, base+"/issue/"+key+"/comment", nil)
	if err != nil {
		return "", fmt.Errorf("could not get data for %q: %w", key, err)
	}
	comments, _ := commentsDoc["comments"].([]any)
	return c.formatIssue(issue, comments, key), nil
}

// FromJiraIssues fetches each whitespace or comma separated issue key.
func (c *Client) FromJiraIssues(ctx context.Context, issueKeys string) (string, error) {
	var b strings.Builder
	for _, key := range splitList(issueKeys) {
		text, err := c.FromJiraIssue(ctx, key)
		if err != nil {
			return "", err
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	}
	return b.String(), nil
}

// FromJQLQuery runs a JQL search and formats the result set. Results
// are paged and capped so a broad query cannot flood the prompt.
func (c *Client) FromJQLQuery(ctx context.Context, jql string) (string, error) {
	base := c.cfg.JiraURL + c.cfg.JiraAPIEndpoint

	var all []any
	startAt := 0
	for len(all) < jqlMaxResults {
		payload, err := json.Marshal(map[string]any{
			"jql":        jql,
			"startAt":    startAt,
			"maxResults": jqlPageSize,
			"fields":     jqlFields,
		})
		if err != nil {
			return "", err
		}
		page, err := c.jiraRequest(ctx, http.MethodPost, base+"/search", payload)
		if err != nil {
			return "", fmt.Errorf("executing JQL query: %w", err)
		}
		issues, _ := page["issues"].([]any)
		all = append(all, issues...)

		total := asInt(page["total"])
		if len(issues) < jqlPageSize || len(all) >= total {
			break
		}
		startAt += jqlPageSize
	}
	if len(all) > jqlMaxResults {
		all = all[:jqlMaxResults]
	}

	var b strings.Builder
	for _, item := range all {
		issue, ok := item.(map[string]any)
		if !ok {
			continue
		}
		comments, _ := nestedValue(issue, "fields.comment.comments").([]any)
		b.WriteString(c.formatIssue(issue, comments, jql))
		b.WriteString("\n---\n")
	}
	return strings.TrimSpace(b.String()), nil
}

func (c *Client) jiraRequest(ctx context.Context, method, url string, body []byte) (map[string]any, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.cfg.Email, c.cfg.APIToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s", resp.Status)
	}

	var doc map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// formatIssue renders one issue plus its comments and links as plain
// text. source labels warnings about unrecognized description nodes.
func (c *Client) formatIssue(issue map[string]any, comments []any, source string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Issue Key: %v\n", nestedValue(issue, "key"))
	fmt.Fprintf(&b, "Summary: %v\n", nestedValue(issue, "fields.summary"))
	fmt.Fprintf(&b, "Status: %v\n", nestedValue(issue, "fields.status.name"))
	fmt.Fprintf(&b, "Priority: %v\n", nestedValue(issue, "fields.priority.name"))
	fmt.Fprintf(&b, "Created: %v\n", nestedValue(issue, "fields.created"))
	fmt.Fprintf(&b, "Updated: %v\n", nestedValue(issue, "fields.updated"))
	fmt.Fprintf(&b, "\nReporter: %v\n", nestedValue(issue, "fields.reporter.displayName"))
	fmt.Fprintf(&b, "\nAssignee: %v\n", nestedValue(issue, "fields.assignee.displayName"))
	fmt.Fprintf(&b, "\nDescription:\n%s\n", c.richText(issue["fields"], "description", source))

	b.WriteString("\nComments:\n")
	for _, item := range comments {
		comment, ok := item.(map[string]any)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "Author: %v\n", nestedValue(comment, "author.displayName"))
		fmt.Fprintf(&b, "Created: %v\n", nestedValue(comment, "created"))
		fmt.Fprintf(&b, "%s\n", c.richText(comment, "body", source))
	}

	b.WriteString("Linked Issues:\n")
	links, _ := nestedValue(issue, "fields.issuelinks").([]any)
	if len(links) == 0 {
		b.WriteString("No linked issues found.\n")
	}
	for _, item := range links {
		link, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if linked, ok := link["outwardIssue"].(map[string]any); ok {
			fmt.Fprintf(&b, "- %v %v: %v\n",
				nestedValueOr(link, "type.outward", "Linked to"),
				nestedValue(linked, "key"), nestedValue(linked, "fields.summary"))
		} else if linked, ok := link["inwardIssue"].(map[string]any); ok {
			fmt.Fprintf(&b, "- %v %v: %v\n",
				nestedValueOr(link, "type.inward", "Linked from"),
				nestedValue(linked, "key"), nestedValue(linked, "fields.summary"))
		}
	}
	return strings.TrimSpace(b.String())
}

// richText flattens the Atlassian document format node under container[key]
// to plain text. Paragraphs recurse, hard breaks become newlines, anything
// else is skipped with a warning.
func (c *Client) richText(container any, key string, source string) string {
	obj, ok := container.(map[string]any)
	if !ok {
		return ""
	}
	doc, ok := obj[key].(map[string]any)
	if !ok {
		return ""
	}

	var b strings.Builder
	var walk func(items []any)
	walk = func(items []any) {
		for _, item := range items {
			node, ok := item.(map[string]any)
			if !ok {
				continue
			}
			switch node["type"] {
			case "paragraph":
				children, _ := node["content"].([]any)
				walk(children)
			case "text":
				text, _ := node["text"].(string)
				b.WriteString(text)
			case "hardBreak":
				b.WriteString("\n")
			default:
				c.logger.Warn("unknown rich text node", "type", node["type"], "source", source)
			}
		}
	}
	content, _ := doc["content"].([]any)
	walk(content)
	return strings.TrimSpace(b.String())
}

func asInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}
