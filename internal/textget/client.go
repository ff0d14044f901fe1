// Package textget turns external sources into LLM-ready plain text.
// It covers web pages, Jira issues and JQL result sets, Confluence
// pages and uploaded files, all dispatched by extraction method tag.
package textget

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/aretw0/flowdeck/internal/logging"
	"github.com/aretw0/flowdeck/pkg/ports"
)

// Config holds the Atlassian endpoint settings shared by the Jira and
// Confluence retrievers.
type Config struct {
	JiraURL         string // base URL, e.g. https://acme.atlassian.net
	JiraAPIEndpoint string // REST prefix, e.g. /rest/api/3
	Email           string
	APIToken        string
}

// Client implements ports.Extractor over HTTP and storage-backed files.
type Client struct {
	cfg     Config
	http    *http.Client
	storage ports.Storage
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithStorage sets the storage area that uploaded files are read from.
func WithStorage(storage ports.Storage) Option {
	return func(c *Client) { c.storage = storage }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a Client.
func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: 60 * time.Second},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Extract dispatches src to the retriever named by method.
func (c *Client) Extract(ctx context.Context, method string, src any) (string, error) {
	switch method {
	case ports.ExtractFromMultilineText:
		return srcString(method, src)
	case ports.ExtractFromURL:
		text, err := srcString(method, src)
		if err != nil {
			return "", err
		}
		return c.FromURLs(ctx, text)
	case ports.ExtractFromJiraIssue:
		text, err := srcString(method, src)
		if err != nil {
			return "", err
		}
		return c.FromJiraIssue(ctx, text)
	case ports.ExtractFromJiraIssues:
		text, err := srcString(method, src)
		if err != nil {
			return "", err
		}
		return c.FromJiraIssues(ctx, text)
	case ports.ExtractFromJQLQuery:
		text, err := srcString(method, src)
		if err != nil {
			return "", err
		}
		return c.FromJQLQuery(ctx, text)
	case ports.ExtractFromConfluencePage, ports.ExtractFromConfluencePages:
		text, err := srcString(method, src)
		if err != nil {
			return "", err
		}
		return c.FromConfluencePages(ctx, text)
	case ports.ExtractFromUploadedFiles:
		return c.FromUploadedFiles(ctx, src)
	default:
		return "", fmt.Errorf("unsupported extraction method %q", method)
	}
}

func srcString(method string, src any) (string, error) {
	text, ok := src.(string)
	if !ok {
		return "", fmt.Errorf("method %q expects a text source, got %T", method, src)
	}
	return text, nil
}

var listSeparator = regexp.MustCompile(`[,\s]+`)

// splitList splits a source string on whitespace or commas.
func splitList(src string) []string {
	var parts []string
	for _, part := range listSeparator.Split(strings.TrimSpace(src), -1) {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

// nestedValue walks a decoded JSON object by dot-separated path,
// returning "N/A" for anything missing.
func nestedValue(obj any, path string) any {
	return nestedValueOr(obj, path, "N/A")
}

func nestedValueOr(obj any, path string, fallback any) any {
	current := obj
	for _, key := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return fallback
		}
		current = m[key]
	}
	if current == nil {
		return fallback
	}
	return current
}
