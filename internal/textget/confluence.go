package textget

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	runsOfSpace    = regexp.MustCompile(`[ \t]+`)
	runsOfNewlines = regexp.MustCompile(`\n{3,}`)
)

type pageLink struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// FromConfluencePage fetches a page by URL or numeric id and renders
// its content, metadata and links as plain text.
func (c *Client) FromConfluencePage(ctx context.Context, pageRef string) (string, error) {
	pageRef = strings.TrimSpace(pageRef)
	pageID := pageRef
	if strings.HasPrefix(pageRef, "http") {
		id, err := confluencePageID(pageRef)
		if err != nil {
			return "", err
		}
		pageID = id
	}

	endpoint := fmt.Sprintf("%s/wiki/rest/api/content/%s?expand=body.view,version,metadata.labels", c.cfg.JiraURL, pageID)
	page, err := c.jiraRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("could not get page %q: %w", pageRef, err)
	}

	bodyHTML, _ := nestedValue(page, "body.view.value").(string)
	doc, err := html.Parse(strings.NewReader(bodyHTML))
	if err != nil {
		return "", fmt.Errorf("parsing page %q: %w", pageRef, err)
	}

	content := renderConfluenceBody(doc)
	content = runsOfSpace.ReplaceAllString(content, " ")
	content = runsOfNewlines.ReplaceAllString(content, "\n\n")

	links, err := json.MarshalIndent(collectLinks(doc, pageRef), "", "  ")
	if err != nil {
		return "", err
	}

	var labels []string
	if results, ok := nestedValue(page, "metadata.labels.results").([]any); ok {
		for _, item := range results {
			if label, ok := item.(map[string]any); ok {
				if name, ok := label["name"].(string); ok {
					labels = append(labels, name)
				}
			}
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Title: %v\n", nestedValue(page, "title"))
	fmt.Fprintf(&b, "Author: %v\n", nestedValue(page, "version.by.displayName"))
	fmt.Fprintf(&b, "Last Updated: %v\n", nestedValue(page, "version.when"))
	fmt.Fprintf(&b, "Labels: %s\n", strings.Join(labels, ", "))
	fmt.Fprintf(&b, "URL: %s\n", pageRef)
	fmt.Fprintf(&b, "\nContent:\n%s\n", strings.TrimSpace(content))
	fmt.Fprintf(&b, "\nLinks:\n%s", links)
	return b.String(), nil
}

// FromConfluencePages fetches each whitespace or comma separated page.
func (c *Client) FromConfluencePages(ctx context.Context, pageRefs string) (string, error) {
	var b strings.Builder
	for _, ref := range splitList(pageRefs) {
		text, err := c.FromConfluencePage(ctx, ref)
		if err != nil {
			return "", err
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	}
	return b.String(), nil
}

// confluencePageID pulls the numeric page id out of a page URL, either
// from the /pages/<id>/ path segment or a pageId query parameter.
func confluencePageID(pageURL string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("unable to extract page ID from %q: %w", pageURL, err)
	}
	if _, rest, ok := strings.Cut(parsed.Path, "/pages/"); ok {
		id, _, _ := strings.Cut(rest, "/")
		return id, nil
	}
	if id := parsed.Query().Get("pageId"); id != "" {
		return id, nil
	}
	return "", fmt.Errorf("unable to extract page ID from %q", pageURL)
}

// renderConfluenceBody flattens the rendered page body, keeping the
// structure markers the original page layout implies: headings are
// prefixed with their level, list items become bullets, tables keep a
// column separator and named macros are tagged.
func renderConfluenceBody(root *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "table":
				parts = append(parts, "\n\nTABLE:\n"+tableText(n)+"\n")
				return
			case "h1", "h2", "h3", "h4", "h5", "h6":
				if text := nodeText(n); text != "" {
					parts = append(parts, fmt.Sprintf("\n\n%s: %s\n", strings.ToUpper(n.Data), text))
				}
				return
			case "li":
				if text := nodeText(n); text != "" {
					parts = append(parts, "- "+text)
				}
				return
			case "p":
				if text := nodeText(n); text != "" {
					parts = append(parts, text)
				}
				return
			case "div":
				if macro := attrValue(n, "data-macro-name"); macro != "" {
					parts = append(parts, fmt.Sprintf("\n[%s]\n%s\n", strings.ToUpper(macro), nodeText(n)))
					return
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
	return strings.Join(parts, " ")
}

func tableText(table *html.Node) string {
	var cells []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "td" || n.Data == "th") {
			if text := nodeText(n); text != "" {
				cells = append(cells, text)
			}
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(table)
	return strings.Join(cells, " | ")
}

// collectLinks gathers every anchor, resolving relative hrefs against
// the page URL.
func collectLinks(root *html.Node, pageURL string) []pageLink {
	base, baseErr := url.Parse(pageURL)
	links := []pageLink{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if href := attrValue(n, "href"); href != "" {
				resolved := href
				if baseErr == nil {
					if ref, err := url.Parse(href); err == nil {
						resolved = base.ResolveReference(ref).String()
					}
				}
				links = append(links, pageLink{Text: nodeText(n), Href: resolved})
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
	return links
}

func attrValue(n *html.Node, name string) string {
	for _, attr := range n.Attr {
		if attr.Key == name {
			return attr.Val
		}
	}
	return ""
}
