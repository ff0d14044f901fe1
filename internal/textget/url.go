package textget

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/net/html"
)

// FromURL fetches a web page and returns the text of its paragraphs.
func (c *Client) FromURL(ctx context.Context, src string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", src, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", src, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: %s", src, resp.Status)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", src, err)
	}
	return fmt.Sprintf("Text extracted from: %s\n\n%s", src, strings.Join(elementTexts(doc, "p"), " ")), nil
}

// FromURLs fetches each whitespace or comma separated URL in src.
func (c *Client) FromURLs(ctx context.Context, src string) (string, error) {
	var b strings.Builder
	for _, u := range splitList(src) {
		text, err := c.FromURL(ctx, u)
		if err != nil {
			return "", err
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	}
	return b.String(), nil
}

// elementTexts collects the flattened text of every element named tag.
func elementTexts(root *html.Node, tag string) []string {
	var texts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			if text := nodeText(n); text != "" {
				texts = append(texts, text)
			}
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
	return texts
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}
