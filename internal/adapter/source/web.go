package source

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"ragbench/internal/adapter/upstream"
	"ragbench/internal/domain"
)

// WebFetcher downloads a page and extracts its title and visible text.
type WebFetcher struct {
	req requester
}

func NewWebFetcher(userAgent string, timeout time.Duration) *WebFetcher {
	return &WebFetcher{req: requester{
		service:   "web",
		client:    upstream.NewClient(timeout),
		userAgent: userAgent,
	}}
}

func (f *WebFetcher) Fetch(ctx context.Context, rawURL string) (domain.Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domain.Page{}, fmt.Errorf("%w: not an http(s) url: %q", domain.ErrInvalidInput, rawURL)
	}

	resp, err := f.req.get(ctx, rawURL)
	if err != nil {
		return domain.Page{}, err
	}
	defer resp.Body.Close()

	doc, err := html.Parse(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return domain.Page{}, upstream.Classify("web", fmt.Errorf("failed to read page: %w", err))
	}

	title, text := extractPage(doc)
	if title == "" {
		title = "Untitled"
	}
	return domain.Page{URL: rawURL, Title: title, Text: text}, nil
}

// extractPage returns the first <title> and the page text with script,
// style and noscript content removed.
func extractPage(doc *html.Node) (string, string) {
	var title string
	var b strings.Builder

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return
			case atom.Title:
				if title == "" && n.FirstChild != nil {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
			}
		}
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				b.WriteString(s)
				b.WriteByte('\n')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return title, strings.TrimSpace(b.String())
}
