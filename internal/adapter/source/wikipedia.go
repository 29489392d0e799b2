package source

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"ragbench/internal/adapter/upstream"
	"ragbench/internal/domain"
)

// WikipediaConfig configures MediaWikiClient.
type WikipediaConfig struct {
	Language      string
	BaseURL       string
	UserAgent     string
	Timeout       time.Duration
	RatePerSecond float64
}

// MediaWikiClient searches and reads articles through the MediaWiki
// action API.
type MediaWikiClient struct {
	req     requester
	baseURL string
	log     zerolog.Logger
}

func NewMediaWikiClient(cfg WikipediaConfig, log zerolog.Logger) *MediaWikiClient {
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("https://%s.wikipedia.org/w/api.php", cfg.Language)
	}
	return &MediaWikiClient{
		req: requester{
			service:   "wikipedia",
			client:    upstream.NewClient(cfg.Timeout),
			limiter:   upstream.NewLimiter(cfg.RatePerSecond),
			userAgent: cfg.UserAgent,
		},
		baseURL: cfg.BaseURL,
		log:     log,
	}
}

func (c *MediaWikiClient) query(params url.Values) string {
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("formatversion", "2")
	return c.baseURL + "?" + params.Encode()
}

type searchResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

// Search returns up to limit article titles matching topic.
func (c *MediaWikiClient) Search(ctx context.Context, topic string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 5
	}
	params := url.Values{}
	params.Set("list", "search")
	params.Set("srsearch", topic)
	params.Set("srlimit", strconv.Itoa(limit))

	var resp searchResponse
	if err := c.req.getJSON(ctx, c.query(params), &resp); err != nil {
		return nil, err
	}

	titles := make([]string, 0, len(resp.Query.Search))
	for _, hit := range resp.Query.Search {
		titles = append(titles, hit.Title)
	}
	return titles, nil
}

type pageResponse struct {
	Query struct {
		Pages []struct {
			Title     string            `json:"title"`
			Missing   bool              `json:"missing"`
			Extract   string            `json:"extract"`
			FullURL   string            `json:"fullurl"`
			PageProps map[string]string `json:"pageprops"`
			Links     []struct {
				Title string `json:"title"`
			} `json:"links"`
		} `json:"pages"`
	} `json:"query"`
}

// Article returns the plain-text extract of title, following redirects.
// Disambiguation pages yield *domain.AmbiguousTitleError.
func (c *MediaWikiClient) Article(ctx context.Context, title string) (domain.Article, error) {
	params := url.Values{}
	params.Set("prop", "extracts|pageprops|info")
	params.Set("explaintext", "1")
	params.Set("inprop", "url")
	params.Set("redirects", "1")
	params.Set("titles", title)

	var resp pageResponse
	if err := c.req.getJSON(ctx, c.query(params), &resp); err != nil {
		return domain.Article{}, err
	}
	if len(resp.Query.Pages) == 0 || resp.Query.Pages[0].Missing {
		return domain.Article{}, fmt.Errorf("%w: wikipedia article %q", domain.ErrNotFound, title)
	}

	page := resp.Query.Pages[0]
	if _, ok := page.PageProps["disambiguation"]; ok {
		options, err := c.links(ctx, page.Title)
		if err != nil {
			return domain.Article{}, err
		}
		return domain.Article{}, &domain.AmbiguousTitleError{Title: page.Title, Options: options}
	}

	return domain.Article{Title: page.Title, URL: page.FullURL, Text: page.Extract}, nil
}

func (c *MediaWikiClient) links(ctx context.Context, title string) ([]string, error) {
	params := url.Values{}
	params.Set("prop", "links")
	params.Set("plnamespace", "0")
	params.Set("pllimit", "max")
	params.Set("titles", title)

	var resp pageResponse
	if err := c.req.getJSON(ctx, c.query(params), &resp); err != nil {
		return nil, err
	}

	var options []string
	for _, p := range resp.Query.Pages {
		for _, l := range p.Links {
			options = append(options, l.Title)
		}
	}
	return options, nil
}
