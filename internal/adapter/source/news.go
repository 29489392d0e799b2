package source

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ragbench/internal/adapter/upstream"
	"ragbench/internal/domain"
)

// NewsConfig configures NewsClient.
type NewsConfig struct {
	APIKey        string
	BaseURL       string
	DaysBack      int
	Timeout       time.Duration
	RatePerSecond float64
}

// NewsClient queries the NewsAPI /everything endpoint.
type NewsClient struct {
	req      requester
	apiKey   string
	baseURL  string
	daysBack int
	log      zerolog.Logger
	now      func() time.Time
}

func NewNewsClient(cfg NewsConfig, log zerolog.Logger) *NewsClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://newsapi.org/v2"
	}
	if cfg.DaysBack <= 0 {
		cfg.DaysBack = 30
	}
	return &NewsClient{
		req: requester{
			service: "newsapi",
			client:  upstream.NewClient(cfg.Timeout),
			limiter: upstream.NewLimiter(cfg.RatePerSecond),
		},
		apiKey:   cfg.APIKey,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		daysBack: cfg.DaysBack,
		log:      log,
		now:      time.Now,
	}
}

type newsResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Author      string `json:"author"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
		Content     string `json:"content"`
	} `json:"articles"`
}

// Fetch returns up to maxArticles articles about topic from the last
// configured number of days, sorted by relevancy. Without an API key it
// returns no articles.
func (c *NewsClient) Fetch(ctx context.Context, topic string, maxArticles int) ([]domain.NewsArticle, error) {
	if c.apiKey == "" {
		c.log.Warn().Msg("no NewsAPI key configured, skipping news fetch")
		return []domain.NewsArticle{}, nil
	}
	if maxArticles <= 0 {
		maxArticles = 10
	}

	to := c.now()
	from := to.AddDate(0, 0, -c.daysBack)

	params := url.Values{}
	params.Set("q", topic)
	params.Set("apiKey", c.apiKey)
	params.Set("sortBy", "relevancy")
	params.Set("language", "en")
	params.Set("from", from.Format("2006-01-02"))
	params.Set("to", to.Format("2006-01-02"))
	params.Set("pageSize", strconv.Itoa(maxArticles))

	var resp newsResponse
	if err := c.req.getJSON(ctx, c.baseURL+"/everything?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("%w: newsapi status %q: %s", domain.ErrUpstream, resp.Status, resp.Message)
	}

	articles := make([]domain.NewsArticle, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		title := strings.TrimSpace(a.Title)
		if title == "" || title == "[Removed]" {
			continue
		}
		article := domain.NewsArticle{
			Title:       title,
			Source:      a.Source.Name,
			Author:      a.Author,
			PublishedAt: a.PublishedAt,
			URL:         a.URL,
			Description: a.Description,
			Content:     a.Content,
		}
		if article.Source == "" {
			article.Source = "Unknown Source"
		}
		if article.Author == "" {
			article.Author = "Unknown Author"
		}
		articles = append(articles, article)
		if len(articles) == maxArticles {
			break
		}
	}

	c.log.Info().Str("topic", topic).Int("articles", len(articles)).Msg("fetched news")
	return articles, nil
}
