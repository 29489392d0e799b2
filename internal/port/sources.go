package port

import (
	"context"

	"ragbench/internal/domain"
)

// PageFetcher downloads a URL and extracts its title and visible text.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (domain.Page, error)
}

// NewsSource returns recent articles for a topic. A missing credential or
// no matches yields an empty slice, not an error.
type NewsSource interface {
	Fetch(ctx context.Context, topic string, maxArticles int) ([]domain.NewsArticle, error)
}

// FinancialSource returns the data bundle for a ticker, or nil when the
// ticker is unknown or no credential is configured.
type FinancialSource interface {
	Fetch(ctx context.Context, ticker string) (*domain.FinancialBundle, error)
}

// EncyclopediaSource searches and reads encyclopedia articles.
type EncyclopediaSource interface {
	Search(ctx context.Context, topic string, limit int) ([]string, error)

	// Article returns *domain.AmbiguousTitleError for disambiguation pages.
	Article(ctx context.Context, title string) (domain.Article, error)
}
