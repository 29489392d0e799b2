package source

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ragbench/internal/adapter/upstream"
	"ragbench/internal/domain"
)

// FinancialConfig configures FMPClient.
type FinancialConfig struct {
	APIKey        string
	BaseURL       string
	Timeout       time.Duration
	RatePerSecond float64
}

// FMPClient gathers a ticker's profile, statements, quote and news from
// Financial Modeling Prep.
type FMPClient struct {
	req     requester
	apiKey  string
	baseURL string
	log     zerolog.Logger
}

func NewFMPClient(cfg FinancialConfig, log zerolog.Logger) *FMPClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://financialmodelingprep.com/api/v3"
	}
	return &FMPClient{
		req: requester{
			service: "fmp",
			client:  upstream.NewClient(cfg.Timeout),
			limiter: upstream.NewLimiter(cfg.RatePerSecond),
		},
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		log:     log,
	}
}

func (c *FMPClient) endpoint(path string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("apikey", c.apiKey)
	return c.baseURL + "/" + path + "?" + params.Encode()
}

func limit(n string) url.Values {
	return url.Values{"limit": {n}}
}

// Fetch returns nil when no API key is configured or the ticker has no
// profile. A profile request failure is returned; failures of the other
// sections only leave those sections empty.
func (c *FMPClient) Fetch(ctx context.Context, ticker string) (*domain.FinancialBundle, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, errors.New("ticker is empty")
	}
	if c.apiKey == "" {
		c.log.Warn().Msg("no FMP key configured, skipping financial fetch")
		return nil, nil
	}
	sym := url.PathEscape(ticker)

	var profiles []domain.CompanyProfile
	if err := c.req.getJSON(ctx, c.endpoint("profile/"+sym, nil), &profiles); err != nil {
		return nil, err
	}
	if len(profiles) == 0 || profiles[0] == (domain.CompanyProfile{}) {
		c.log.Info().Str("ticker", ticker).Msg("no profile for ticker")
		return nil, nil
	}

	bundle := &domain.FinancialBundle{Ticker: ticker, Profile: profiles[0]}

	c.section(ctx, ticker, "income-statement", c.endpoint("income-statement/"+sym, limit("4")), &bundle.IncomeStatement)
	c.section(ctx, ticker, "balance-sheet-statement", c.endpoint("balance-sheet-statement/"+sym, limit("4")), &bundle.BalanceSheet)
	c.section(ctx, ticker, "cash-flow-statement", c.endpoint("cash-flow-statement/"+sym, limit("4")), &bundle.CashFlow)
	c.section(ctx, ticker, "key-metrics", c.endpoint("key-metrics/"+sym, limit("4")), &bundle.KeyMetrics)

	var quotes []domain.Quote
	c.section(ctx, ticker, "quote", c.endpoint("quote/"+sym, nil), &quotes)
	if len(quotes) > 0 {
		bundle.Quote = &quotes[0]
	}

	news := url.Values{"tickers": {ticker}, "limit": {"5"}}
	c.section(ctx, ticker, "stock_news", c.endpoint("stock_news", news), &bundle.News)

	return bundle, nil
}

func (c *FMPClient) section(ctx context.Context, ticker, name, rawURL string, dst any) {
	if err := c.req.getJSON(ctx, rawURL, dst); err != nil {
		c.log.Warn().Err(err).Str("ticker", ticker).Str("section", name).Msg("financial section unavailable")
	}
}
