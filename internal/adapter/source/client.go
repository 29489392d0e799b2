// Package source implements the external collaborators the ingestion
// pipeline pulls content from: web pages, NewsAPI, Financial Modeling Prep
// and MediaWiki.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"ragbench/internal/adapter/upstream"
)

// maxResponseBody bounds every response read from a collaborator.
const maxResponseBody = 10 << 20

// requester is the request plumbing shared by the API clients.
type requester struct {
	service   string
	client    *http.Client
	limiter   *upstream.Limiter
	userAgent string
}

func (r *requester) get(ctx context.Context, rawURL string) (*http.Response, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, upstream.Classify(r.service, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", r.service, err)
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, upstream.Classify(r.service, err)
	}
	if err := upstream.CheckStatus(r.service, resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

func (r *requester) getJSON(ctx context.Context, rawURL string, dst any) error {
	resp, err := r.get(ctx, rawURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(dst); err != nil {
		return upstream.Classify(r.service, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}
