package domain

import (
	"fmt"
	"strings"
)

// SourceKind tags which origin an ingest request reads from.
type SourceKind string

const (
	SourceText      SourceKind = "text"
	SourceURL       SourceKind = "url"
	SourceFile      SourceKind = "file"
	SourceWikipedia SourceKind = "wikipedia"
	SourceNews      SourceKind = "news"
	SourceFinancial SourceKind = "financial"
)

// IngestSource is a validated ingest request with exactly one origin set.
// MaxArticles applies to the wikipedia and news kinds; zero means the
// configured default.
type IngestSource struct {
	Kind        SourceKind
	Value       string
	MaxArticles int
}

// SourceFields mirrors the optional fields of an ingest request body.
type SourceFields struct {
	Text      string
	URL       string
	File      string
	Wikipedia string
	News      string
	Financial string
}

// NewIngestSource returns the single populated source in f. Zero or more
// than one populated field is an ErrInvalidInput.
func NewIngestSource(f SourceFields) (IngestSource, error) {
	candidates := []IngestSource{
		{Kind: SourceText, Value: f.Text},
		{Kind: SourceURL, Value: f.URL},
		{Kind: SourceFile, Value: f.File},
		{Kind: SourceWikipedia, Value: f.Wikipedia},
		{Kind: SourceNews, Value: f.News},
		{Kind: SourceFinancial, Value: f.Financial},
	}

	var picked []IngestSource
	for _, c := range candidates {
		if strings.TrimSpace(c.Value) != "" {
			picked = append(picked, c)
		}
	}

	switch len(picked) {
	case 0:
		return IngestSource{}, fmt.Errorf("%w: one of text, url, file, wikipedia, news or financial is required", ErrInvalidInput)
	case 1:
		return picked[0], nil
	default:
		kinds := make([]string, len(picked))
		for i, p := range picked {
			kinds[i] = string(p.Kind)
		}
		return IngestSource{}, fmt.Errorf("%w: exactly one source may be set, got %s", ErrInvalidInput, strings.Join(kinds, ", "))
	}
}
