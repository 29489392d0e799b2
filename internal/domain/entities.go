package domain

import "time"

// Document types carried in the "type" metadata key.
const (
	TypeText      = "text"
	TypeWeb       = "web"
	TypeFile      = "file"
	TypeWikipedia = "wikipedia"
	TypeNews      = "news"
	TypeFinancial = "financial"
)

// Metadata keys written by the index alongside each chunk.
const (
	MetaDocID      = "doc_id"
	MetaChunkIndex = "chunk_index"
	MetaChunkText  = "chunk_text"
	MetaAddedAt    = "added_at"
	MetaSource     = "source"
	MetaType       = "type"
)

// Document is one ingested unit of content. It is never mutated after
// it has been persisted.
type Document struct {
	ID          string         `json:"id"`
	Chunks      []string       `json:"chunks"`
	Metadata    map[string]any `json:"metadata"`
	ProcessedAt time.Time      `json:"processed_at"`
}

type ModelInfo struct {
	ModelType string `json:"model_type"`
	ModelName string `json:"model_name"`
	Dimension int    `json:"dimension"`
}

type SearchResult struct {
	ChunkID  string         `json:"chunk_id"`
	Text     string         `json:"chunk"`
	Metadata map[string]any `json:"metadata"`
	Score    float64        `json:"score"`
}

type QueryResponse struct {
	Query       string         `json:"query"`
	Results     []SearchResult `json:"results"`
	TotalChunks int            `json:"total_chunks"`
	TimeTaken   float64        `json:"time_taken"`
}

type IndexStats struct {
	Name           string     `json:"name"`
	Size           int        `json:"size"`
	EmbeddingModel ModelInfo  `json:"embedding_model"`
	IndexFile      string     `json:"index_file,omitempty"`
	MetadataFile   string     `json:"metadata_file,omitempty"`
	LastUpdated    *time.Time `json:"last_updated,omitempty"`
}

type IngestResult struct {
	Status          string   `json:"status"`
	DocumentIDs     []string `json:"document_ids"`
	ChunksIngested  int      `json:"chunks_ingested"`
	VectorStoreSize int      `json:"vector_store_size"`
}

// Page is the visible text of a fetched web page.
type Page struct {
	URL   string
	Title string
	Text  string
}

type Article struct {
	Title string
	URL   string
	Text  string
}

type NewsArticle struct {
	Title       string
	Source      string
	Author      string
	PublishedAt string
	URL         string
	Description string
	Content     string
}
