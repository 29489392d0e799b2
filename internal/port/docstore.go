package port

import (
	"time"

	"ragbench/internal/domain"
)

// DocumentStore persists processed documents. A put either stores the
// whole record or nothing.
type DocumentStore interface {
	PutDocument(doc domain.Document) error

	GetDocument(id string) (domain.Document, error)

	ListDocuments() ([]domain.Document, error)

	DeleteDocument(id string) error

	CountDocuments() (int, error)

	SetLastIngest(t time.Time) error

	// LastIngest returns the zero time if nothing was ever ingested.
	LastIngest() (time.Time, error)

	Close() error
}
