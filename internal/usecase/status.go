package usecase

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"ragbench/internal/domain"
	"ragbench/internal/metrics"
	"ragbench/internal/port"
)

// StatusReport summarizes one index and the document store.
type StatusReport struct {
	Index           string
	VectorStoreSize int
	Documents       int
	LastIngest      *time.Time
	Stats           domain.IndexStats
}

// StatusUseCase reports on and clears indices.
type StatusUseCase struct {
	indices port.IndexProvider
	docs    port.DocumentStore
	metrics *metrics.Metrics
	log     zerolog.Logger
}

func NewStatusUseCase(indices port.IndexProvider, docs port.DocumentStore, m *metrics.Metrics, log zerolog.Logger) *StatusUseCase {
	return &StatusUseCase{indices: indices, docs: docs, metrics: m, log: log}
}

func (u *StatusUseCase) Status(indexName string) (StatusReport, error) {
	index, err := u.indices.Get(indexName)
	if err != nil {
		return StatusReport{}, err
	}

	report := StatusReport{
		Index:           indexName,
		VectorStoreSize: index.Count(),
		Stats:           index.Stats(),
	}

	last, err := u.docs.LastIngest()
	if err != nil {
		return StatusReport{}, fmt.Errorf("failed to read last ingest time: %w", err)
	}
	if !last.IsZero() {
		report.LastIngest = &last
	}

	if report.Documents, err = u.docs.CountDocuments(); err != nil {
		return StatusReport{}, fmt.Errorf("failed to count documents: %w", err)
	}

	u.metrics.SetIndexSize(indexName, report.VectorStoreSize)
	return report, nil
}

// Clear empties the named index. Stored documents are kept so the index
// can be rebuilt with Reindex.
func (u *StatusUseCase) Clear(indexName string) error {
	index, err := u.indices.Get(indexName)
	if err != nil {
		return err
	}
	if err := index.Clear(); err != nil {
		return err
	}

	u.metrics.SetIndexSize(indexName, 0)
	u.log.Info().Str("index", indexName).Msg("index cleared")
	return nil
}

// Documents lists every stored document in processing order.
func (u *StatusUseCase) Documents() ([]domain.Document, error) {
	return u.docs.ListDocuments()
}
