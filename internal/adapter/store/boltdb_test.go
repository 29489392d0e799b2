package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"ragbench/config"
	"ragbench/internal/domain"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "processed", "documents.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutAndGetDocument(t *testing.T) {
	s := newTestStore(t)

	processed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	doc := domain.Document{
		ID:          "web_abc",
		Chunks:      []string{"first chunk", "second chunk"},
		Metadata:    map[string]any{"source": "https://example.com", "type": "web"},
		ProcessedAt: processed,
	}
	if err := s.PutDocument(doc); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	got, err := s.GetDocument("web_abc")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(got.Chunks) != 2 || got.Chunks[1] != "second chunk" {
		t.Errorf("expected chunks to round trip, got %v", got.Chunks)
	}
	if got.Metadata["type"] != "web" {
		t.Errorf("expected type=web, got %v", got.Metadata["type"])
	}
	if !got.ProcessedAt.Equal(processed) {
		t.Errorf("expected ProcessedAt=%s, got %s", processed, got.ProcessedAt)
	}
}

func TestPutDocumentRejectsDuplicate(t *testing.T) {
	s := newTestStore(t)

	doc := domain.Document{ID: "text_1", Chunks: []string{"a"}}
	if err := s.PutDocument(doc); err != nil {
		t.Fatal(err)
	}
	doc.Chunks = []string{"b"}
	if err := s.PutDocument(doc); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}

	got, _ := s.GetDocument("text_1")
	if got.Chunks[0] != "a" {
		t.Errorf("expected original document to survive, got %v", got.Chunks)
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.GetDocument("missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteDocument("missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound on delete, got %v", err)
	}
}

func TestListAndCountDocuments(t *testing.T) {
	s := newTestStore(t)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"c", "a", "b"} {
		doc := domain.Document{ID: id, ProcessedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := s.PutDocument(doc); err != nil {
			t.Fatal(err)
		}
	}

	docs, err := s.ListDocuments()
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(docs))
	}
	if docs[0].ID != "c" || docs[2].ID != "b" {
		t.Errorf("expected processing order c,a,b, got %s,%s,%s", docs[0].ID, docs[1].ID, docs[2].ID)
	}

	if err := s.DeleteDocument("a"); err != nil {
		t.Fatal(err)
	}
	n, err := s.CountDocuments()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected 2 documents after delete, got %d", n)
	}
}

func TestLastIngest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "documents.db")
	s, err := NewBoltStore(path)
	if err != nil {
		t.Fatal(err)
	}

	zero, err := s.LastIngest()
	if err != nil {
		t.Fatal(err)
	}
	if !zero.IsZero() {
		t.Errorf("expected zero time before any ingest, got %s", zero)
	}

	when := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	if err := s.SetLastIngest(when); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = NewBoltStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	got, err := s.LastIngest()
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(when) {
		t.Errorf("expected %s, got %s", when, got)
	}
}

func TestMigrationAndConfigHash(t *testing.T) {
	s := newTestStore(t)
	cfg := config.DefaultConfig()

	result, err := s.CheckMigration(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !result.NeedsMigration {
		t.Error("expected fresh database to need migration")
	}

	if err := s.Migrate(cfg); err != nil {
		t.Fatal(err)
	}
	result, err = s.CheckMigration(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if result.NeedsMigration || result.NeedsReindex {
		t.Errorf("expected no work after migrate, got %+v", result)
	}

	changed := config.DefaultConfig()
	changed.Chunking.ChunkSize = 500
	result, err = s.CheckMigration(changed)
	if err != nil {
		t.Fatal(err)
	}
	if !result.NeedsReindex {
		t.Error("expected chunk size change to require reindex")
	}

	if err := s.Migrate(changed); err != nil {
		t.Fatal(err)
	}
	result, err = s.CheckMigration(changed)
	if err != nil {
		t.Fatal(err)
	}
	if !result.NeedsReindex {
		t.Error("expected migrate to keep the reindex warning")
	}

	if err := s.RecordConfig(changed); err != nil {
		t.Fatal(err)
	}
	result, err = s.CheckMigration(changed)
	if err != nil {
		t.Fatal(err)
	}
	if result.NeedsMigration || result.NeedsReindex {
		t.Errorf("expected no work after recording the new config, got %+v", result)
	}
}

func TestComputeConfigHashIgnoresUnrelatedSettings(t *testing.T) {
	a := config.DefaultConfig()
	b := config.DefaultConfig()
	b.Server.Port = 9999
	b.Logging.Level = "debug"

	if ComputeConfigHash(a) != ComputeConfigHash(b) {
		t.Error("expected server and logging settings not to affect the hash")
	}
}
