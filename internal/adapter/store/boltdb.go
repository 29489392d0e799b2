package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"ragbench/internal/domain"
)

var (
	bucketDocs    = []byte("documents")
	bucketStats   = []byte("stats")
	keyLastIngest = []byte("last_ingest")
)

const openTimeout = time.Second

// BoltStore keeps processed documents in a single bbolt file, one JSON
// record per document id.
type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create documents dir: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketDocs, bucketStats} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// PutDocument stores doc under its id. Ids are never overwritten.
func (s *BoltStore) PutDocument(doc domain.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("%w: document id is empty", domain.ErrInvalidInput)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", doc.ID, err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketDocs)
		if b.Get([]byte(doc.ID)) != nil {
			return fmt.Errorf("%w: document %s", domain.ErrAlreadyExists, doc.ID)
		}
		return b.Put([]byte(doc.ID), data)
	})
}

func (s *BoltStore) GetDocument(id string) (domain.Document, error) {
	var doc domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocs).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
		}
		return json.Unmarshal(data, &doc)
	})
	return doc, err
}

func (s *BoltStore) DeleteDocument(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketDocs)
		if b.Get([]byte(id)) == nil {
			return fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
		}
		return b.Delete([]byte(id))
	})
}

// ListDocuments returns every stored document ordered by processing time.
func (s *BoltStore) ListDocuments() ([]domain.Document, error) {
	var docs []domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocs).ForEach(func(k, v []byte) error {
			var doc domain.Document
			if err := json.Unmarshal(v, &doc); err != nil {
				return fmt.Errorf("corrupt document %s: %w", k, err)
			}
			docs = append(docs, doc)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].ProcessedAt.Before(docs[j].ProcessedAt)
	})
	return docs, nil
}

func (s *BoltStore) CountDocuments() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketDocs).Stats().KeyN
		return nil
	})
	return n, err
}

func (s *BoltStore) SetLastIngest(t time.Time) error {
	data, err := t.UTC().MarshalText()
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketStats).Put(keyLastIngest, data)
	})
}

func (s *BoltStore) LastIngest() (time.Time, error) {
	var t time.Time
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketStats).Get(keyLastIngest)
		if data == nil {
			return nil
		}
		return t.UnmarshalText(data)
	})
	return t, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
