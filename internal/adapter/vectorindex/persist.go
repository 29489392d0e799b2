package vectorindex

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"ragbench/internal/domain"
)

// Vector file layout, little endian:
//
//	magic   [8]byte "RBFLATL2"
//	version uint32
//	dim     uint32
//	count   uint64
//	data    [count*dim]float32
var fileMagic = [8]byte{'R', 'B', 'F', 'L', 'A', 'T', 'L', '2'}

const (
	fileVersion uint32 = 1
	maxValues          = 1 << 31
)

type fileHeader struct {
	Magic   [8]byte
	Version uint32
	Dim     uint32
	Count   uint64
}

const headerSize = 24

// metadataRecord is the companion JSON file of an index.
type metadataRecord struct {
	Name           string           `json:"name"`
	EmbeddingModel domain.ModelInfo `json:"embedding_model"`
	DocIDs         []string         `json:"doc_ids"`
	Metadata       []map[string]any `json:"metadata"`
	UpdatedAt      float64          `json:"updated_at"`
}

// WriteTo serializes the structure in the vector file layout.
func (f *FlatL2) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	cw := &countingWriter{w: bw}

	header := fileHeader{
		Magic:   fileMagic,
		Version: fileVersion,
		Dim:     uint32(f.dim),
		Count:   uint64(f.Count()),
	}
	if err := binary.Write(cw, binary.LittleEndian, header); err != nil {
		return cw.n, err
	}
	if len(f.data) > 0 {
		if err := binary.Write(cw, binary.LittleEndian, f.data); err != nil {
			return cw.n, err
		}
	}
	return cw.n, bw.Flush()
}

// ReadFlatL2 decodes a structure written by WriteTo. When size is not
// negative it is the byte length of r, and a header that disagrees with it
// is rejected before the vectors are allocated.
func ReadFlatL2(r io.Reader, size int64) (*FlatL2, error) {
	br := bufio.NewReader(r)

	var header fileHeader
	if err := binary.Read(br, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if header.Magic != fileMagic {
		return nil, errors.New("not a vector index file")
	}
	if header.Version != fileVersion {
		return nil, fmt.Errorf("unsupported vector file version %d", header.Version)
	}
	if header.Dim == 0 {
		return nil, errors.New("vector file has zero dimension")
	}

	total := header.Count * uint64(header.Dim)
	if header.Count > maxValues || total > maxValues {
		return nil, fmt.Errorf("vector file claims %d values", total)
	}
	if size >= 0 && uint64(size) != headerSize+total*4 {
		return nil, fmt.Errorf("vector file is %d bytes, header claims %d vectors of %d values", size, header.Count, header.Dim)
	}
	data := make([]float32, total)
	if total > 0 {
		if err := binary.Read(br, binary.LittleEndian, data); err != nil {
			return nil, fmt.Errorf("failed to read %d vectors: %w", header.Count, err)
		}
	}
	if _, err := br.ReadByte(); err != io.EOF {
		return nil, errors.New("trailing data after vectors")
	}

	return &FlatL2{dim: int(header.Dim), data: data}, nil
}

// writeFileAtomic writes path through a temp file in the same directory
// and renames it into place.
func writeFileAtomic(path string, write func(w io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func writeJSONAtomic(path string, v any) error {
	return writeFileAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
