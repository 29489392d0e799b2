package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Chunking.ChunkSize != 1000 {
		t.Errorf("expected ChunkSize=1000, got %d", cfg.Chunking.ChunkSize)
	}
	if cfg.Chunking.ChunkOverlap != 200 {
		t.Errorf("expected ChunkOverlap=200, got %d", cfg.Chunking.ChunkOverlap)
	}
	if cfg.Retrieve.TopK != 5 {
		t.Errorf("expected TopK=5, got %d", cfg.Retrieve.TopK)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected Port=8000, got %d", cfg.Server.Port)
	}
	if cfg.Embedding.BatchSize != 1000 {
		t.Errorf("expected BatchSize=1000, got %d", cfg.Embedding.BatchSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("expected no error for non-existent file, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "ragbench.yaml")

	content := `
chunking:
  chunk_size: 256
  chunk_overlap: 32
embedding:
  provider: openai
  timeout: 15s
retrieve:
  top_k: 10
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Chunking.ChunkSize != 256 {
		t.Errorf("expected ChunkSize=256, got %d", cfg.Chunking.ChunkSize)
	}
	if cfg.Embedding.Provider != "openai" {
		t.Errorf("expected Provider=openai, got %s", cfg.Embedding.Provider)
	}
	if cfg.Embedding.Timeout != 15*time.Second {
		t.Errorf("expected Timeout=15s, got %s", cfg.Embedding.Timeout)
	}
	if cfg.Retrieve.TopK != 10 {
		t.Errorf("expected TopK=10, got %d", cfg.Retrieve.TopK)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected unset Port to keep default 8000, got %d", cfg.Server.Port)
	}
}

func TestLoadFromDir(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, ".ragbench"), 0755); err != nil {
		t.Fatal(err)
	}
	configPath := filepath.Join(tmpDir, ".ragbench", "config.yaml")

	content := `
retrieve:
  default_index: research
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Retrieve.DefaultIndex != "research" {
		t.Errorf("expected DefaultIndex=research, got %s", cfg.Retrieve.DefaultIndex)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"RAG_SERVICE_PORT": "9090",
		"CHUNK_SIZE":       "500",
		"EMBEDDING_MODEL":  "text-embedding-3-small",
		"LOG_LEVEL":        "",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(lookup); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected Port=9090, got %d", cfg.Server.Port)
	}
	if cfg.Chunking.ChunkSize != 500 {
		t.Errorf("expected ChunkSize=500, got %d", cfg.Chunking.ChunkSize)
	}
	if cfg.Embedding.Model != "text-embedding-3-small" {
		t.Errorf("expected Model override, got %s", cfg.Embedding.Model)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected empty LOG_LEVEL to keep default, got %s", cfg.Logging.Level)
	}
}

func TestApplyEnv_InvalidNumber(t *testing.T) {
	lookup := func(key string) (string, bool) {
		if key == "DEFAULT_TOP_K" {
			return "many", true
		}
		return "", false
	}

	if err := DefaultConfig().ApplyEnv(lookup); err == nil {
		t.Error("expected error for non-numeric DEFAULT_TOP_K")
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Chunking.ChunkSize = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero chunk size")
	}

	cfg = DefaultConfig()
	cfg.Retrieve.DefaultIndex = "../escape"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for index name with path separators")
	}
}

func TestValidIndexName(t *testing.T) {
	for _, name := range []string{"default", "run_42", "topic-ai"} {
		if !ValidIndexName(name) {
			t.Errorf("expected %q to be valid", name)
		}
	}
	for _, name := range []string{"", "a/b", "..", "has space"} {
		if ValidIndexName(name) {
			t.Errorf("expected %q to be invalid", name)
		}
	}
}
