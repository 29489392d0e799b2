package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the retrieval service.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Sources   SourcesConfig   `yaml:"sources"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

// StorageConfig holds on-disk locations.
type StorageConfig struct {
	DataDir     string `yaml:"data_dir"`
	VectorDir   string `yaml:"vector_dir"`
	DocumentsDB string `yaml:"documents_db"`
}

// ChunkingConfig holds chunker parameters, measured in characters.
type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider  string        `yaml:"provider"`    // "local", "openai", "ollama"
	Model     string        `yaml:"model"`       // e.g., "text-embedding-ada-002"
	APIKeyEnv string        `yaml:"api_key_env"` // Environment variable for API key
	BaseURL   string        `yaml:"base_url"`
	Dimension int           `yaml:"dimension"` // 0 = use the model's own dimension
	BatchSize int           `yaml:"batch_size"`
	Timeout   time.Duration `yaml:"timeout"`
}

// RetrieveConfig holds query configuration.
type RetrieveConfig struct {
	TopK         int           `yaml:"top_k"`
	DefaultIndex string        `yaml:"default_index"`
	CacheSize    int           `yaml:"cache_size"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
}

// SourcesConfig holds settings for the external ingestion collaborators.
type SourcesConfig struct {
	UserAgent string          `yaml:"user_agent"`
	Timeout   time.Duration   `yaml:"timeout"`
	Wikipedia WikipediaConfig `yaml:"wikipedia"`
	News      NewsConfig      `yaml:"news"`
	Financial FinancialConfig `yaml:"financial"`
}

type WikipediaConfig struct {
	Language      string  `yaml:"language"`
	MaxArticles   int     `yaml:"max_articles"`
	BaseURL       string  `yaml:"base_url"` // overrides https://<language>.wikipedia.org/w/api.php
	RatePerSecond float64 `yaml:"rate_per_second"`
}

type NewsConfig struct {
	APIKeyEnv     string  `yaml:"api_key_env"`
	MaxArticles   int     `yaml:"max_articles"`
	DaysBack      int     `yaml:"days_back"`
	BaseURL       string  `yaml:"base_url"`
	RatePerSecond float64 `yaml:"rate_per_second"`
}

type FinancialConfig struct {
	APIKeyEnv     string  `yaml:"api_key_env"`
	BaseURL       string  `yaml:"base_url"`
	RatePerSecond float64 `yaml:"rate_per_second"`
}

// IngestConfig restricts what the ingestion pipeline may read.
type IngestConfig struct {
	FileRoot string `yaml:"file_root"` // empty = no restriction
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Storage: StorageConfig{
			DataDir:     "data",
			VectorDir:   filepath.Join("data", "vectors"),
			DocumentsDB: filepath.Join("data", "processed", "documents.db"),
		},
		Chunking: ChunkingConfig{
			ChunkSize:    1000,
			ChunkOverlap: 200,
		},
		Embedding: EmbeddingConfig{
			Provider:  "local",
			Model:     "",
			APIKeyEnv: "OPENAI_API_KEY",
			BatchSize: 1000,
			Timeout:   60 * time.Second,
		},
		Retrieve: RetrieveConfig{
			TopK:         5,
			DefaultIndex: "default",
			CacheSize:    256,
			CacheTTL:     5 * time.Minute,
		},
		Sources: SourcesConfig{
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Timeout:   10 * time.Second,
			Wikipedia: WikipediaConfig{
				Language:      "en",
				MaxArticles:   5,
				RatePerSecond: 5,
			},
			News: NewsConfig{
				APIKeyEnv:     "NEWS_API_KEY",
				MaxArticles:   10,
				DaysBack:      30,
				BaseURL:       "https://newsapi.org/v2",
				RatePerSecond: 1,
			},
			Financial: FinancialConfig{
				APIKeyEnv:     "FMP_API_KEY",
				BaseURL:       "https://financialmodelingprep.com/api/v3",
				RatePerSecond: 4,
			},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for ragbench.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "ragbench.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".ragbench", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ApplyEnv overrides file settings with environment variables. lookup is
// normally os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s=%q: %w", key, v, err)
		}
		*dst = n
		return nil
	}

	str("RAG_SERVICE_HOST", &c.Server.Host)
	str("EMBEDDING_PROVIDER", &c.Embedding.Provider)
	str("EMBEDDING_MODEL", &c.Embedding.Model)
	str("VECTOR_DIR", &c.Storage.VectorDir)
	str("DOCUMENTS_DB", &c.Storage.DocumentsDB)
	str("LOG_LEVEL", &c.Logging.Level)

	for key, dst := range map[string]*int{
		"RAG_SERVICE_PORT":    &c.Server.Port,
		"CHUNK_SIZE":          &c.Chunking.ChunkSize,
		"CHUNK_OVERLAP":       &c.Chunking.ChunkOverlap,
		"DEFAULT_TOP_K":       &c.Retrieve.TopK,
		"EMBEDDING_DIMENSION": &c.Embedding.Dimension,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}
	return nil
}

var indexNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidIndexName reports whether name is usable as an index file stem.
func ValidIndexName(name string) bool {
	return indexNamePattern.MatchString(name)
}

// Validate checks settings that would otherwise fail deep inside a request.
func (c *Config) Validate() error {
	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("chunking.chunk_size must be positive, got %d", c.Chunking.ChunkSize)
	}
	if c.Chunking.ChunkOverlap < 0 {
		return fmt.Errorf("chunking.chunk_overlap must not be negative, got %d", c.Chunking.ChunkOverlap)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Retrieve.TopK <= 0 {
		return fmt.Errorf("retrieve.top_k must be positive, got %d", c.Retrieve.TopK)
	}
	if !ValidIndexName(c.Retrieve.DefaultIndex) {
		return fmt.Errorf("retrieve.default_index %q is not a valid index name", c.Retrieve.DefaultIndex)
	}
	return nil
}

// Addr returns the host:port the HTTP server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// EnsureDirs creates the vector directory and the documents database directory.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.Storage.VectorDir, filepath.Dir(c.Storage.DocumentsDB)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}
