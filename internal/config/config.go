package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"pdfrag/internal/domain"
)

// Environment variables read by Load. Secrets are only ever taken from here.
const (
	EnvOpenAIKey      = "OPENAI_API_KEY"
	EnvCollection     = "PDF_DATABASE_CLASS"
	EnvWeaviateURL    = "WEAVIATE_URL"
	EnvWeaviateAPIKey = "WEAVIATE_API_KEY"
	EnvQdrantAddr     = "QDRANT_URL"
	EnvQdrantAPIKey   = "QDRANT_API_KEY"
	EnvVectorStore    = "VECTOR_STORE"
	EnvLogLevel       = "LOG_LEVEL"
	EnvName           = "ENV"
)

// CollectionConfig describes the collection that holds document chunks.
type CollectionConfig struct {
	Name         string `yaml:"name"`
	Description  string `yaml:"description"`
	Vectorizer   string `yaml:"vectorizer"`
	Model        string `yaml:"model"`
	ModelVersion string `yaml:"model_version"`
	Type         string `yaml:"type"`
}

// WeaviateConfig contains connection details for Weaviate.
type WeaviateConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"-"`
}

// QdrantConfig contains connection details for Qdrant's gRPC endpoint.
type QdrantConfig struct {
	Addr   string `yaml:"addr"`
	UseTLS bool   `yaml:"use_tls"`
	APIKey string `yaml:"-"`
}

// VectorStoreConfig selects and configures the vector store backend.
type VectorStoreConfig struct {
	Type        string         `yaml:"type"`
	TimeoutSecs int            `yaml:"timeout_secs"`
	Weaviate    WeaviateConfig `yaml:"weaviate"`
	Qdrant      QdrantConfig   `yaml:"qdrant"`
}

// SplitterConfig configures how documents are split into chunks.
type SplitterConfig struct {
	Strategy          string `yaml:"strategy"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk"`
	OverlapSentences  int    `yaml:"overlap_sentences"`

	// MaxChars caps chunk length; negative disables the cap.
	MaxChars     int `yaml:"max_chars"`
	OverlapChars int `yaml:"overlap_chars"`
}

// IngestConfig configures batched upserts.
type IngestConfig struct {
	BatchSize        int  `yaml:"batch_size"`
	DeterministicIDs bool `yaml:"deterministic_ids"`
	// SummarySentences is how many key sentences to report after an
	// import. Negative disables the summary.
	SummarySentences int `yaml:"summary_sentences"`
}

// QueryConfig configures retrieval.
type QueryConfig struct {
	Limit int `yaml:"limit"`
}

// LLMConfig holds OpenAI-compatible chat and embedding settings.
type LLMConfig struct {
	BaseURL        string  `yaml:"base_url"`
	ChatModel      string  `yaml:"chat_model"`
	Temperature    float32 `yaml:"temperature"`
	EmbeddingModel string  `yaml:"embedding_model"`
	Dimensions     int     `yaml:"dimensions"`
	TimeoutSecs    int     `yaml:"timeout_secs"`
	APIKey         string  `yaml:"-"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Env   string `yaml:"env"`   // local, dev, prod
	Level string `yaml:"level"` // debug, info, warn, error

	// File receives the logs while the interactive menu is open.
	// Empty means pdfrag.log in the system temp directory.
	File string `yaml:"file"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Collection  CollectionConfig  `yaml:"collection"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Splitter    SplitterConfig    `yaml:"splitter"`
	Ingest      IngestConfig      `yaml:"ingest"`
	Query       QueryConfig       `yaml:"query"`
	LLM         LLMConfig         `yaml:"llm"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// Load builds the configuration from a YAML file, a dotenv file and the
// process environment, in increasing order of precedence. An empty path
// looks up ./config.yaml, then ~/.config/pdfrag/config.yaml, then falls
// back to defaults. A missing env file is not an error.
func Load(path, envFile string) (*AppConfig, string, error) {
	if path == "" {
		path = findConfigPath()
	}
	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, "", fmt.Errorf("read config %s: %w", path, err)
		}
	}
	env, err := readEnv(envFile)
	if err != nil {
		return nil, "", err
	}
	cfg, err := Parse(data, env)
	return cfg, path, err
}

// Parse builds and validates a configuration from raw YAML and an
// environment map.
func Parse(data []byte, env map[string]string) (*AppConfig, error) {
	cfg := Default()
	if len(bytes.TrimSpace(data)) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyEnv(env)
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the non-secret part of the config to path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// DefaultUserConfigPath returns ~/.config/pdfrag/config.yaml.
func DefaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "pdfrag", "config.yaml"), nil
}

func findConfigPath() string {
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	if p, err := DefaultUserConfigPath(); err == nil {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func readEnv(envFile string) (map[string]string, error) {
	env := map[string]string{}
	if envFile != "" {
		fileEnv, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read env file %s: %w", envFile, err)
		}
		for k, v := range fileEnv {
			env[k] = v
		}
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && v != "" {
			env[k] = v
		}
	}
	return env, nil
}

// Default returns the configuration used when no file is present.
func Default() *AppConfig {
	return &AppConfig{
		Collection: CollectionConfig{
			Description:  "Pages from books",
			Vectorizer:   "text2vec-openai",
			Model:        "ada",
			ModelVersion: "002",
			Type:         "text",
		},
		VectorStore: VectorStoreConfig{Type: "weaviate", TimeoutSecs: 60},
		Splitter:    SplitterConfig{Strategy: "page", SentencesPerChunk: 5, OverlapSentences: 1, MaxChars: 4000, OverlapChars: 200},
		Ingest:      IngestConfig{BatchSize: 100, SummarySentences: 3},
		Query:       QueryConfig{Limit: 5},
		LLM: LLMConfig{
			BaseURL:        "https://api.openai.com/v1",
			ChatModel:      "gpt-3.5-turbo",
			Temperature:    0.7,
			EmbeddingModel: "text-embedding-ada-002",
			Dimensions:     1536,
			TimeoutSecs:    120,
		},
		Logging: LoggingConfig{Env: "local", Level: "info"},
	}
}

func (c *AppConfig) applyEnv(env map[string]string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(env[key]); v != "" {
			*dst = v
		}
	}
	set(&c.LLM.APIKey, EnvOpenAIKey)
	set(&c.Collection.Name, EnvCollection)
	set(&c.VectorStore.Type, EnvVectorStore)
	set(&c.VectorStore.Weaviate.URL, EnvWeaviateURL)
	set(&c.VectorStore.Weaviate.APIKey, EnvWeaviateAPIKey)
	set(&c.VectorStore.Qdrant.Addr, EnvQdrantAddr)
	set(&c.VectorStore.Qdrant.APIKey, EnvQdrantAPIKey)
	set(&c.Logging.Level, EnvLogLevel)
	set(&c.Logging.Env, EnvName)
}

// ApplyDefaults fills zero values left by a partial YAML file.
func (c *AppConfig) ApplyDefaults() {
	d := Default()
	if c.VectorStore.Type == "" {
		c.VectorStore.Type = d.VectorStore.Type
	}
	if c.VectorStore.TimeoutSecs <= 0 {
		c.VectorStore.TimeoutSecs = d.VectorStore.TimeoutSecs
	}
	if c.Splitter.Strategy == "" {
		c.Splitter.Strategy = d.Splitter.Strategy
	}
	if c.Splitter.SentencesPerChunk <= 0 {
		c.Splitter.SentencesPerChunk = d.Splitter.SentencesPerChunk
	}
	if c.Splitter.MaxChars == 0 {
		c.Splitter.MaxChars = d.Splitter.MaxChars
	}
	if c.Ingest.BatchSize <= 0 {
		c.Ingest.BatchSize = d.Ingest.BatchSize
	}
	if c.Ingest.SummarySentences == 0 {
		c.Ingest.SummarySentences = d.Ingest.SummarySentences
	}
	if c.Query.Limit <= 0 {
		c.Query.Limit = d.Query.Limit
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = d.LLM.BaseURL
	}
	if c.LLM.ChatModel == "" {
		c.LLM.ChatModel = d.LLM.ChatModel
	}
	if c.LLM.EmbeddingModel == "" {
		c.LLM.EmbeddingModel = d.LLM.EmbeddingModel
	}
	if c.LLM.Dimensions <= 0 {
		c.LLM.Dimensions = d.LLM.Dimensions
	}
	if c.LLM.TimeoutSecs <= 0 {
		c.LLM.TimeoutSecs = d.LLM.TimeoutSecs
	}
	if c.Logging.Env == "" {
		c.Logging.Env = d.Logging.Env
	}
}

// Validate reports every missing required setting at once.
func (c *AppConfig) Validate() error {
	var missing []string
	if c.LLM.APIKey == "" {
		missing = append(missing, EnvOpenAIKey)
	}
	if c.Collection.Name == "" {
		missing = append(missing, EnvCollection)
	}
	switch c.VectorStore.Type {
	case "weaviate":
		if c.VectorStore.Weaviate.URL == "" {
			missing = append(missing, EnvWeaviateURL)
		}
		if c.VectorStore.Weaviate.APIKey == "" {
			missing = append(missing, EnvWeaviateAPIKey)
		}
	case "qdrant":
		if c.VectorStore.Qdrant.Addr == "" {
			missing = append(missing, EnvQdrantAddr)
		}
	case "memory":
	default:
		return fmt.Errorf("unknown vector store %q: %w", c.VectorStore.Type, domain.ErrConfiguration)
	}
	if len(missing) > 0 {
		return &domain.ConfigError{Missing: missing}
	}
	if c.Ingest.BatchSize <= 0 || c.Query.Limit <= 0 {
		return fmt.Errorf("batch_size and limit must be positive: %w", domain.ErrConfiguration)
	}
	return nil
}

// Schema returns the collection schema described by the config.
func (c *AppConfig) Schema() domain.CollectionSchema {
	return domain.CollectionSchema{
		Name:        c.Collection.Name,
		Description: c.Collection.Description,
		Vectorizer: domain.VectorizerSpec{
			Module:       c.Collection.Vectorizer,
			Model:        c.Collection.Model,
			ModelVersion: c.Collection.ModelVersion,
			Type:         c.Collection.Type,
		},
		Fields: domain.DefaultFields(),
	}
}

// Summary renders the effective settings with secrets masked, one per line.
func (c *AppConfig) Summary() string {
	var b strings.Builder
	line := func(k, v string) { fmt.Fprintf(&b, "%-22s %s\n", k, v) }
	line("collection", c.Collection.Name)
	line("vector_store", c.VectorStore.Type)
	switch c.VectorStore.Type {
	case "weaviate":
		line("weaviate.url", c.VectorStore.Weaviate.URL)
		line("weaviate.api_key", mask(c.VectorStore.Weaviate.APIKey))
	case "qdrant":
		line("qdrant.addr", c.VectorStore.Qdrant.Addr)
		line("qdrant.api_key", mask(c.VectorStore.Qdrant.APIKey))
	}
	line("splitter.strategy", c.Splitter.Strategy)
	line("splitter.max_chars", strconv.Itoa(c.Splitter.MaxChars))
	line("ingest.batch_size", strconv.Itoa(c.Ingest.BatchSize))
	line("ingest.deterministic", strconv.FormatBool(c.Ingest.DeterministicIDs))
	line("ingest.summary", strconv.Itoa(c.Ingest.SummarySentences))
	line("query.limit", strconv.Itoa(c.Query.Limit))
	line("llm.chat_model", c.LLM.ChatModel)
	line("llm.api_key", mask(c.LLM.APIKey))
	return b.String()
}

func mask(secret string) string {
	if secret == "" {
		return "(unset)"
	}
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:2] + "****" + secret[len(secret)-2:]
}
