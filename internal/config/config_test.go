package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfrag/internal/domain"
)

func fullEnv() map[string]string {
	return map[string]string{
		EnvOpenAIKey:      "sk-test-1234",
		EnvCollection:     "Pages",
		EnvWeaviateURL:    "https://example.weaviate.network",
		EnvWeaviateAPIKey: "wv-key-5678",
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(nil, fullEnv())
	require.NoError(t, err)

	assert.Equal(t, "Pages", cfg.Collection.Name)
	assert.Equal(t, "weaviate", cfg.VectorStore.Type)
	assert.Equal(t, 100, cfg.Ingest.BatchSize)
	assert.Equal(t, 5, cfg.Query.Limit)
	assert.Equal(t, "page", cfg.Splitter.Strategy)
	assert.Equal(t, 4000, cfg.Splitter.MaxChars)
	assert.Equal(t, 200, cfg.Splitter.OverlapChars)
	assert.Equal(t, "gpt-3.5-turbo", cfg.LLM.ChatModel)
	assert.Equal(t, "sk-test-1234", cfg.LLM.APIKey)
	assert.False(t, cfg.Ingest.DeterministicIDs)
	assert.Equal(t, 3, cfg.Ingest.SummarySentences)
}

func TestParse_MissingKeysReportedTogether(t *testing.T) {
	_, err := Parse(nil, map[string]string{})
	var ce *domain.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, []string{EnvOpenAIKey, EnvCollection, EnvWeaviateURL, EnvWeaviateAPIKey}, ce.Missing)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	env := fullEnv()
	delete(env, EnvWeaviateAPIKey)
	_, err = Parse(nil, env)
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, []string{EnvWeaviateAPIKey}, ce.Missing)
}

func TestParse_BackendRequirements(t *testing.T) {
	env := map[string]string{EnvOpenAIKey: "sk", EnvCollection: "Pages", EnvVectorStore: "qdrant"}
	_, err := Parse(nil, env)
	var ce *domain.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, []string{EnvQdrantAddr}, ce.Missing)

	env[EnvVectorStore] = "memory"
	_, err = Parse(nil, env)
	assert.NoError(t, err)

	env[EnvVectorStore] = "pinecone"
	_, err = Parse(nil, env)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestParse_YAMLWithEnvOverride(t *testing.T) {
	data := []byte(`
collection:
  name: Books
vector_store:
  weaviate:
    url: http://localhost:8080
ingest:
  batch_size: 20
  deterministic_ids: true
  summary_sentences: -1
splitter:
  strategy: sentence
  max_chars: -1
query:
  limit: 3
logging:
  level: debug
`)
	env := fullEnv()
	delete(env, EnvWeaviateURL)
	cfg, err := Parse(data, env)
	require.NoError(t, err)

	// env wins over the file
	assert.Equal(t, "Pages", cfg.Collection.Name)
	assert.Equal(t, "http://localhost:8080", cfg.VectorStore.Weaviate.URL)
	assert.Equal(t, 20, cfg.Ingest.BatchSize)
	assert.True(t, cfg.Ingest.DeterministicIDs)
	assert.Equal(t, -1, cfg.Ingest.SummarySentences)
	assert.Equal(t, "sentence", cfg.Splitter.Strategy)
	assert.Equal(t, 5, cfg.Splitter.SentencesPerChunk)
	assert.Equal(t, -1, cfg.Splitter.MaxChars)
	assert.Equal(t, 200, cfg.Splitter.OverlapChars)
	assert.Equal(t, 3, cfg.Query.Limit)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "ada", cfg.Collection.Model)
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("collection: [unclosed"), fullEnv())
	assert.Error(t, err)
}

func TestLoad_EnvFile(t *testing.T) {
	for _, k := range []string{EnvOpenAIKey, EnvCollection, EnvWeaviateURL, EnvWeaviateAPIKey} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"OPENAI_API_KEY=sk-file\nPDF_DATABASE_CLASS=Pages\nWEAVIATE_URL=http://wv\nWEAVIATE_API_KEY=wv\n"), 0o600))
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("query:\n  limit: 7\n"), 0o600))

	t.Setenv(EnvCollection, "FromProcess")
	cfg, used, err := Load(cfgPath, envFile)
	require.NoError(t, err)
	assert.Equal(t, cfgPath, used)
	assert.Equal(t, "sk-file", cfg.LLM.APIKey)
	assert.Equal(t, "FromProcess", cfg.Collection.Name)
	assert.Equal(t, 7, cfg.Query.Limit)
}

func TestLoad_MissingEnvFileIsFine(t *testing.T) {
	t.Setenv(EnvOpenAIKey, "sk")
	t.Setenv(EnvCollection, "Pages")
	t.Setenv(EnvVectorStore, "memory")
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, nil, 0o600))

	_, _, err := Load(cfgPath, filepath.Join(dir, "nope.env"))
	assert.NoError(t, err)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), "")
	assert.Error(t, err)
}

func TestSave_OmitsSecrets(t *testing.T) {
	cfg, err := Parse(nil, fullEnv())
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, Save(path, cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "batch_size: 100")
	assert.NotContains(t, string(data), "sk-test-1234")
	assert.NotContains(t, string(data), "wv-key-5678")
}

func TestSchema(t *testing.T) {
	cfg, err := Parse(nil, fullEnv())
	require.NoError(t, err)
	s := cfg.Schema()
	assert.Equal(t, "Pages", s.Name)
	assert.Equal(t, "text2vec-openai", s.Vectorizer.Module)
	assert.Equal(t, domain.DefaultFields(), s.Fields)
}

func TestSummary_MasksSecrets(t *testing.T) {
	cfg, err := Parse(nil, fullEnv())
	require.NoError(t, err)
	out := cfg.Summary()
	assert.Contains(t, out, "sk****34")
	assert.NotContains(t, out, "sk-test-1234")
	assert.Contains(t, out, "Pages")
}
