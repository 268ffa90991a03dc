package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"abchat/internal/apperr"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "abchat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "gpt-4", cfg.LLM.ModelID)
	assert.InDelta(t, 0.3, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, 1000, cfg.LLM.MaxTokens)
	assert.Equal(t, 5, cfg.Query.DefaultLimit)
	assert.InDelta(t, 0.9, cfg.Weights.Arm, 1e-9)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
dataset:
  path: data/tiendas.csv
llm:
  model_id: gpt-4o-mini
weights:
  description: 0.5
embedder:
  type: openai
log:
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "data/tiendas.csv", cfg.Dataset.Path)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.ModelID)
	assert.Equal(t, 1000, cfg.LLM.MaxTokens)
	assert.InDelta(t, 0.5, cfg.Weights.Description, 1e-9)
	assert.InDelta(t, 0.8, cfg.Weights.Region, 1e-9)
	require.NotNil(t, cfg.Embedder.OpenAI)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedder.OpenAI.Model)
	assert.Equal(t, 32, cfg.Embedder.OpenAI.BatchSize)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "memory", cfg.VectorStore.Type)
}

func TestLoad_QdrantDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "vector_store:\n  type: qdrant\n"))
	require.NoError(t, err)
	require.NotNil(t, cfg.VectorStore.Qdrant)
	assert.Equal(t, "http://localhost:6333", cfg.VectorStore.Qdrant.URL)
	assert.Equal(t, "abchat_rows", cfg.VectorStore.Qdrant.Collection)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"threshold zero":    "analysis:\n  significance_threshold: 0\n",
		"threshold one":     "analysis:\n  significance_threshold: 1\n",
		"negative weight":   "weights:\n  region: -1\n",
		"unknown embedder":  "embedder:\n  type: word2vec\n",
		"unknown store":     "vector_store:\n  type: pinecone\n",
		"unknown llm":       "llm:\n  type: claude\n",
		"empty model":       "llm:\n  model_id: \"\"\n",
		"zero limit":        "query:\n  default_limit: 0\n",
		"unknown logformat": "log:\n  format: xml\n",
		"malformed yaml":    "dataset: [\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
		})
	}
}

func TestLoad_AllZeroWeights(t *testing.T) {
	cfg := Default()
	cfg.Weights.Description = 0
	cfg.Weights.Arm = 0
	cfg.Weights.Region = 0
	cfg.Weights.StoreType = 0
	cfg.Weights.Users = 0
	cfg.Weights.Conversions = 0
	cfg.Weights.Revenue = 0
	cfg.Weights.ConversionRate = 0
	assert.Error(t, cfg.Validate())
}

func TestLoad_LLMNoneSkipsModelCheck(t *testing.T) {
	cfg, err := Load(writeConfig(t, "llm:\n  type: none\n  model_id: \"\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "none", cfg.LLM.Type)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.History.Path = "history.db"
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadDefault_WritesUserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	cfg, path, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "abchat", "config.yaml"), path)
	assert.Equal(t, Default(), cfg)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestLoadDefault_PrefersWorkingDirectory(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abchat.yaml"), []byte("query:\n  default_limit: 9\n"), 0o644))

	cfg, path, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, "abchat.yaml", path)
	assert.Equal(t, 9, cfg.Query.DefaultLimit)
}
