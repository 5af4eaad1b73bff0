package retrieval

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/q0rren/attendant/api/schemas"
	"github.com/q0rren/attendant/internal/config"
)

func testRetrievalConfig() config.RetrievalConfig {
	return config.RetrievalConfig{
		PolicyDir:    "", // embedded samples
		ChunkSize:    500,
		ChunkOverlap: 50,
	}
}

func newTestRetriever(t *testing.T, cfg config.RetrievalConfig) *PolicyRetriever {
	t.Helper()
	r, err := New(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	return r
}

func TestNew_LoadsEmbeddedSamples(t *testing.T) {
	r := newTestRetriever(t, testRetrievalConfig())
	assert.NotEmpty(t, r.chunks)
}

func TestNew_MissingPolicyDirFallsBackToSamples(t *testing.T) {
	cfg := testRetrievalConfig()
	cfg.PolicyDir = filepath.Join(t.TempDir(), "does_not_exist")
	r := newTestRetriever(t, cfg)
	assert.NotEmpty(t, r.chunks)
}

func TestNew_LoadsTxtFilesFromDir(t *testing.T) {
	dir := t.TempDir()
	content := "CUSTOM POLICY\nAll widgets ship with free gift wrapping during holidays."
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gift_policy.txt"), []byte(content), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("ignored"), 0o644))

	cfg := testRetrievalConfig()
	cfg.PolicyDir = dir
	r := newTestRetriever(t, cfg)

	hits := r.Retrieve("gift wrapping widgets", 3)
	require.NotEmpty(t, hits)
	assert.Equal(t, "gift_policy.txt", hits[0].Source)
	assert.Equal(t, "gift policy", hits[0].PolicyType)
}

func TestRetrieve_RanksAndBounds(t *testing.T) {
	r := newTestRetriever(t, testRetrievalConfig())

	hits := r.Retrieve("refund for delivery delay beyond 48 hours", 2)
	require.NotEmpty(t, hits)
	assert.LessOrEqual(t, len(hits), 2)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].RelevanceScore, hits[i].RelevanceScore, "results must be ordered best first")
	}
	for _, h := range hits {
		assert.Greater(t, h.RelevanceScore, 0.0)
		assert.LessOrEqual(t, h.RelevanceScore, 1.0)
		assert.NotEmpty(t, h.Content)
		assert.NotEmpty(t, h.Source)
	}
}

func TestRetrieve_NoMatchReturnsEmpty(t *testing.T) {
	r := newTestRetriever(t, testRetrievalConfig())
	assert.Empty(t, r.Retrieve("zzzqqqxxx", 3))
	assert.Empty(t, r.Retrieve("", 3))
}

func TestRetrieve_ReturnWindowQueryHitsReturnPolicy(t *testing.T) {
	r := newTestRetriever(t, testRetrievalConfig())

	hits := r.Retrieve("return window for electronics", 3)
	require.NotEmpty(t, hits)

	sources := make([]string, 0, len(hits))
	for _, h := range hits {
		sources = append(sources, h.Source)
	}
	assert.Contains(t, sources, "return_policy.txt")
}

func TestChunkText(t *testing.T) {
	words := ""
	for i := 0; i < 120; i++ {
		words += "w "
	}

	chunks := chunkText(words, 50, 10)
	require.Len(t, chunks, 3)
	// Stride is size-overlap: 0-49, 40-89, 80-119.
	assert.Len(t, strings.Fields(chunks[0]), 50)
	assert.Len(t, strings.Fields(chunks[2]), 40)

	assert.Len(t, chunkText("one two three", 50, 10), 1)
	assert.Empty(t, chunkText("", 50, 10))
}

func TestDetectConflicts(t *testing.T) {
	t.Run("single source never conflicts", func(t *testing.T) {
		snippets := []schemas.PolicySnippet{
			{Source: "a.txt", Content: "refund within 48 hours"},
			{Source: "a.txt", Content: "no refund after 7 days"},
		}
		assert.Empty(t, DetectConflicts(snippets))
	})

	t.Run("refund terms across sources are flagged", func(t *testing.T) {
		snippets := []schemas.PolicySnippet{
			{Source: "a.txt", Content: "full refund available on request"},
			{Source: "b.txt", Content: "items are not eligible for any compensation"},
		}
		conflicts := DetectConflicts(snippets)
		require.NotEmpty(t, conflicts)
		assert.Contains(t, conflicts[0], "refund")
	})

	t.Run("differing delay thresholds are flagged", func(t *testing.T) {
		snippets := []schemas.PolicySnippet{
			{Source: "a.txt", Content: "delays beyond 48 hours qualify"},
			{Source: "b.txt", Content: "claims accepted within 7 days"},
		}
		conflicts := DetectConflicts(snippets)
		require.NotEmpty(t, conflicts)
	})
}

func TestFormatContext(t *testing.T) {
	assert.Equal(t, "No relevant policies found.", FormatContext(nil))

	out := FormatContext([]schemas.PolicySnippet{{
		Content:        "Refunds are processed within 5-7 business days.",
		Source:         "refund_policy.txt",
		PolicyType:     "refund policy",
		RelevanceScore: 0.9,
	}})
	assert.Contains(t, out, "RELEVANT POLICIES")
	assert.Contains(t, out, "refund policy")
	assert.Contains(t, out, "5-7 business days")
}
