package cmd

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/sikoma-be/config"
	"github.com/tieubaoca/sikoma-be/types"
	"go.uber.org/zap"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	cfg.VectorStore.Backend = "memory"
	cfg.AI.Provider = "mock"
	cfg.AI.EmbeddingDimensions = 32
	cfg.Ingest.ChunkSize = 20
	cfg.Ingest.ChunkOverlap = 2
	return cfg
}

func TestBuildApp_MemoryAndMock(t *testing.T) {
	a, err := buildApp(context.Background(), memoryConfig(t), zap.NewNop())
	require.NoError(t, err)
	defer a.close(context.Background())

	assert.Nil(t, a.mongoDb)
	assert.Nil(t, a.gemini)
	assert.Empty(t, a.checks)

	path := filepath.Join(t.TempDir(), "undangan.txt")
	require.NoError(t, os.WriteFile(path, []byte("undangan rapat koordinasi anggaran dinas"), 0o644))
	res, err := ingestFile(context.Background(), a.ingest, path, ingestFlags{org: "org-1"})
	require.NoError(t, err)
	assert.Equal(t, types.INDEX_STATUS_INDEXED, res.IndexStatus)

	threshold := 0.0
	hits, err := a.search.Search(context.Background(), types.SearchRequest{
		Query:          "rapat koordinasi anggaran",
		Threshold:      &threshold,
		OrganizationID: "org-1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, hits.Hits)
	assert.Equal(t, res.DocID, hits.Hits[0].DocumentID)
}

func TestBuildApp_OpenAIWithoutCredentials(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.AI.Provider = "openai"
	cfg.AI.APIKey = ""
	cfg.AI.BaseURL = ""
	_, err := buildApp(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestCollectFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("surat"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.bin"), []byte{0x00, 0x01, 0x02, 0xff}, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "arsip"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "arsip", "c.md"), []byte("# nota"), 0o644))

	files, err := collectFiles(dir, false)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.txt")}, files)

	files, err = collectFiles(dir, true)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.txt"), filepath.Join(dir, "arsip", "c.md")}, files)
}

func TestNewHTTPServer_Timeouts(t *testing.T) {
	server := newHTTPServer(":0", http.NotFoundHandler())
	assert.Equal(t, ":0", server.Addr)
	assert.Positive(t, server.ReadHeaderTimeout)
	assert.Positive(t, server.ReadTimeout)
	assert.Positive(t, server.IdleTimeout)
	// a long synchronous ingestion must not be cut off
	assert.GreaterOrEqual(t, server.WriteTimeout, 10*time.Minute)
	assert.GreaterOrEqual(t, server.ReadTimeout, time.Minute)
}
