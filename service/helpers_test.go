package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/tieubaoca/sikoma-be/repository"
	"github.com/tieubaoca/sikoma-be/types"
	"go.uber.org/zap"
)

const testDimensions = 64

var testModels = []string{"model-a", "model-b"}

type testPipeline struct {
	ai        *MockAIService
	store     *repository.MemoryStore
	hub       *ProgressHub
	ingest    *IngestService
	search    *SearchService
	documents DocumentService
}

func newTestPipeline(t *testing.T, chunkSize, chunkOverlap int) *testPipeline {
	t.Helper()
	logger := zap.NewNop()
	ai := NewMockAIService(testDimensions)
	store := repository.NewMemoryStore()
	hub := NewProgressHub()

	extractor := NewExtractorService(ai, ExtractorConfig{OCRModels: testModels, InlineLimitBytes: 1 << 20}, nil, logger)
	summarizer := NewSummarizerService(ai, SummarizerConfig{Models: testModels, InlineLimitBytes: 1 << 20, MaxInputChars: 60000}, nil, logger)
	embedder := NewEmbeddingService(ai, "embed-model", testDimensions)
	transcriber := NewTranscriberService(ai, testModels, 1<<20, nil, logger)
	answerer := NewAnswerService(ai, "answer-model", logger)

	return &testPipeline{
		ai:    ai,
		store: store,
		hub:   hub,
		ingest: NewIngestService(store, store, store, extractor, summarizer, embedder, hub, IngestConfig{
			ChunkSize:        chunkSize,
			ChunkOverlap:     chunkOverlap,
			EmbedConcurrency: 3,
			EmbedRetries:     1,
			RetryBase:        time.Millisecond,
			MaxUploadBytes:   1 << 20,
		}, nil, logger),
		search: NewSearchService(store, store, embedder, transcriber, answerer, SearchConfig{
			DefaultTopK:      8,
			MaxTopK:          50,
			DefaultThreshold: 0.75,
		}, nil, logger),
		documents: NewDocumentService(store, store, store, extractor, summarizer, logger),
	}
}

func (p *testPipeline) ingestText(t *testing.T, subject, text string) *types.IngestResult {
	t.Helper()
	res, err := p.ingest.Ingest(context.Background(), types.IngestRequest{
		Data:     []byte(text),
		Filename: strings.ReplaceAll(strings.ToLower(subject), " ", "-") + ".txt",
		Subject:  subject,
		Author:   "Sekretariat",
	})
	if err != nil {
		t.Fatalf("ingest %q: %v", subject, err)
	}
	return res
}

// wordText builds n distinct words sharing prefix.
func wordText(prefix string, n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return strings.Join(words, " ")
}

func blobParts(req GenerateRequest) bool {
	for _, p := range req.Parts {
		if p.Data != nil || p.FileURI != "" {
			return true
		}
	}
	return false
}
