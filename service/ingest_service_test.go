package service

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/sikoma-be/repository"
	"github.com/tieubaoca/sikoma-be/types"
	"go.uber.org/zap"
)

func TestIngest_TextFile(t *testing.T) {
	p := newTestPipeline(t, 10, 2)
	text := "Undangan Rapat Koordinasi\n" + wordText("kata", 40)

	res := p.ingestText(t, "Undangan Rapat", text)

	assert.True(t, res.Ok)
	assert.NotEmpty(t, res.DocID)
	assert.Equal(t, types.INDEX_STATUS_INDEXED, res.IndexStatus)
	assert.Empty(t, res.FailedChunks)
	assert.Equal(t, len(ChunkWords(text, 10, 2)), res.ChunkCount)
	assert.Equal(t, types.SUMMARY_SOURCE_FILE, res.SummarySource)
	assert.NotEmpty(t, res.Summary)
	assert.Equal(t, "Undangan Rapat Koordinasi", res.AutoMeta.Title)
	assert.Equal(t, 43, res.AutoMeta.WordCount)
	assert.Equal(t, "text/plain", res.FilePreview.MimeType)
	assert.Equal(t, "/files/"+res.FilePreview.FileID, res.FilePreview.URL)
	assert.NotEmpty(t, res.UploadID)

	doc, err := p.store.GetDocument(context.Background(), res.DocID)
	require.NoError(t, err)
	assert.Equal(t, types.DOCUMENT_STATUS_UPLOADED, doc.Status)
	assert.Equal(t, types.INDEX_STATUS_INDEXED, doc.IndexStatus)
	require.Len(t, doc.Attachments, 1)
	assert.Equal(t, res.FilePreview.FileID, doc.Attachments[0].FileID)

	chunks := p.store.ChunksByDocument(res.DocID)
	require.Len(t, chunks, res.ChunkCount)
	for i, c := range chunks {
		assert.Len(t, c.Embedding, testDimensions)
		assert.Equal(t, i+1, c.Page)
		assert.Equal(t, EstimateTokens(c.Text), c.TokenCount)
	}
}

func TestIngest_ChunksReconstructText(t *testing.T) {
	p := newTestPipeline(t, 10, 3)
	text := wordText("w", 47)
	res := p.ingestText(t, "Reconstruction", text)

	chunks := p.store.ChunksByDocument(res.DocID)
	words := strings.Fields(chunks[0].Text)
	for _, c := range chunks[1:] {
		words = append(words, strings.Fields(c.Text)[3:]...)
	}
	assert.Equal(t, text, strings.Join(words, " "))
}

func TestIngest_Validation(t *testing.T) {
	p := newTestPipeline(t, 10, 2)
	cases := map[string]types.IngestRequest{
		"missing file": {Filename: "a.txt"},
		"bad date":     {Data: []byte("some text"), Filename: "a.txt", Date: "15-10-2026"},
		"bad status":   {Data: []byte("some text"), Filename: "a.txt", Status: "archived"},
		"unsupported":  {Data: zipBytes(t), Filename: "bundle.zip"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := p.ingest.Ingest(context.Background(), req)
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrValidation)
		})
	}
	assert.Equal(t, 0, p.store.BlobCount())
}

func TestIngest_AcceptsDueDate(t *testing.T) {
	p := newTestPipeline(t, 10, 2)
	res, err := p.ingest.Ingest(context.Background(), types.IngestRequest{
		Data:     []byte("surat undangan rapat"),
		Filename: "a.txt",
		Date:     "2026-10-15",
		Status:   types.DOCUMENT_STATUS_REVIEW,
	})
	require.NoError(t, err)
	doc, err := p.store.GetDocument(context.Background(), res.DocID)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-15", doc.DueDate)
	assert.Equal(t, types.DOCUMENT_STATUS_REVIEW, doc.Status)
	// subject falls back to the first line
	assert.Equal(t, "surat undangan rapat", doc.Subject)
}

func TestIngest_ExtractionFailureWritesNothing(t *testing.T) {
	p := newTestPipeline(t, 10, 2)
	p.ai.GenerateFunc = func(ctx context.Context, req GenerateRequest) (string, error) {
		return "", errors.New("model unavailable")
	}

	_, err := p.ingest.Ingest(context.Background(), types.IngestRequest{
		Data:     []byte("%PDF-1.4\nnot really a pdf"),
		Filename: "scan.pdf",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrExtraction)
	assert.Equal(t, 0, p.store.BlobCount())

	list, total, err := p.store.ListDocuments(context.Background(), types.DocumentFilter{}, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Zero(t, total)
}

func TestIngest_OCRText(t *testing.T) {
	p := newTestPipeline(t, 10, 2)
	p.ai.GenerateFunc = func(ctx context.Context, req GenerateRequest) (string, error) {
		if req.Parts[0].Text == ocrInstruction || req.Parts[len(req.Parts)-1].Text == ocrInstruction {
			return "Nota dinas tentang anggaran tahun depan", nil
		}
		return "", errors.New("summary model down")
	}

	res, err := p.ingest.Ingest(context.Background(), types.IngestRequest{
		Data:     []byte("\x89PNG\r\n\x1a\n0000"),
		Filename: "scan.png",
	})
	require.NoError(t, err)
	assert.Equal(t, types.SUMMARY_SOURCE_NONE, res.SummarySource)
	assert.Empty(t, res.Summary)
	assert.Equal(t, 1, res.ChunkCount)
	assert.Equal(t, "image/png", res.FilePreview.MimeType)
}

func TestIngest_SummaryFallsBackToText(t *testing.T) {
	p := newTestPipeline(t, 10, 2)
	p.ai.GenerateFunc = func(ctx context.Context, req GenerateRequest) (string, error) {
		if blobParts(req) {
			return "", errors.New("file input rejected")
		}
		return "Ringkasan dari teks", nil
	}

	res := p.ingestText(t, "Fallback", wordText("x", 20))
	assert.Equal(t, types.SUMMARY_SOURCE_TEXT, res.SummarySource)
	assert.Equal(t, "Ringkasan dari teks", res.Summary)
}

func TestIngest_DocxUsesTextSummary(t *testing.T) {
	p := newTestPipeline(t, 10, 2)
	data := buildDocx(t, map[string]string{"word/document.xml": sampleDocumentXML})

	res, err := p.ingest.Ingest(context.Background(), types.IngestRequest{Data: data, Filename: "memo.docx"})
	require.NoError(t, err)
	assert.Equal(t, types.SUMMARY_SOURCE_TEXT, res.SummarySource)
	assert.Equal(t, "Undangan Rapat", res.AutoMeta.Title)
}

func TestIngest_PartialFailure(t *testing.T) {
	p := newTestPipeline(t, 10, 2)
	p.ai.EmbedFunc = func(ctx context.Context, text string) ([]float32, error) {
		if strings.Contains(text, "w12 ") {
			return nil, errors.New("rate limited")
		}
		return HashEmbedding(text, testDimensions), nil
	}

	// windows: w0-w9, w8-w17, w16-w25; only the second holds w12
	res := p.ingestText(t, "Partial", wordText("w", 26))

	assert.Equal(t, types.INDEX_STATUS_PARTIALLY_INDEXED, res.IndexStatus)
	assert.Equal(t, []int{2}, res.FailedChunks)
	assert.Equal(t, 2, res.ChunkCount)

	doc, err := p.store.GetDocument(context.Background(), res.DocID)
	require.NoError(t, err)
	assert.Equal(t, types.INDEX_STATUS_PARTIALLY_INDEXED, doc.IndexStatus)
	assert.Equal(t, []int{2}, doc.FailedChunks)
	assert.Len(t, p.store.ChunksByDocument(res.DocID), 2)
}

func TestIngest_RetriesTransientEmbeddingFailure(t *testing.T) {
	p := newTestPipeline(t, 100, 10)
	calls := 0
	p.ai.EmbedFunc = func(ctx context.Context, text string) ([]float32, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("temporary")
		}
		return HashEmbedding(text, testDimensions), nil
	}

	res := p.ingestText(t, "Retry", wordText("r", 30))
	assert.Equal(t, types.INDEX_STATUS_INDEXED, res.IndexStatus)
	assert.Equal(t, 2, calls)
}

func TestIngest_TotalEmbeddingFailureRollsBack(t *testing.T) {
	p := newTestPipeline(t, 10, 2)
	p.ai.EmbedFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("quota exceeded")
	}
	events, cancel := p.hub.Subscribe("upload-1")
	defer cancel()

	_, err := p.ingest.Ingest(context.Background(), types.IngestRequest{
		Data:     []byte(wordText("w", 30)),
		Filename: "a.txt",
		UploadID: "upload-1",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrEmbedding)
	assert.Equal(t, 0, p.store.BlobCount())
	_, total, err := p.store.ListDocuments(context.Background(), types.DocumentFilter{}, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)

	var last types.ProgressEvent
	for len(events) > 0 {
		last = <-events
	}
	assert.Equal(t, types.PROGRESS_STAGE_FAILED, last.Stage)
}

func TestIngest_WrongDimensionsNeverStored(t *testing.T) {
	p := newTestPipeline(t, 10, 2)
	p.ai.EmbedFunc = func(ctx context.Context, text string) ([]float32, error) {
		return make([]float32, testDimensions/2), nil
	}

	_, err := p.ingest.Ingest(context.Background(), types.IngestRequest{Data: []byte("satu dua tiga"), Filename: "a.txt"})
	assert.ErrorIs(t, err, types.ErrEmbedding)
}

func TestIngest_PublishesProgress(t *testing.T) {
	p := newTestPipeline(t, 10, 2)
	events, cancel := p.hub.Subscribe("upload-2")
	defer cancel()

	res, err := p.ingest.Ingest(context.Background(), types.IngestRequest{
		Data:     []byte(wordText("w", 26)),
		Filename: "a.txt",
		UploadID: "upload-2",
	})
	require.NoError(t, err)
	assert.Equal(t, "upload-2", res.UploadID)

	stages := make([]string, 0)
	var last types.ProgressEvent
	for len(events) > 0 {
		last = <-events
		stages = append(stages, last.Stage)
	}
	assert.Equal(t, types.PROGRESS_STAGE_EXTRACT, stages[0])
	assert.Contains(t, stages, types.PROGRESS_STAGE_EMBED)
	assert.Equal(t, types.PROGRESS_STAGE_DONE, last.Stage)
	assert.Equal(t, res.DocID, last.DocID)
	assert.Equal(t, 3, last.Total)
}

func TestPreview(t *testing.T) {
	p := newTestPipeline(t, 10, 2)

	res, err := p.ingest.Preview(context.Background(), []byte("Isi surat undangan"), "a.txt", "")
	require.NoError(t, err)
	assert.Equal(t, types.SUMMARY_SOURCE_FILE, res.Source)
	assert.Equal(t, "Isi surat undangan", res.Summary)

	p.ai.GenerateFunc = func(ctx context.Context, req GenerateRequest) (string, error) {
		return "", errors.New("down")
	}
	res, err = p.ingest.Preview(context.Background(), []byte("Isi surat undangan"), "a.txt", "")
	require.NoError(t, err)
	assert.Equal(t, types.SUMMARY_SOURCE_NONE, res.Source)
	assert.Empty(t, res.Summary)

	_, err = p.ingest.Preview(context.Background(), nil, "a.txt", "")
	assert.ErrorIs(t, err, types.ErrValidation)
	assert.Equal(t, 0, p.store.BlobCount())
}

func zipBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("readme.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// ctxDocumentRepo fails writes on a cancelled context like a network store does.
type ctxDocumentRepo struct {
	*repository.MemoryStore
}

func (r ctxDocumentRepo) CreateDocument(ctx context.Context, doc *types.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.MemoryStore.CreateDocument(ctx, doc)
}

func (r ctxDocumentRepo) UpdateDocument(ctx context.Context, doc *types.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.MemoryStore.UpdateDocument(ctx, doc)
}

func TestIngest_ClientGoneDuringEmbedding(t *testing.T) {
	logger := zap.NewNop()
	ai := NewMockAIService(testDimensions)
	store := repository.NewMemoryStore()
	extractor := NewExtractorService(ai, ExtractorConfig{OCRModels: testModels, InlineLimitBytes: 1 << 20}, nil, logger)
	summarizer := NewSummarizerService(ai, SummarizerConfig{Models: testModels, InlineLimitBytes: 1 << 20, MaxInputChars: 60000}, nil, logger)
	embedder := NewEmbeddingService(ai, "embed-model", testDimensions)
	ingest := NewIngestService(ctxDocumentRepo{store}, store, store, extractor, summarizer, embedder, nil, IngestConfig{
		ChunkSize:        10,
		ChunkOverlap:     2,
		EmbedConcurrency: 1,
		EmbedRetries:     1,
		RetryBase:        time.Millisecond,
	}, nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var calls atomic.Int32
	ai.EmbedFunc = func(embedCtx context.Context, text string) ([]float32, error) {
		if calls.Add(1) == 2 {
			cancel()
		}
		if err := embedCtx.Err(); err != nil {
			return nil, err
		}
		return HashEmbedding(text, testDimensions), nil
	}

	text := wordText("kata", 40)
	res, err := ingest.Ingest(ctx, types.IngestRequest{
		Data:     []byte(text),
		Filename: "nota.txt",
		Subject:  "Nota",
	})
	require.NoError(t, err)
	require.Error(t, ctx.Err())

	pieces := len(ChunkWords(text, 10, 2))
	assert.Equal(t, types.INDEX_STATUS_INDEXED, res.IndexStatus)
	assert.Equal(t, pieces, res.ChunkCount)
	assert.Empty(t, res.FailedChunks)

	doc, err := store.GetDocument(context.Background(), res.DocID)
	require.NoError(t, err)
	assert.Equal(t, types.INDEX_STATUS_INDEXED, doc.IndexStatus)
	assert.Len(t, store.ChunksByDocument(res.DocID), pieces)
}

func TestIngest_BlobTaggedWithDocument(t *testing.T) {
	p := newTestPipeline(t, 50, 5)
	res := p.ingestText(t, "Surat", "surat edaran kepala dinas")

	rc, info, err := p.store.OpenBlob(context.Background(), res.FilePreview.FileID)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, res.DocID, info.DocumentID)
}
