package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/sikoma-be/types"
	"github.com/tieubaoca/sikoma-be/utils"
	"go.uber.org/zap"
)

// uploadingAI is a mock provider with a file API.
type uploadingAI struct {
	*MockAIService
	mu      sync.Mutex
	uploads []string
	deleted []string
	err     error
}

func (u *uploadingAI) UploadFile(ctx context.Context, data []byte, mimeType, displayName string) (*RemoteFile, error) {
	if u.err != nil {
		return nil, u.err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	name := "files/" + displayName
	u.uploads = append(u.uploads, name)
	return &RemoteFile{Name: name, URI: "https://files.example/" + displayName, MIMEType: mimeType}, nil
}

func (u *uploadingAI) DeleteFile(ctx context.Context, name string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.deleted = append(u.deleted, name)
	return nil
}

func TestExtract_TextPassThrough(t *testing.T) {
	ai := NewMockAIService(8)
	e := NewExtractorService(ai, ExtractorConfig{OCRModels: testModels}, nil, zap.NewNop())

	text, err := e.Extract(context.Background(), []byte("  # Judul\n\nisi  "), "a.md", utils.MimeMarkdown)
	require.NoError(t, err)
	assert.Equal(t, "# Judul\n\nisi", text)
	assert.Empty(t, ai.GenerateCalls())
}

func TestExtract_EmptyAndUnsupported(t *testing.T) {
	e := NewExtractorService(NewMockAIService(8), ExtractorConfig{OCRModels: testModels}, nil, zap.NewNop())

	_, err := e.Extract(context.Background(), nil, "a.txt", utils.MimeText)
	assert.ErrorIs(t, err, types.ErrExtraction)
	_, err = e.Extract(context.Background(), []byte("   "), "a.txt", utils.MimeText)
	assert.ErrorIs(t, err, types.ErrExtraction)
	_, err = e.Extract(context.Background(), []byte("data"), "a.bin", "application/x-tar")
	assert.ErrorIs(t, err, types.ErrExtraction)
}

func TestExtract_OCRTriesEveryModelAndOrdering(t *testing.T) {
	ai := NewMockAIService(8)
	ai.GenerateFunc = func(ctx context.Context, req GenerateRequest) (string, error) {
		if req.Model == "model-b" && req.Parts[0].Data != nil {
			return "  teks hasil OCR  ", nil
		}
		return "", errors.New("refused")
	}
	e := NewExtractorService(ai, ExtractorConfig{OCRModels: testModels, InlineLimitBytes: 1 << 20}, nil, zap.NewNop())

	text, err := e.Extract(context.Background(), []byte("\x89PNG\r\n\x1a\nimage"), "scan.png", "image/png")
	require.NoError(t, err)
	assert.Equal(t, "teks hasil OCR", text)

	calls := ai.GenerateCalls()
	require.Len(t, calls, 4)
	assert.Equal(t, ocrInstruction, calls[0].Parts[0].Text)
	assert.Equal(t, ocrInstruction, calls[1].Parts[1].Text)
	assert.Equal(t, "model-b", calls[3].Model)
}

func TestExtract_LargeFileUsesFileAPI(t *testing.T) {
	ai := &uploadingAI{MockAIService: NewMockAIService(8)}
	ai.GenerateFunc = func(ctx context.Context, req GenerateRequest) (string, error) {
		for _, p := range req.Parts {
			if p.FileURI != "" {
				return "teks dari berkas besar", nil
			}
		}
		return "", errors.New("inline payload not expected")
	}
	e := NewExtractorService(ai, ExtractorConfig{OCRModels: testModels, InlineLimitBytes: 16}, nil, zap.NewNop())

	data := []byte("\x89PNG\r\n\x1a\n" + strings.Repeat("x", 64))
	text, err := e.Extract(context.Background(), data, "big.png", "image/png")
	require.NoError(t, err)
	assert.Equal(t, "teks dari berkas besar", text)
	assert.Equal(t, []string{"files/big.png"}, ai.uploads)
	assert.Equal(t, ai.uploads, ai.deleted)
}

func TestExtract_LargeFileWithoutFileAPIGoesInline(t *testing.T) {
	ai := &uploadingAI{MockAIService: NewMockAIService(8), err: types.ErrUnsupported}
	ai.GenerateFunc = func(ctx context.Context, req GenerateRequest) (string, error) {
		if blobParts(req) && req.Parts[1].Data != nil {
			return "inline", nil
		}
		return "", errors.New("no")
	}
	e := NewExtractorService(ai, ExtractorConfig{OCRModels: testModels, InlineLimitBytes: 4}, nil, zap.NewNop())

	text, err := e.Extract(context.Background(), []byte("\x89PNG\r\n\x1a\nimage"), "scan.png", "image/png")
	require.NoError(t, err)
	assert.Equal(t, "inline", text)
	assert.Empty(t, ai.deleted)
}

func TestExtract_AllOCRFails(t *testing.T) {
	ai := NewMockAIService(8)
	ai.GenerateFunc = func(ctx context.Context, req GenerateRequest) (string, error) {
		return "", errors.New("refused")
	}
	e := NewExtractorService(ai, ExtractorConfig{OCRModels: testModels}, nil, zap.NewNop())

	_, err := e.Extract(context.Background(), []byte("\x89PNG\r\n\x1a\nimage"), "scan.png", "image/png")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrExtraction)
	assert.Contains(t, err.Error(), "model-a/instruction-first")
}

func TestSummarizer(t *testing.T) {
	ai := NewMockAIService(8)
	var seen []GenerateRequest
	ai.GenerateFunc = func(ctx context.Context, req GenerateRequest) (string, error) {
		seen = append(seen, req)
		return strings.Repeat("kata ", 200) + "\n\nparagraf kedua", nil
	}
	s := NewSummarizerService(ai, SummarizerConfig{Models: testModels, MaxInputChars: 10}, nil, zap.NewNop())

	summary, err := s.SummarizeFromText(context.Background(), "0123456789abcdef")
	require.NoError(t, err)
	assert.Len(t, strings.Fields(summary), maxSummaryWords)
	assert.NotContains(t, summary, "\n")
	require.Len(t, seen, 1)
	assert.Equal(t, summaryInstruction, seen[0].Parts[0].Text)
	assert.Equal(t, "0123456789", seen[0].Parts[1].Text)

	_, err = s.SummarizeFromFile(context.Background(), []byte("PK"), "a.docx", utils.MimeDocx)
	assert.ErrorIs(t, err, types.ErrSummarization)
	_, err = s.SummarizeFromText(context.Background(), " ")
	assert.ErrorIs(t, err, types.ErrSummarization)
}

func TestSummarizer_MarkdownSentAsPlainText(t *testing.T) {
	ai := NewMockAIService(8)
	s := NewSummarizerService(ai, SummarizerConfig{Models: testModels}, nil, zap.NewNop())

	summary, err := s.SummarizeFromFile(context.Background(), []byte("# Judul\nisi"), "a.md", utils.MimeMarkdown)
	require.NoError(t, err)
	assert.Equal(t, "# Judul isi", summary)
	assert.Equal(t, utils.MimeText, ai.GenerateCalls()[0].Parts[1].MIMEType)
}

func TestEmbeddingService(t *testing.T) {
	ai := NewMockAIService(16)
	e := NewEmbeddingService(ai, "m", 16)

	v, err := e.Embed(context.Background(), "halo dunia")
	require.NoError(t, err)
	assert.Len(t, v, 16)
	assert.Equal(t, 16, e.Dimensions())

	wrong := NewEmbeddingService(ai, "m", 32)
	_, err = wrong.Embed(context.Background(), "halo dunia")
	assert.ErrorIs(t, err, types.ErrEmbedding)

	ai.EmbedFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("down")
	}
	_, err = e.Embed(context.Background(), "halo")
	assert.ErrorIs(t, err, types.ErrEmbedding)
}

func TestTranscriber_EmptyAudio(t *testing.T) {
	tr := NewTranscriberService(NewMockAIService(8), testModels, 0, nil, zap.NewNop())
	_, err := tr.Transcribe(context.Background(), nil, "a.webm", "audio/webm")
	assert.ErrorIs(t, err, types.ErrTranscription)
}
