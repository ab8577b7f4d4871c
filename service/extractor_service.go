package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tieubaoca/sikoma-be/metrics"
	"github.com/tieubaoca/sikoma-be/types"
	"github.com/tieubaoca/sikoma-be/utils"
	"go.uber.org/zap"
)

type ExtractorConfig struct {
	OCRModels        []string
	InlineLimitBytes int64
}

// ExtractorService turns an uploaded file into plain text.
type ExtractorService struct {
	ai          AIService
	uploader    FileUploader
	pdf         *PDFService
	models      []string
	inlineLimit int64
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

func NewExtractorService(ai AIService, cfg ExtractorConfig, m *metrics.Metrics, logger *zap.Logger) *ExtractorService {
	uploader, _ := ai.(FileUploader)
	return &ExtractorService{
		ai:          ai,
		uploader:    uploader,
		pdf:         NewPDFService(logger),
		models:      cfg.OCRModels,
		inlineLimit: cfg.InlineLimitBytes,
		metrics:     m,
		logger:      logger,
	}
}

// Extract returns the text of data. PDFs and images go through remote OCR
// (PDFs fall back to their local text layer), DOCX and text files are read
// locally. Any failure or empty result wraps types.ErrExtraction.
func (s *ExtractorService) Extract(ctx context.Context, data []byte, filename, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty file", types.ErrExtraction)
	}
	if mimeType == "" || mimeType == utils.MimeOctet {
		mimeType = utils.DetectMimeType(data, filename)
	}

	var (
		text string
		err  error
	)
	switch {
	case utils.IsText(mimeType):
		if !utf8.Valid(data) {
			err = errors.New("text file is not valid UTF-8")
		}
		text = strings.TrimSpace(string(data))
	case utils.IsDocx(mimeType):
		text, err = extractDOCX(data)
	case utils.IsPDF(mimeType), utils.IsImage(mimeType):
		text, err = s.ocr(ctx, data, filename, mimeType)
	default:
		err = fmt.Errorf("unsupported mime type %q", mimeType)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrExtraction, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: no text found", types.ErrExtraction)
	}
	return text, nil
}

func (s *ExtractorService) ocr(ctx context.Context, data []byte, filename, mimeType string) (string, error) {
	var attempts []Attempt[string]
	if len(s.models) > 0 {
		payload, cleanup, err := filePayload(ctx, s.uploader, data, mimeType, filename, s.inlineLimit, s.logger)
		if err != nil {
			s.logger.Warn("Failed to prepare OCR payload", zap.Error(err))
		} else {
			defer cleanup()
			attempts = orderedAttempts(s.models, ocrInstruction, payload, s.generate)
		}
	}
	if utils.IsPDF(mimeType) {
		attempts = append(attempts, Attempt[string]{
			Name: "pdf-text-layer",
			Run: func(ctx context.Context) (string, error) {
				return s.pdf.ExtractText(data)
			},
		})
	}

	text, strategy, err := FirstSuccess(ctx, attempts, nonBlank)
	if err != nil {
		s.metrics.StrategiesExhausted("ocr")
		s.logger.Warn("All extraction strategies failed", zap.String("filename", filename), zap.Error(err))
		return "", err
	}
	s.logger.Debug("Extracted text", zap.String("filename", filename), zap.String("strategy", strategy), zap.Int("chars", len(text)))
	return text, nil
}

func (s *ExtractorService) generate(ctx context.Context, model string, parts []Part) (string, error) {
	text, err := s.ai.Generate(ctx, GenerateRequest{
		Model: model,
		Parts: parts,
	})
	return strings.TrimSpace(text), err
}

func nonBlank(s string) bool {
	return strings.TrimSpace(s) != ""
}
