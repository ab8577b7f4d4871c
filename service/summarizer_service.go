package service

import (
	"context"
	"fmt"

	"github.com/tieubaoca/sikoma-be/metrics"
	"github.com/tieubaoca/sikoma-be/types"
	"github.com/tieubaoca/sikoma-be/utils"
	"go.uber.org/zap"
)

type SummarizerConfig struct {
	Models           []string
	InlineLimitBytes int64
	MaxInputChars    int
}

// SummarizerService produces short abstractive summaries in the language of
// the source.
type SummarizerService struct {
	ai            AIService
	uploader      FileUploader
	models        []string
	inlineLimit   int64
	maxInputChars int
	metrics       *metrics.Metrics
	logger        *zap.Logger
}

func NewSummarizerService(ai AIService, cfg SummarizerConfig, m *metrics.Metrics, logger *zap.Logger) *SummarizerService {
	uploader, _ := ai.(FileUploader)
	return &SummarizerService{
		ai:            ai,
		uploader:      uploader,
		models:        cfg.Models,
		inlineLimit:   cfg.InlineLimitBytes,
		maxInputChars: cfg.MaxInputChars,
		metrics:       m,
		logger:        logger,
	}
}

// SummarizeFromFile summarizes the file itself. Only formats a model can read
// directly are accepted; DOCX needs SummarizeFromText.
func (s *SummarizerService) SummarizeFromFile(ctx context.Context, data []byte, filename, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty file", types.ErrSummarization)
	}
	if !utils.IsPDF(mimeType) && !utils.IsImage(mimeType) && !utils.IsText(mimeType) {
		return "", fmt.Errorf("%w: %s cannot be read by the model", types.ErrSummarization, mimeType)
	}
	if utils.IsText(mimeType) {
		// models read markdown as plain text
		mimeType = utils.MimeText
	}
	payload, cleanup, err := filePayload(ctx, s.uploader, data, mimeType, filename, s.inlineLimit, s.logger)
	if err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrSummarization, err)
	}
	defer cleanup()
	return s.summarize(ctx, payload)
}

// SummarizeFromText summarizes already extracted text, truncated to the
// configured input limit.
func (s *SummarizerService) SummarizeFromText(ctx context.Context, text string) (string, error) {
	if !nonBlank(text) {
		return "", fmt.Errorf("%w: empty text", types.ErrSummarization)
	}
	if s.maxInputChars > 0 {
		text = truncateRunes(text, s.maxInputChars)
	}
	return s.summarize(ctx, TextPart(text))
}

func (s *SummarizerService) summarize(ctx context.Context, payload Part) (string, error) {
	attempts := orderedAttempts(s.models, summaryInstruction, payload, func(ctx context.Context, model string, parts []Part) (string, error) {
		text, err := s.ai.Generate(ctx, GenerateRequest{
			Model:       model,
			Parts:       parts,
			Temperature: 0.2,
		})
		return NormalizeSummary(text), err
	})
	summary, strategy, err := FirstSuccess(ctx, attempts, nonBlank)
	if err != nil {
		s.metrics.StrategiesExhausted("summarize")
		return "", fmt.Errorf("%w: %w", types.ErrSummarization, err)
	}
	s.logger.Debug("Generated summary", zap.String("strategy", strategy))
	return summary, nil
}
