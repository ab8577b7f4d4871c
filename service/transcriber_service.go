package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/tieubaoca/sikoma-be/metrics"
	"github.com/tieubaoca/sikoma-be/types"
	"github.com/tieubaoca/sikoma-be/utils"
	"go.uber.org/zap"
)

const defaultAudioMimeType = "audio/webm"

type TranscriberService struct {
	ai          AIService
	native      NativeTranscriber
	uploader    FileUploader
	models      []string
	inlineLimit int64
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

func NewTranscriberService(ai AIService, models []string, inlineLimit int64, m *metrics.Metrics, logger *zap.Logger) *TranscriberService {
	native, _ := ai.(NativeTranscriber)
	uploader, _ := ai.(FileUploader)
	return &TranscriberService{
		ai:          ai,
		native:      native,
		uploader:    uploader,
		models:      models,
		inlineLimit: inlineLimit,
		metrics:     m,
		logger:      logger,
	}
}

// Transcribe converts speech to text, trying the provider's speech endpoint
// first and then each transcription model. Failures wrap types.ErrTranscription.
func (s *TranscriberService) Transcribe(ctx context.Context, audio []byte, filename, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("%w: empty audio", types.ErrTranscription)
	}
	mimeType = utils.NormalizeMimeType(mimeType)
	if !utils.IsAudio(mimeType) {
		// browsers often post recordings as octet-stream
		if sniffed := utils.DetectMimeType(audio, filename); utils.IsAudio(sniffed) {
			mimeType = sniffed
		} else {
			mimeType = defaultAudioMimeType
		}
	}

	var attempts []Attempt[string]
	if s.native != nil {
		attempts = append(attempts, Attempt[string]{
			Name: "native",
			Run: func(ctx context.Context) (string, error) {
				text, err := s.native.Transcribe(ctx, audio, filename, mimeType)
				return strings.TrimSpace(text), err
			},
		})
	}
	if len(s.models) > 0 {
		payload, cleanup, err := filePayload(ctx, s.uploader, audio, mimeType, filename, s.inlineLimit, s.logger)
		if err != nil {
			s.logger.Warn("Failed to prepare audio payload", zap.Error(err))
		} else {
			defer cleanup()
			attempts = append(attempts, orderedAttempts(s.models, transcribeInstruction, payload, func(ctx context.Context, model string, parts []Part) (string, error) {
				text, err := s.ai.Generate(ctx, GenerateRequest{Model: model, Parts: parts})
				return strings.TrimSpace(text), err
			})...)
		}
	}

	transcript, strategy, err := FirstSuccess(ctx, attempts, nonBlank)
	if err != nil {
		s.metrics.StrategiesExhausted("transcribe")
		return "", fmt.Errorf("%w: %w", types.ErrTranscription, err)
	}
	s.logger.Debug("Transcribed audio", zap.String("strategy", strategy), zap.Int("chars", len(transcript)))
	return transcript, nil
}
