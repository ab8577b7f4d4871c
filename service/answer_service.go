package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/tieubaoca/sikoma-be/types"
	"go.uber.org/zap"
)

// AnswerService writes an answer grounded only in retrieved chunks.
type AnswerService struct {
	ai     AIService
	model  string
	logger *zap.Logger
}

func NewAnswerService(ai AIService, model string, logger *zap.Logger) *AnswerService {
	return &AnswerService{ai: ai, model: model, logger: logger}
}

// Answer never fails: remote errors yield AnswerFallback.
func (s *AnswerService) Answer(ctx context.Context, query string, hits []types.SearchHit) string {
	var sources strings.Builder
	for i, hit := range hits {
		fmt.Fprintf(&sources, "[%d] %s (page %d)\n%s\n\n", i+1, hit.Subject, hit.Page, hit.ChunkText)
	}
	prompt := fmt.Sprintf("Context:\n%s\nQuestion: %s", sources.String(), query)

	answer, err := s.ai.Generate(ctx, GenerateRequest{
		Model:             s.model,
		SystemInstruction: answerSystemInstruction,
		Parts:             []Part{TextPart(prompt)},
		Temperature:       0.1,
	})
	answer = strings.TrimSpace(answer)
	if err != nil || answer == "" {
		s.logger.Warn("Failed to generate answer", zap.Error(err))
		return AnswerFallback
	}
	return answer
}
