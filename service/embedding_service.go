package service

import (
	"context"
	"fmt"

	"github.com/tieubaoca/sikoma-be/types"
)

// Embedder produces fixed-length vectors for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// EmbeddingService calls the provider's embedding model. It does not retry;
// callers decide how to handle failures.
type EmbeddingService struct {
	ai         AIService
	model      string
	dimensions int
}

func NewEmbeddingService(ai AIService, model string, dimensions int) *EmbeddingService {
	return &EmbeddingService{
		ai:         ai,
		model:      model,
		dimensions: dimensions,
	}
}

// Embed fails with types.ErrEmbedding on a remote error or when the vector
// length differs from the configured dimensionality.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vector, err := s.ai.Embed(ctx, s.model, text, s.dimensions)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrEmbedding, err)
	}
	if len(vector) != s.dimensions {
		return nil, fmt.Errorf("%w: got %d dimensions, want %d", types.ErrEmbedding, len(vector), s.dimensions)
	}
	return vector, nil
}

func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}
