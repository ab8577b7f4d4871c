package service

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/tieubaoca/sikoma-be/metrics"
	"github.com/tieubaoca/sikoma-be/repository"
	"github.com/tieubaoca/sikoma-be/types"
	"go.uber.org/zap"
)

const (
	minNumCandidates = 40
	minSearchLimit   = 20
)

// Transcriber converts recorded speech to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename, mimeType string) (string, error)
}

// Answerer writes an answer from retrieved hits.
type Answerer interface {
	Answer(ctx context.Context, query string, hits []types.SearchHit) string
}

type SearchConfig struct {
	DefaultTopK      int
	MaxTopK          int
	DefaultThreshold float64
}

// SearchService answers semantic queries over the chunk index
type SearchService struct {
	chunks      repository.ChunkRepo
	docs        repository.DocumentRepo
	embedder    Embedder
	transcriber Transcriber
	answerer    Answerer
	cfg         SearchConfig
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

func NewSearchService(
	chunks repository.ChunkRepo,
	docs repository.DocumentRepo,
	embedder Embedder,
	transcriber Transcriber,
	answerer Answerer,
	cfg SearchConfig,
	m *metrics.Metrics,
	logger *zap.Logger,
) *SearchService {
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = 8
	}
	if cfg.MaxTopK <= 0 {
		cfg.MaxTopK = 50
	}
	return &SearchService{
		chunks:      chunks,
		docs:        docs,
		embedder:    embedder,
		transcriber: transcriber,
		answerer:    answerer,
		cfg:         cfg,
		metrics:     m,
		logger:      logger,
	}
}

// Search embeds the query and returns the chunks scoring at least the
// threshold, best first.
// Parameters:
//   - ctx: Context for handling cancellation and timeouts
//   - req: Query text, topK, threshold, answer flag and organization scope
//
// Returns:
//   - *types.SearchResponse: At most topK hits sorted by descending score
//   - error: ValidationError for an empty query, EmbeddingError when the query cannot be embedded
func (s *SearchService) Search(ctx context.Context, req types.SearchRequest) (*types.SearchResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, types.NewValidationError("query", "query is required")
	}
	resp, err := s.search(ctx, query, req)
	if err != nil {
		s.metrics.SearchFinished("text", "error", 0)
		return nil, err
	}
	s.metrics.SearchFinished("text", "ok", resp.HitCount)
	return resp, nil
}

// SearchVoice transcribes audio and searches with the transcript. A failed
// or empty transcription yields an empty response rather than an error.
// Parameters:
//   - ctx: Context for handling cancellation and timeouts
//   - audio: Recorded query
//   - filename, mimeType: Describe the recording format
//   - req: Search options; Query is ignored
//
// Returns:
//   - *types.SearchResponse: Hits plus transcript and query vector dimensionality
//   - error: EmbeddingError when the transcript cannot be embedded
func (s *SearchService) SearchVoice(ctx context.Context, audio []byte, filename, mimeType string, req types.SearchRequest) (*types.SearchResponse, error) {
	if len(audio) == 0 {
		return nil, types.NewValidationError("audio", "audio is required")
	}
	transcript, err := s.transcriber.Transcribe(ctx, audio, filename, mimeType)
	if err != nil {
		s.logger.Warn("Voice query transcription failed", zap.Error(err))
		transcript = ""
	}
	transcript = strings.TrimSpace(transcript)
	qdim := 0
	if transcript == "" {
		s.metrics.SearchFinished("voice", "empty_transcript", 0)
		return &types.SearchResponse{
			Query:      "",
			HitCount:   0,
			Hits:       []types.SearchHit{},
			Transcript: &transcript,
			QDim:       &qdim,
		}, nil
	}

	resp, err := s.search(ctx, transcript, req)
	if err != nil {
		s.metrics.SearchFinished("voice", "error", 0)
		return nil, err
	}
	qdim = s.embedder.Dimensions()
	resp.Transcript = &transcript
	resp.QDim = &qdim
	s.metrics.SearchFinished("voice", "ok", resp.HitCount)
	return resp, nil
}

func (s *SearchService) search(ctx context.Context, query string, req types.SearchRequest) (*types.SearchResponse, error) {
	topK := s.topK(req.TopK)
	threshold := s.threshold(req.Threshold)

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	results, err := s.chunks.SearchSimilar(ctx, types.VectorQuery{
		Vector:         vector,
		NumCandidates:  max(minNumCandidates, topK*6),
		Limit:          max(minSearchLimit, topK*2),
		MinScore:       threshold,
		OrganizationID: req.OrganizationID,
	})
	if err != nil {
		return nil, err
	}

	hits := rankHits(results, threshold, topK)
	s.attachSubjects(ctx, hits)

	resp := &types.SearchResponse{
		Query:    query,
		HitCount: len(hits),
		Hits:     hits,
	}
	if req.WithAnswer && len(hits) > 0 && s.answerer != nil {
		resp.Answer = s.answerer.Answer(ctx, query, hits)
	}
	s.logger.Debug("Search finished",
		zap.String("query", query),
		zap.Int("candidates", len(results)),
		zap.Int("hits", len(hits)),
		zap.Float64("threshold", threshold),
	)
	return resp, nil
}

// rankHits keeps results scoring at least threshold, sorted by descending
// score and cut to topK.
func rankHits(results []types.ScoredChunk, threshold float64, topK int) []types.SearchHit {
	hits := make([]types.SearchHit, 0, len(results))
	for _, r := range results {
		if r.Score < threshold {
			continue
		}
		hits = append(hits, types.SearchHit{
			ChunkText:  r.Chunk.Text,
			DocumentID: r.Chunk.DocumentID,
			Page:       r.Chunk.Page,
			Score:      r.Score,
		})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

// attachSubjects fills each hit's document subject; lookup failures only
// leave the subject empty.
func (s *SearchService) attachSubjects(ctx context.Context, hits []types.SearchHit) {
	subjects := make(map[string]string)
	for i := range hits {
		id := hits[i].DocumentID
		subject, ok := subjects[id]
		if !ok {
			if doc, err := s.docs.GetDocument(ctx, id); err == nil {
				subject = doc.Subject
			}
			subjects[id] = subject
		}
		hits[i].Subject = subject
	}
}

func (s *SearchService) topK(requested int) int {
	if requested <= 0 {
		return s.cfg.DefaultTopK
	}
	return min(requested, s.cfg.MaxTopK)
}

func (s *SearchService) threshold(requested *float64) float64 {
	t := s.cfg.DefaultThreshold
	if requested != nil && !math.IsNaN(*requested) {
		t = *requested
	}
	return math.Max(0, math.Min(1, t))
}
