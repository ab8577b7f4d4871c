package repository

import (
	"bytes"
	"context"
	"io"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tieubaoca/sikoma-be/types"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// MemoryStore keeps documents, chunks and blobs in process memory and answers
// vector queries by brute force. It backs the "memory" vector_store backend
// and the tests.
type MemoryStore struct {
	mu        sync.RWMutex
	documents map[string]*types.Document
	chunks    map[string]*types.Chunk
	blobs     map[string]memoryBlob
}

type memoryBlob struct {
	info types.BlobInfo
	data []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		documents: make(map[string]*types.Document),
		chunks:    make(map[string]*types.Chunk),
		blobs:     make(map[string]memoryBlob),
	}
}

func (s *MemoryStore) CreateDocument(ctx context.Context, doc *types.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if doc.ID == "" {
		doc.ID = bson.NewObjectID().Hex()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	stored := *doc
	s.documents[doc.ID] = &stored
	return nil
}

func (s *MemoryStore) GetDocument(ctx context.Context, id string) (*types.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	out := *doc
	return &out, nil
}

func (s *MemoryStore) UpdateDocument(ctx context.Context, doc *types.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[doc.ID]; !ok {
		return types.ErrNotFound
	}
	doc.UpdatedAt = time.Now().UTC()
	stored := *doc
	s.documents[doc.ID] = &stored
	return nil
}

func (s *MemoryStore) DeleteDocument(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[id]; !ok {
		return types.ErrNotFound
	}
	delete(s.documents, id)
	return nil
}

func (s *MemoryStore) ListDocuments(ctx context.Context, filter types.DocumentFilter, page, limit int64) ([]*types.Document, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := make([]*types.Document, 0, len(s.documents))
	query := strings.ToLower(filter.Query)
	for _, doc := range s.documents {
		if filter.OrganizationID != "" && doc.OrganizationID != filter.OrganizationID {
			continue
		}
		if filter.Status != "" && doc.Status != filter.Status {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(doc.Subject), query) {
			continue
		}
		out := *doc
		matched = append(matched, &out)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := int64(len(matched))
	start := (page - 1) * limit
	if start >= total {
		return []*types.Document{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (s *MemoryStore) InsertChunk(ctx context.Context, chunk *types.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	chunk.ID = bson.NewObjectID().Hex()
	if chunk.CreatedAt.IsZero() {
		chunk.CreatedAt = time.Now().UTC()
	}
	stored := *chunk
	stored.Embedding = append([]float32(nil), chunk.Embedding...)
	s.chunks[chunk.ID] = &stored
	return nil
}

func (s *MemoryStore) DeleteChunksByDocument(ctx context.Context, documentID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for id, chunk := range s.chunks {
		if chunk.DocumentID == documentID {
			delete(s.chunks, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *MemoryStore) CountChunksByDocument(ctx context.Context, documentID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, chunk := range s.chunks {
		if chunk.DocumentID == documentID {
			count++
		}
	}
	return count, nil
}

// ChunksByDocument returns the chunks of a document ordered by page.
func (s *MemoryStore) ChunksByDocument(documentID string) []types.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Chunk, 0)
	for _, chunk := range s.chunks {
		if chunk.DocumentID == documentID {
			out = append(out, *chunk)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Page < out[j].Page })
	return out
}

// SearchSimilar scores every chunk with (1 + cos) / 2, the scale Atlas uses.
func (s *MemoryStore) SearchSimilar(ctx context.Context, query types.VectorQuery) ([]types.ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := make([]types.ScoredChunk, 0)
	for _, chunk := range s.chunks {
		if query.OrganizationID != "" && chunk.OrganizationID != query.OrganizationID {
			continue
		}
		score := (1 + cosine(query.Vector, chunk.Embedding)) / 2
		if score < query.MinScore {
			continue
		}
		out := *chunk
		out.Embedding = nil
		results = append(results, types.ScoredChunk{Chunk: out, Score: score})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if query.Limit > 0 && len(results) > query.Limit {
		results = results[:query.Limit]
	}
	return results, nil
}

func (s *MemoryStore) UploadBlob(ctx context.Context, documentID, filename, contentType string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := bson.NewObjectID().Hex()
	s.blobs[id] = memoryBlob{
		info: types.BlobInfo{
			ID:          id,
			Filename:    filename,
			ContentType: contentType,
			Size:        int64(len(data)),
			DocumentID:  documentID,
			UploadedAt:  time.Now().UTC(),
		},
		data: data,
	}
	return id, nil
}

func (s *MemoryStore) OpenBlob(ctx context.Context, id string) (io.ReadCloser, *types.BlobInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.blobs[id]
	if !ok {
		return nil, nil, types.ErrNotFound
	}
	info := blob.info
	return io.NopCloser(bytes.NewReader(blob.data)), &info, nil
}

func (s *MemoryStore) DeleteBlob(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[id]; !ok {
		return types.ErrNotFound
	}
	delete(s.blobs, id)
	return nil
}

// BlobCount reports how many blobs are stored.
func (s *MemoryStore) BlobCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	if equalVectors(a, b) {
		return 1
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	c := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if c > 1 {
		c = 1
	}
	if c < -1 {
		c = -1
	}
	return c
}

func equalVectors(a, b []float32) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
