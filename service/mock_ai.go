package service

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/tieubaoca/sikoma-be/types"
)

// MockAIService is a deterministic offline provider for tests and local runs.
// Embeddings are hashed bags of words, so texts sharing vocabulary score
// high. Generation echoes the textual payload unless GenerateFunc is set.
type MockAIService struct {
	dimensions int

	GenerateFunc   func(ctx context.Context, req GenerateRequest) (string, error)
	EmbedFunc      func(ctx context.Context, text string) ([]float32, error)
	TranscribeFunc func(ctx context.Context, audio []byte, filename, mimeType string) (string, error)

	mu            sync.Mutex
	generateCalls []GenerateRequest
	embedCalls    int
}

func NewMockAIService(dimensions int) *MockAIService {
	if dimensions <= 0 {
		dimensions = 768
	}
	return &MockAIService{dimensions: dimensions}
}

func (m *MockAIService) Embed(ctx context.Context, model, text string, dimensions int) ([]float32, error) {
	m.mu.Lock()
	m.embedCalls++
	m.mu.Unlock()
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, text)
	}
	return HashEmbedding(text, m.dimensions), nil
}

func (m *MockAIService) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	m.mu.Lock()
	m.generateCalls = append(m.generateCalls, req)
	m.mu.Unlock()
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return echoPayload(req), nil
}

func (m *MockAIService) Transcribe(ctx context.Context, audio []byte, filename, mimeType string) (string, error) {
	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, audio, filename, mimeType)
	}
	return "", types.ErrUnsupported
}

// GenerateCalls returns a copy of every request seen so far.
func (m *MockAIService) GenerateCalls() []GenerateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]GenerateRequest(nil), m.generateCalls...)
}

func (m *MockAIService) EmbedCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.embedCalls
}

// echoPayload returns the textual file payload of a request, or the last
// text part when there is none. Binary payloads cannot be read, so requests
// carrying one get an empty answer.
func echoPayload(req GenerateRequest) string {
	var text string
	for _, p := range req.Parts {
		switch {
		case p.Data != nil && utf8.Valid(p.Data) && strings.HasPrefix(p.MIMEType, "text/"):
			return string(p.Data)
		case p.Data != nil || p.FileURI != "":
			return ""
		default:
			text = p.Text
		}
	}
	return text
}

// HashEmbedding maps every word of text to a bucket of a unit-length vector.
func HashEmbedding(text string, dimensions int) []float32 {
	v := make([]float32, dimensions)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		v[h.Sum32()%uint32(dimensions)]++
	}
	var sum float64
	for _, x := range v {
		sum += float64(x * x)
	}
	if sum == 0 {
		v[0] = 1
		return v
	}
	norm := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= norm
	}
	return v
}
