package service

import (
	"strings"
)

const (
	DefaultChunkSize    = 900
	DefaultChunkOverlap = 120
)

// Chunker splits text into overlapping word-based windows.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap (in words).
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

func (c *Chunker) Split(text string) []string {
	return ChunkWords(text, c.chunkSize, c.chunkOverlap)
}

// ChunkWords splits text on whitespace into windows of at most max words,
// consecutive windows sharing overlap words. Whitespace-only text yields an
// empty slice.
func ChunkWords(text string, max, overlap int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{}
	}
	if max <= 0 {
		max = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= max {
		overlap = max - 1
	}
	step := max - overlap

	chunks := make([]string, 0, len(words)/step+1)
	for i := 0; i < len(words); i += step {
		end := i + max
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
		if end >= len(words) {
			break
		}
	}
	return chunks
}

// EstimateTokens approximates the token count of text as ceil(chars/4).
func EstimateTokens(text string) int {
	n := len([]rune(text))
	return (n + 3) / 4
}
