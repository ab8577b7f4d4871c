package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numberedWords(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(words, " ")
}

func TestChunkWords_Empty(t *testing.T) {
	chunks := ChunkWords("  \n\t ", 10, 2)
	require.NotNil(t, chunks)
	assert.Empty(t, chunks)
}

func TestChunkWords_ShortText(t *testing.T) {
	chunks := ChunkWords("one  two\nthree", 10, 2)
	assert.Equal(t, []string{"one two three"}, chunks)
}

func TestChunkWords_Count(t *testing.T) {
	cases := []struct {
		words, max, overlap, want int
	}{
		{words: 10, max: 10, overlap: 2, want: 1},
		{words: 11, max: 10, overlap: 2, want: 2},
		{words: 100, max: 10, overlap: 0, want: 10},
		{words: 100, max: 10, overlap: 3, want: 14},
		{words: 2000, max: 900, overlap: 120, want: 3},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d_%d_%d", tc.words, tc.max, tc.overlap), func(t *testing.T) {
			chunks := ChunkWords(numberedWords(tc.words), tc.max, tc.overlap)
			assert.Len(t, chunks, tc.want)
			for _, c := range chunks {
				assert.LessOrEqual(t, len(strings.Fields(c)), tc.max)
			}
		})
	}
}

func TestChunkWords_Reconstruction(t *testing.T) {
	text := numberedWords(57)
	overlap := 4
	chunks := ChunkWords(text, 12, overlap)

	words := strings.Fields(chunks[0])
	for _, c := range chunks[1:] {
		cw := strings.Fields(c)
		assert.Equal(t, words[len(words)-overlap:], cw[:overlap])
		words = append(words, cw[overlap:]...)
	}
	assert.Equal(t, text, strings.Join(words, " "))
}

func TestChunkWords_OverlapNotSmallerThanMax(t *testing.T) {
	chunks := ChunkWords(numberedWords(6), 3, 5)
	// clamped to stride 1
	assert.Equal(t, []string{"w0 w1 w2", "w1 w2 w3", "w2 w3 w4", "w3 w4 w5"}, chunks)
}

func TestChunkWords_Defaults(t *testing.T) {
	chunks := ChunkWords(numberedWords(1000), 0, -5)
	require.Len(t, chunks, 2)
	assert.Len(t, strings.Fields(chunks[0]), DefaultChunkSize)
	assert.Len(t, strings.Fields(chunks[1]), 100)
}

func TestChunker_Split(t *testing.T) {
	c := NewChunker(3, 1)
	chunks := c.Split("one two three four five six seven")
	assert.Equal(t, []string{"one two three", "three four five", "five six seven"}, chunks)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
}
