package summarizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSummarizeLimitsSentenceCount(t *testing.T) {
	s := NewFrequencySummarizer()
	text := "Go has goroutines. Go has channels. Go compiles fast. Rust has ownership. Rust is strict. Cats purr."
	out, err := s.Summarize(text, 2)
	require.NoError(t, err)
	require.NotEmpty(t, out)
	require.LessOrEqual(t, strings.Count(out, "."), 2)
}

func TestSummarizePreservesOriginalOrder(t *testing.T) {
	s := NewFrequencySummarizer()
	text := "Alpha topic sentence one. Beta filler. Alpha topic sentence two."
	out, err := s.Summarize(text, 3)
	require.NoError(t, err)
	first := strings.Index(out, "one")
	second := strings.Index(out, "two")
	require.Greater(t, first, -1)
	require.Greater(t, second, first)
}

func TestSummarizeTextWithoutSentences(t *testing.T) {
	s := NewFrequencySummarizer()
	out, err := s.Summarize("  just a fragment without punctuation  ", 3)
	require.NoError(t, err)
	require.Equal(t, "just a fragment without punctuation", out)
}
