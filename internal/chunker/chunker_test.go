package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"ragchat/internal/domain"
)

func TestNewSplitterInvalidConfig(t *testing.T) {
	cases := []struct{ size, overlap int }{
		{0, 0},
		{-1, 0},
		{100, 100},
		{100, 150},
		{100, -1},
	}
	for _, c := range cases {
		_, err := NewSplitter(c.size, c.overlap)
		require.ErrorIs(t, err, domain.ErrInvalidChunkConfig,
			"size=%d overlap=%d", c.size, c.overlap)
	}
}

func TestChunkEmptyDocument(t *testing.T) {
	s, err := NewSplitter(100, 20)
	require.NoError(t, err)
	chunks, err := s.Chunk(domain.Document{Source: "empty.txt", Content: "  \n\n  "})
	require.NoError(t, err)
	require.Empty(t, chunks)
}

func TestChunkShortDocumentIsSingleChunk(t *testing.T) {
	s, err := NewSplitter(1000, 200)
	require.NoError(t, err)
	chunks, err := s.Chunk(domain.Document{Source: "short.txt", Content: "One sentence. Another one."})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Equal(t, "One sentence. Another one.", chunks[0].Text)
	require.Equal(t, "short.txt", chunks[0].Source)
	require.Equal(t, 0, chunks[0].Offset)
}

// 25 sentences of 93 characters joined by spaces: with chunk_size=1000 and
// chunk_overlap=200 the windows pack 10 sentences and carry the last two
// over, so the chunk boundaries are fully predictable.
func TestChunkOverlappingWindows(t *testing.T) {
	sentences := make([]string, 25)
	for i := range sentences {
		sentences[i] = fmt.Sprintf("Sentence %02d %s.", i, strings.Repeat("x", 80))
		require.Len(t, sentences[i], 93)
	}
	doc := domain.Document{Source: "book.txt", Content: strings.Join(sentences, " ")}
	require.Len(t, doc.Content, 25*93+24)

	s, err := NewSplitter(1000, 200)
	require.NoError(t, err)
	chunks, err := s.Chunk(doc)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	require.Equal(t, strings.Join(sentences[0:10], " "), chunks[0].Text)
	require.Equal(t, strings.Join(sentences[8:18], " "), chunks[1].Text)
	require.Equal(t, strings.Join(sentences[16:25], " "), chunks[2].Text)

	// overlap: each chunk starts with the trailing sentences of the previous
	for i := 1; i < len(chunks); i++ {
		head := chunks[i].Text[:187] // two carried sentences plus the join
		require.True(t, strings.HasSuffix(chunks[i-1].Text, head))
	}
	// no chunk exceeds the window and none but the last is shorter than
	// size minus overlap
	for i, ch := range chunks {
		require.LessOrEqual(t, len(ch.Text), 1000)
		if i < len(chunks)-1 {
			require.GreaterOrEqual(t, len(ch.Text), 800)
		}
	}
	// offsets point at the chunk's first sentence in the original text
	require.Equal(t, 0, chunks[0].Offset)
	require.Equal(t, 8*94, chunks[1].Offset)
	require.Equal(t, 16*94, chunks[2].Offset)
}

func TestChunkPrefersParagraphBoundaries(t *testing.T) {
	paraA := strings.Repeat("a", 100)
	paraB := strings.Repeat("b", 100)
	doc := domain.Document{Source: "p.txt", Content: paraA + "\n\n" + paraB}

	s, err := NewSplitter(120, 20)
	require.NoError(t, err)
	chunks, err := s.Chunk(doc)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	require.Equal(t, paraA, chunks[0].Text)
	require.Equal(t, paraB, chunks[1].Text)
	require.Equal(t, 102, chunks[1].Offset)
}

func TestChunkKeepsOversizedSentenceWhole(t *testing.T) {
	sentence := strings.Repeat("word ", 59) + "done."
	require.Greater(t, len(sentence), 100)

	s, err := NewSplitter(100, 10)
	require.NoError(t, err)
	chunks, err := s.Chunk(domain.Document{Source: "long.txt", Content: sentence})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Equal(t, strings.TrimSpace(sentence), chunks[0].Text)
}

func TestChunkHardSplitsPunctuationlessText(t *testing.T) {
	blob := strings.Repeat("z", 250)
	s, err := NewSplitter(100, 10)
	require.NoError(t, err)
	chunks, err := s.Chunk(domain.Document{Source: "blob.txt", Content: blob})
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for _, ch := range chunks {
		require.LessOrEqual(t, len(ch.Text), 100)
	}
	require.Equal(t, 0, chunks[0].Offset)
	require.Equal(t, 100, chunks[1].Offset)
	require.Equal(t, 200, chunks[2].Offset)
}

func TestChunkCarriesPageMarker(t *testing.T) {
	s, err := NewSplitter(1000, 200)
	require.NoError(t, err)
	chunks, err := s.Chunk(domain.Document{Source: "book.pdf", Page: 7, Content: "A page of text."})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Equal(t, 7, chunks[0].Page)
}
