package retriever

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"ragchat/internal/domain"
	"ragchat/internal/index"
)

// stubEmbedder maps known texts onto fixed vectors.
type stubEmbedder struct {
	dim     int
	vectors map[string][]float64
}

func (s *stubEmbedder) Name() string   { return "stub" }
func (s *stubEmbedder) Dimension() int { return s.dim }

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	v, ok := s.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no stub vector for %q", text)
	}
	return v, nil
}

func (s *stubEmbedder) EmbedMany(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		v, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func TestJoinSkills(t *testing.T) {
	require.Equal(t, "python, react", JoinSkills([]string{"python", "react"}))
	require.Equal(t, "go", JoinSkills([]string{"go"}))
	require.Equal(t, "", JoinSkills(nil))
}

func TestRetrievePortfolioExample(t *testing.T) {
	ix, err := index.New(2, index.Cosine)
	require.NoError(t, err)
	require.NoError(t, ix.AddBatch(
		[][]float64{
			{1, 1}, // "python, react"
			{0, 1}, // "java, spring"
		},
		[]domain.Payload{
			domain.LinkPayload{URL: "linkA"},
			domain.LinkPayload{URL: "linkB"},
		},
	))
	emb := &stubEmbedder{dim: 2, vectors: map[string][]float64{
		"python": {1, 0},
	}}
	r := New(emb, ix)

	results, err := r.Retrieve(context.Background(), "python", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, domain.LinkPayload{URL: "linkA"}, results[0].Payload)
}

func TestRetrieveSkillsFlattensQuery(t *testing.T) {
	ix, err := index.New(2, index.Cosine)
	require.NoError(t, err)
	require.NoError(t, ix.AddBatch(
		[][]float64{{1, 0}},
		[]domain.Payload{domain.LinkPayload{URL: "linkA"}},
	))
	emb := &stubEmbedder{dim: 2, vectors: map[string][]float64{
		"python, react": {1, 0},
	}}
	r := New(emb, ix)

	// fails unless the skills were joined exactly as "python, react"
	results, err := r.RetrieveSkills(context.Background(), []string{"python", "react"}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestRetrieveEmptyIndexIsNotReady(t *testing.T) {
	ix, err := index.New(2, index.Cosine)
	require.NoError(t, err)
	emb := &stubEmbedder{dim: 2, vectors: map[string][]float64{"q": {1, 0}}}
	r := New(emb, ix)

	_, err = r.Retrieve(context.Background(), "q", 3)
	require.ErrorIs(t, err, domain.ErrIndexNotReady)
}

func TestRetrieveEmbedFailurePropagates(t *testing.T) {
	ix, err := index.New(2, index.Cosine)
	require.NoError(t, err)
	require.NoError(t, ix.AddBatch(
		[][]float64{{1, 0}},
		[]domain.Payload{domain.LinkPayload{URL: "linkA"}},
	))
	r := New(&stubEmbedder{dim: 2, vectors: map[string][]float64{}}, ix)

	_, err = r.Retrieve(context.Background(), "unknown", 1)
	require.ErrorIs(t, err, domain.ErrEmbeddingFailure)
	require.Contains(t, err.Error(), "embed query")
}
