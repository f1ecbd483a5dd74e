package retriever

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ragchat/internal/domain"
	"ragchat/internal/index"
)

// Retriever is the query-time facade over the vector index: free text in,
// top-k indexed items out. Normalization for cosine similarity happens
// inside the index so query and stored vectors are treated identically.
type Retriever struct {
	embedder domain.Embedder
	index    *index.Index
}

// New creates a retriever over an already built or loaded index.
func New(embedder domain.Embedder, ix *index.Index) *Retriever {
	return &Retriever{embedder: embedder, index: ix}
}

// Retrieve embeds the text and returns the top-k most similar items. An
// empty index surfaces as ErrIndexNotReady: ingest first, then retry.
func (r *Retriever) Retrieve(ctx context.Context, text string, k int) ([]domain.SearchResult, error) {
	vec, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w: %w", domain.ErrEmbeddingFailure, err)
	}
	results, err := r.index.Search(vec, k)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyIndex) {
			return nil, domain.ErrIndexNotReady
		}
		return nil, err
	}
	return results, nil
}

// RetrieveSkills retrieves with a multi-keyword query. The keywords are
// flattened into a single comma-separated string before embedding; keeping
// this exact joining stable matters because it affects embedding semantics.
func (r *Retriever) RetrieveSkills(ctx context.Context, skills []string, k int) ([]domain.SearchResult, error) {
	return r.Retrieve(ctx, JoinSkills(skills), k)
}

// JoinSkills flattens a skill list into the query string form used at both
// ingest and query time.
func JoinSkills(skills []string) string {
	return strings.Join(skills, ", ")
}
