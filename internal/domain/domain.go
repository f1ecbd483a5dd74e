package domain

import "context"

// Document is a single piece of source text handed to ingestion.
// Source identifies where the text came from (file path, URL); Page is an
// optional position marker for paginated sources and is zero otherwise.
type Document struct {
	Source  string
	Page    int
	Content string
}

// Chunk is one retrievable unit of text with its provenance.
type Chunk struct {
	Text   string
	Source string
	Page   int
	Offset int
}

// SearchResult is a single ranked hit from the vector index.
type SearchResult struct {
	ID      int
	Score   float64
	Payload Payload
}

// Citation points back at the material an answer was grounded on.
type Citation struct {
	Source string
	Page   int
	Score  float64
}

// Turn is one completed question/answer exchange within a session.
// Turns are append-only; earlier turns are never edited.
type Turn struct {
	Question  string
	Answer    string
	Citations []Citation
}

// GenerateRequest carries everything the text generator needs for one turn.
type GenerateRequest struct {
	System   string
	History  []Turn
	Context  []string
	Question string
}

// Embedder converts free text into a numeric vector representation.
// EmbedMany must preserve input order. Dimension may be zero until the
// first embedding has been produced (remote models report it lazily).
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedMany(ctx context.Context, texts []string) ([][]float64, error)
}

// Generator produces a natural-language answer for a composed request.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// Chunker splits a document into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// Retriever resolves free text into the top-k most similar indexed items.
type Retriever interface {
	Retrieve(ctx context.Context, text string, k int) ([]SearchResult, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
