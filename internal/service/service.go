package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"ragchat/internal/domain"
	"ragchat/internal/index"
	"ragchat/internal/portfolio"
	"ragchat/internal/retriever"
)

// Service owns the index lifecycle: ingest raw material into a fresh index,
// persist it, or reload a previously persisted one. The index is rebuilt
// wholesale when content changes; there is no partial update.
type Service struct {
	chunker    domain.Chunker
	embedder   domain.Embedder
	summarizer domain.Summarizer
	dir        string
	metric     index.Metric
	log        *zap.Logger

	mu  sync.Mutex
	idx *index.Index
}

// IngestReport describes the observable outcome of a load or build step.
type IngestReport struct {
	Loaded    bool
	Items     int
	Dimension int
	Summary   string
}

// New creates a service persisting its index under dir.
func New(chunker domain.Chunker, embedder domain.Embedder, summarizer domain.Summarizer, dir string, metric index.Metric, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		chunker:    chunker,
		embedder:   embedder,
		summarizer: summarizer,
		dir:        dir,
		metric:     metric,
		log:        log,
	}
}

// Ready reports whether an index is loaded and non-empty.
func (s *Service) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idx != nil && s.idx.Len() > 0
}

// Load reloads the persisted index from disk.
func (s *Service) Load() (*IngestReport, error) {
	ix, err := index.Load(s.dir)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.idx = ix
	s.mu.Unlock()
	s.log.Info("index loaded",
		zap.String("dir", s.dir),
		zap.Int("items", ix.Len()),
		zap.Int("dimension", ix.Dimension()))
	return &IngestReport{Loaded: true, Items: ix.Len(), Dimension: ix.Dimension()}, nil
}

// LoadOrBuild loads the persisted index, falling back to build when nothing
// has been persisted yet. Only ErrNotFound triggers the build; a corrupt
// index is surfaced to the caller.
func (s *Service) LoadOrBuild(ctx context.Context, build func(context.Context) (*IngestReport, error)) (*IngestReport, error) {
	report, err := s.Load()
	if err == nil {
		return report, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	s.log.Info("no persisted index, building", zap.String("dir", s.dir))
	return build(ctx)
}

// IngestDocuments chunks the documents, embeds every chunk, builds a fresh
// index and persists it.
func (s *Service) IngestDocuments(ctx context.Context, docs []domain.Document) (*IngestReport, error) {
	if len(docs) == 0 {
		return nil, errors.New("no documents to ingest")
	}
	var texts []string
	var payloads []domain.Payload
	var corpus strings.Builder
	for _, d := range docs {
		chunks, err := s.chunker.Chunk(d)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", d.Source, err)
		}
		for _, ch := range chunks {
			texts = append(texts, ch.Text)
			payloads = append(payloads, domain.PassagePayload{
				Text:   ch.Text,
				Source: ch.Source,
				Page:   ch.Page,
				Offset: ch.Offset,
			})
		}
		corpus.WriteString(d.Content)
		corpus.WriteString("\n")
	}
	if len(texts) == 0 {
		return nil, errors.New("documents produced no chunks")
	}
	report, err := s.build(ctx, texts, payloads)
	if err != nil {
		return nil, err
	}
	if s.summarizer != nil {
		summary, err := s.summarizer.Summarize(corpus.String(), 5)
		if err == nil {
			report.Summary = summary
		}
	}
	return report, nil
}

// IngestPortfolio indexes portfolio rows. Each row already is one
// retrievable unit, so no splitting is applied: the tech stack is the
// indexed text and the link is its payload.
func (s *Service) IngestPortfolio(ctx context.Context, entries []portfolio.Entry) (*IngestReport, error) {
	if len(entries) == 0 {
		return nil, errors.New("no portfolio entries to ingest")
	}
	texts := make([]string, len(entries))
	payloads := make([]domain.Payload, len(entries))
	for i, e := range entries {
		texts[i] = e.Techstack
		payloads[i] = domain.LinkPayload{URL: e.Link}
	}
	return s.build(ctx, texts, payloads)
}

func (s *Service) build(ctx context.Context, texts []string, payloads []domain.Payload) (*IngestReport, error) {
	vectors, err := s.embedder.EmbedMany(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed corpus: %w: %w", domain.ErrEmbeddingFailure, err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, errors.New("embedder returned no vectors")
	}
	ix, err := index.New(len(vectors[0]), s.metric)
	if err != nil {
		return nil, err
	}
	if err := ix.AddBatch(vectors, payloads); err != nil {
		return nil, err
	}
	if err := ix.Save(s.dir); err != nil {
		return nil, fmt.Errorf("persist index: %w", err)
	}
	s.mu.Lock()
	s.idx = ix
	s.mu.Unlock()
	s.log.Info("index built",
		zap.String("dir", s.dir),
		zap.Int("items", ix.Len()),
		zap.Int("dimension", ix.Dimension()),
		zap.String("embedder", s.embedder.Name()))
	return &IngestReport{Items: ix.Len(), Dimension: ix.Dimension()}, nil
}

// Retriever returns a retriever over the current index.
func (s *Service) Retriever() (*retriever.Retriever, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx == nil {
		return nil, domain.ErrIndexNotReady
	}
	return retriever.New(s.embedder, s.idx), nil
}

// QueryLinks returns the portfolio links most relevant to the given skills,
// best match first.
func (s *Service) QueryLinks(ctx context.Context, skills []string, n int) ([]string, error) {
	r, err := s.Retriever()
	if err != nil {
		return nil, err
	}
	results, err := r.RetrieveSkills(ctx, skills, n)
	if err != nil {
		return nil, err
	}
	var links []string
	for _, res := range results {
		if link, ok := res.Payload.(domain.LinkPayload); ok {
			links = append(links, link.URL)
		}
	}
	// A non-empty result with no links means the index in s.dir was built
	// from documents, not a portfolio. Silence here would read as "no match".
	if len(links) == 0 && len(results) > 0 {
		return nil, fmt.Errorf("index in %s holds no portfolio links; ingest a portfolio first", s.dir)
	}
	return links, nil
}

// LoadTextFiles reads plain-text documents from the given paths. Shell-style
// globs are expanded; non-.txt files are skipped.
func LoadTextFiles(paths []string) ([]domain.Document, error) {
	var docs []domain.Document
	for _, p := range paths {
		matches, _ := filepath.Glob(p)
		if matches == nil {
			matches = []string{p}
		}
		for _, m := range matches {
			if !strings.HasSuffix(strings.ToLower(m), ".txt") {
				continue
			}
			data, err := os.ReadFile(m)
			if err != nil {
				return nil, err
			}
			docs = append(docs, domain.Document{Source: m, Content: string(data)})
		}
	}
	if len(docs) == 0 {
		return nil, errors.New("no .txt documents found")
	}
	return docs, nil
}
