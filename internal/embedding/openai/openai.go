package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	openai "github.com/sashabaranov/go-openai"
)

var knownDimensions = map[string]int{
	"text-embedding-3-large": 3072,
	"text-embedding-3-small": 1536,
	"text-embedding-ada-002": 1536,
}

// Client produces embeddings through an OpenAI-compatible embeddings API.
// It is safe for concurrent use.
type Client struct {
	api       *openai.Client
	model     string
	batchSize int

	// Discovered from the first response when the model is not in
	// knownDimensions; concurrent embeds may race to set it.
	dimension atomic.Int64
}

// Config configures the embeddings client. APIKeyEnv names the environment
// variable holding the key; BaseURL may point at any compatible server.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	BatchSize int
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	clientCfg := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	c := &Client{
		api:       openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		batchSize: cfg.BatchSize,
	}
	c.dimension.Store(int64(knownDimensions[cfg.Model]))
	return c, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai" }

// Dimension returns the vector dimension, or zero until it is known.
func (c *Client) Dimension() int { return int(c.dimension.Load()) }

// Embed returns an embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	vecs, err := c.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedMany embeds the texts in request batches, preserving input order.
func (c *Client) EmbedMany(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(c.model),
			Input: texts[start:end],
		})
		if err != nil {
			return nil, fmt.Errorf("create embeddings: %w", err)
		}
		if len(resp.Data) != end-start {
			return nil, errors.New("embedding response count mismatch")
		}
		for _, d := range resp.Data {
			vec := make([]float64, len(d.Embedding))
			for i, x := range d.Embedding {
				vec[i] = float64(x)
			}
			c.dimension.CompareAndSwap(0, int64(len(vec)))
			out = append(out, vec)
		}
	}
	return out, nil
}
