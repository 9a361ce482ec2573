package openai

import (
	"context"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Embedder implements ports.Embedder with the embeddings endpoint
type Embedder struct {
	client    *guardedClient
	model     goopenai.EmbeddingModel
	dimension int
}

// NewEmbedder creates an embedder requesting vectors of the given dimension
func NewEmbedder(api API, model string, dimension int, breaker BreakerConfig, logger *zap.Logger) *Embedder {
	if model == "" {
		model = string(goopenai.SmallEmbedding3)
	}
	breaker.Name += "-embeddings"
	return &Embedder{
		client:    newGuardedClient(api, breaker, logger),
		model:     goopenai.EmbeddingModel(model),
		dimension: dimension,
	}
}

// Dimension is the length of every vector Embed returns
func (e *Embedder) Dimension() int { return e.dimension }

// Embed returns the vector for text
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.client.execute("embeddings", func() (interface{}, error) {
		resp, err := e.client.api.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
			Input:      []string{text},
			Model:      e.model,
			Dimensions: e.dimension,
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Data) == 0 {
			return nil, fmt.Errorf("embeddings response had no data")
		}
		return resp.Data[0].Embedding, nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]float32), nil
}
