package ai

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"
	"github.com/steveyegge/rdscout/internal/config"
)

// maxEmbedRunes keeps one request under the model's input limit
const maxEmbedRunes = 24000

// embeddingAPI is the slice of the OpenAI client the embedder uses
type embeddingAPI interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// OpenAIEmbedder turns document text into embedding vectors
type OpenAIEmbedder struct {
	api    embeddingAPI
	model  openai.EmbeddingModel
	caller *caller
}

// NewOpenAIEmbedder creates an embedder. An empty apiKey reads OPENAI_API_KEY.
func NewOpenAIEmbedder(apiKey string, cfg config.EmbeddingConfig, rc RetryConfig, logger *slog.Logger) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for embeddings")
	}
	return newOpenAIEmbedder(openai.NewClient(apiKey), cfg, rc, logger), nil
}

func newOpenAIEmbedder(api embeddingAPI, cfg config.EmbeddingConfig, rc RetryConfig, logger *slog.Logger) *OpenAIEmbedder {
	rc.MaxConcurrentCalls = cfg.MaxConcurrent
	rc.RequestsPerSecond = cfg.RequestsPerSecond
	model := cfg.Model
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	return &OpenAIEmbedder{
		api:    api,
		model:  openai.EmbeddingModel(model),
		caller: newCaller("embedding", rc, logger),
	}
}

// Embed returns the embedding of text
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}
	if utf8.RuneCountInString(text) > maxEmbedRunes {
		text = string([]rune(text)[:maxEmbedRunes])
	}

	var vector []float32
	err := e.caller.do(ctx, "embed", func(ctx context.Context) error {
		resp, err := e.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: []string{text},
			Model: e.model,
		})
		if err != nil {
			return err
		}
		if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
			return fmt.Errorf("embedding response contained no vectors")
		}
		vector = resp.Data[0].Embedding
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vector, nil
}
