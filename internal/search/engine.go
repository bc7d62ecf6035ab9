// Package search answers free-text queries over a user's uploaded
// material by embedding the query and retrieving the nearest chunks.
package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/studyhall/backend/internal/vector/milvus"
	"github.com/studyhall/backend/pkg/logger"
)

const defaultTopK = 5

// QueryEmbedder embeds a single query string; the llm client
// satisfies it.
type QueryEmbedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

type Request struct {
	Query      string `json:"query"`
	UserID     int64  `json:"user_id"`
	DocumentID int64  `json:"document_id,omitempty"`
	TopK       int    `json:"top_k,omitempty"`
}

type Passage struct {
	Text       string  `json:"text"`
	DocumentID int64   `json:"document_id"`
	PageNumber int     `json:"page_number"`
	Score      float32 `json:"score"`
}

type Response struct {
	Query    string    `json:"query"`
	Passages []Passage `json:"passages"`
	TookMs   int64     `json:"took_ms"`
}

type Engine struct {
	embedder QueryEmbedder
	vectors  *milvus.Client
}

func NewEngine(embedder QueryEmbedder, vectors *milvus.Client) *Engine {
	return &Engine{
		embedder: embedder,
		vectors:  vectors,
	}
}

func (e *Engine) Search(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()

	topK := req.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	embedding, err := e.embedder.GenerateEmbedding(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := e.vectors.Search(ctx, embedding, topK, req.DocumentID, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	passages := make([]Passage, 0, len(results))
	for _, r := range results {
		passages = append(passages, Passage{
			Text:       r.Text,
			DocumentID: r.DocumentID,
			PageNumber: r.PageNumber,
			Score:      r.Score,
		})
	}

	logger.Info("Material search completed",
		zap.Int64("user_id", req.UserID),
		zap.Int("passages", len(passages)),
	)

	return &Response{
		Query:    req.Query,
		Passages: passages,
		TookMs:   time.Since(start).Milliseconds(),
	}, nil
}
