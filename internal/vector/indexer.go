package vector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/studyhall/backend/internal/storage/models"
	"github.com/studyhall/backend/internal/vector/milvus"
	"github.com/studyhall/backend/pkg/logger"
)

// Embedder produces embeddings for chunk texts; the llm client
// satisfies it.
type Embedder interface {
	GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// ChunkStore records which vector each chunk maps to.
type ChunkStore interface {
	SetChunkEmbeddingID(chunkID int64, embeddingID string) error
}

// Indexer embeds persisted chunks and writes them to Milvus so the
// search endpoint can retrieve source passages.
type Indexer struct {
	embedder Embedder
	vectors  *milvus.Client
	store    ChunkStore
}

func NewIndexer(embedder Embedder, vectors *milvus.Client, store ChunkStore) *Indexer {
	return &Indexer{
		embedder: embedder,
		vectors:  vectors,
		store:    store,
	}
}

// IndexChunks embeds the whole chunk list in one batch call, inserts
// the vectors, then records the embedding id on each chunk row.
func (idx *Indexer) IndexChunks(ctx context.Context, doc *models.Document, chunks []models.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	embeddings, err := idx.embedder.GenerateBatchEmbeddings(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: got %d for %d chunks", len(embeddings), len(chunks))
	}

	vectors := make([]milvus.ChunkVector, len(chunks))
	for i, chunk := range chunks {
		page := 0
		if chunk.PageNumber != nil {
			page = *chunk.PageNumber
		}
		vectors[i] = milvus.ChunkVector{
			ID:         fmt.Sprintf("doc%d-chunk%d", chunk.DocumentID, chunk.ChunkIndex),
			Embedding:  embeddings[i],
			Text:       chunk.Content,
			DocumentID: chunk.DocumentID,
			UserID:     doc.UserID,
			PageNumber: page,
			Timestamp:  time.Now(),
		}
	}

	if err := idx.vectors.Insert(ctx, vectors); err != nil {
		return err
	}

	for i, chunk := range chunks {
		if err := idx.store.SetChunkEmbeddingID(chunk.ID, vectors[i].ID); err != nil {
			logger.Warn("Failed to record embedding id",
				zap.Int64("chunk_id", chunk.ID),
				zap.Error(err),
			)
		}
	}

	logger.Info("Chunks indexed for search",
		zap.Int64("document_id", doc.ID),
		zap.Int("count", len(chunks)),
	)

	return nil
}
