// Package milvus stores chunk embeddings for semantic search over
// uploaded study material.
package milvus

import (
	"context"
	"fmt"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/studyhall/backend/pkg/logger"
)

type Client struct {
	client         client.Client
	collectionName string
	vectorDim      int
}

// ChunkVector is one embedded document chunk ready for insert.
type ChunkVector struct {
	ID         string
	Embedding  []float32
	Text       string
	DocumentID int64
	UserID     int64
	PageNumber int
	Timestamp  time.Time
}

type SearchResult struct {
	ChunkID    string
	Text       string
	DocumentID int64
	PageNumber int
	Score      float32
}

func NewClient(endpoint, collectionName string, vectorDim int) (*Client, error) {
	c, err := client.NewGrpcClient(
		context.Background(),
		endpoint,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	logger.Info("Milvus client initialized",
		zap.String("endpoint", endpoint),
		zap.String("collection", collectionName),
	)

	return &Client{
		client:         c,
		collectionName: collectionName,
		vectorDim:      vectorDim,
	}, nil
}

func (m *Client) Close() error {
	return m.client.Close()
}

func (m *Client) CreateCollection(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if has {
		logger.Info("Collection already exists", zap.String("collection", m.collectionName))
		return nil
	}

	schema := &entity.Schema{
		CollectionName: m.collectionName,
		Description:    "Study material chunk embeddings",
		Fields: []*entity.Field{
			{
				Name:       "chunk_id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", m.vectorDim),
				},
			},
			{
				Name:     "text",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "8192",
				},
			},
			{
				Name:     "document_id",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "user_id",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "page_number",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "timestamp",
				DataType: entity.FieldTypeInt64,
			},
		},
	}

	err = m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexIvfFlat(entity.L2, 1024)
	if err != nil {
		return fmt.Errorf("failed to build index definition: %w", err)
	}
	err = m.client.CreateIndex(ctx, m.collectionName, "embedding", idx, false)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	err = m.client.LoadCollection(ctx, m.collectionName, false)
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	logger.Info("Collection created and loaded", zap.String("collection", m.collectionName))

	return nil
}

func (m *Client) Insert(ctx context.Context, vectors []ChunkVector) error {
	if len(vectors) == 0 {
		return nil
	}

	chunkIDs := make([]string, len(vectors))
	embeddings := make([][]float32, len(vectors))
	texts := make([]string, len(vectors))
	documentIDs := make([]int64, len(vectors))
	userIDs := make([]int64, len(vectors))
	pageNumbers := make([]int64, len(vectors))
	timestamps := make([]int64, len(vectors))

	for i, v := range vectors {
		chunkIDs[i] = v.ID
		embeddings[i] = v.Embedding
		texts[i] = v.Text
		documentIDs[i] = v.DocumentID
		userIDs[i] = v.UserID
		pageNumbers[i] = int64(v.PageNumber)
		timestamps[i] = v.Timestamp.Unix()
	}

	_, err := m.client.Insert(
		ctx,
		m.collectionName,
		"",
		entity.NewColumnVarChar("chunk_id", chunkIDs),
		entity.NewColumnFloatVector("embedding", m.vectorDim, embeddings),
		entity.NewColumnVarChar("text", texts),
		entity.NewColumnInt64("document_id", documentIDs),
		entity.NewColumnInt64("user_id", userIDs),
		entity.NewColumnInt64("page_number", pageNumbers),
		entity.NewColumnInt64("timestamp", timestamps),
	)

	if err != nil {
		return fmt.Errorf("failed to insert chunk vectors: %w", err)
	}

	err = m.client.Flush(ctx, m.collectionName, false)
	if err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	logger.Info("Chunk vectors inserted", zap.Int("count", len(vectors)))

	return nil
}

// Search returns the nearest chunks to the query embedding. A zero
// documentID or userID leaves that filter off.
func (m *Client) Search(ctx context.Context, queryEmbedding []float32, topK int, documentID, userID int64) ([]SearchResult, error) {
	expr := ""
	if documentID > 0 {
		expr = fmt.Sprintf("document_id == %d", documentID)
	}
	if userID > 0 {
		if expr != "" {
			expr += " && "
		}
		expr += fmt.Sprintf("user_id == %d", userID)
	}

	sp, err := entity.NewIndexIvfFlatSearchParam(16)
	if err != nil {
		return nil, fmt.Errorf("failed to build search params: %w", err)
	}

	searchResult, err := m.client.Search(
		ctx,
		m.collectionName,
		[]string{},
		expr,
		[]string{"chunk_id", "text", "document_id", "page_number"},
		[]entity.Vector{entity.FloatVector(queryEmbedding)},
		"embedding",
		entity.L2,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]SearchResult, 0)
	for _, sr := range searchResult {
		for i := 0; i < sr.ResultCount; i++ {
			chunkIDCol := sr.Fields.GetColumn("chunk_id")
			textCol := sr.Fields.GetColumn("text")
			documentIDCol := sr.Fields.GetColumn("document_id")
			pageCol := sr.Fields.GetColumn("page_number")

			chunkID, _ := chunkIDCol.Get(i)
			text, _ := textCol.Get(i)
			docID, _ := documentIDCol.Get(i)
			page, _ := pageCol.Get(i)

			results = append(results, SearchResult{
				ChunkID:    chunkID.(string),
				Text:       text.(string),
				DocumentID: docID.(int64),
				PageNumber: int(page.(int64)),
				Score:      sr.Scores[i],
			})
		}
	}

	logger.Info("Vector search completed",
		zap.Int("topK", topK),
		zap.Int("results", len(results)),
		zap.String("filters", expr),
	)

	return results, nil
}
