// Package pipeline sequences the document-to-curriculum flow: text
// extraction, chunking, concept extraction and ordering, exercise
// generation, and spaced-repetition initialization.
package pipeline

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/studyhall/backend/internal/chunker"
	"github.com/studyhall/backend/internal/concepts"
	"github.com/studyhall/backend/internal/extract"
	"github.com/studyhall/backend/internal/metrics"
	"github.com/studyhall/backend/internal/storage/models"
	"github.com/studyhall/backend/pkg/logger"
)

// Store is the persistence slice the orchestrator drives; satisfied
// by the sqlite client.
type Store interface {
	InsertDocument(doc *models.Document) (int64, error)
	UpdateDocumentStatus(id int64, status, errorMsg string) error
	SetDocumentPageCount(id int64, pageCount int) error
	InsertChunk(chunk *models.DocumentChunk) (int64, error)
	ListChunks(documentID int64) ([]models.DocumentChunk, error)
	SetChunkEmbeddingID(chunkID int64, embeddingID string) error
	InsertConcept(concept *models.Concept) (int64, error)
	ListConcepts(documentID int64) ([]models.Concept, error)
	InsertExercise(ex *models.Exercise) (int64, error)
}

// ExtractFunc extracts raw text and page count from an uploaded file.
type ExtractFunc func(path, fileType string) (*extract.Result, error)

// ConceptSource yields concept candidates for one chunk, best-effort.
type ConceptSource interface {
	ExtractConcepts(ctx context.Context, chunkText string) []concepts.Candidate
}

// ExerciseSource generates one exercise per concept; failures are
// real errors, handled per concept by the orchestrator.
type ExerciseSource interface {
	Generate(ctx context.Context, concept *models.Concept) (*models.Exercise, error)
}

// ReviewInitializer seeds spaced-repetition state for the uploader.
type ReviewInitializer interface {
	Initialize(userID int64, conceptList []models.Concept, now time.Time) error
}

// GraphMirror mirrors the concept graph to the graph store,
// best-effort. Optional.
type GraphMirror interface {
	MirrorConcepts(ctx context.Context, documentID int64, conceptList []models.Concept) error
}

// ChunkIndexer embeds persisted chunks and indexes them for material
// search, best-effort. Optional.
type ChunkIndexer interface {
	IndexChunks(ctx context.Context, doc *models.Document, chunks []models.DocumentChunk) error
}

// CacheInvalidator drops cached read views after pipeline writes.
// Optional.
type CacheInvalidator interface {
	InvalidateDocument(ctx context.Context, documentID int64) error
}

type Orchestrator struct {
	store           Store
	extractFn       ExtractFunc
	conceptSource   ConceptSource
	exerciseSource  ExerciseSource
	reviews         ReviewInitializer
	graphMirror     GraphMirror
	chunkIndexer    ChunkIndexer
	cache           CacheInvalidator
	targetTokens    int
	overlapFraction float64
}

func NewOrchestrator(
	store Store,
	extractFn ExtractFunc,
	conceptSource ConceptSource,
	exerciseSource ExerciseSource,
	reviews ReviewInitializer,
	targetTokens int,
	overlapFraction float64,
) *Orchestrator {
	if targetTokens <= 0 {
		targetTokens = chunker.DefaultTargetTokens
	}
	if overlapFraction <= 0 {
		overlapFraction = chunker.DefaultOverlapFraction
	}
	return &Orchestrator{
		store:           store,
		extractFn:       extractFn,
		conceptSource:   conceptSource,
		exerciseSource:  exerciseSource,
		reviews:         reviews,
		targetTokens:    targetTokens,
		overlapFraction: overlapFraction,
	}
}

// WithGraphMirror, WithChunkIndexer and WithCache attach the optional
// side stores.
func (o *Orchestrator) WithGraphMirror(m GraphMirror) *Orchestrator {
	o.graphMirror = m
	return o
}

func (o *Orchestrator) WithChunkIndexer(idx ChunkIndexer) *Orchestrator {
	o.chunkIndexer = idx
	return o
}

func (o *Orchestrator) WithCache(c CacheInvalidator) *Orchestrator {
	o.cache = c
	return o
}

// ProcessUpload runs the synchronous half of the pipeline: create the
// document record, extract text, persist chunks, mark indexed. Any
// failure here marks the document failed and is returned to the
// caller; the document id is valid either way once created.
func (o *Orchestrator) ProcessUpload(doc *models.Document) (int64, error) {
	start := time.Now()

	doc.Status = models.DocStatusProcessing
	doc.CreatedAt = time.Now()
	doc.UpdatedAt = doc.CreatedAt

	docID, err := o.store.InsertDocument(doc)
	if err != nil {
		return 0, fmt.Errorf("failed to create document record: %w", err)
	}
	doc.ID = docID

	result, err := o.extractFn(doc.StoragePath, doc.FileType)
	if err != nil {
		o.markFailed(docID, err)
		return docID, fmt.Errorf("text extraction failed: %w", err)
	}

	if err := o.store.SetDocumentPageCount(docID, result.PageCount); err != nil {
		o.markFailed(docID, err)
		return docID, err
	}
	doc.PageCount = &result.PageCount

	chunks := chunker.Split(result.Text, o.targetTokens, o.overlapFraction)
	totalChunks := len(chunks)

	for i, content := range chunks {
		page := estimatePage(i, totalChunks, result.PageCount)
		chunk := &models.DocumentChunk{
			DocumentID: docID,
			ChunkIndex: i,
			Content:    content,
			PageNumber: &page,
			CreatedAt:  time.Now(),
		}
		if _, err := o.store.InsertChunk(chunk); err != nil {
			o.markFailed(docID, err)
			return docID, fmt.Errorf("failed to persist chunk %d: %w", i, err)
		}
		metrics.ChunksCreated.Inc()
	}

	// Indexed means the chunk set is durable; concept extraction and
	// everything after runs in the background and may still come up
	// empty.
	if err := o.store.UpdateDocumentStatus(docID, models.DocStatusIndexed, ""); err != nil {
		return docID, err
	}

	metrics.DocumentsProcessed.WithLabelValues(models.DocStatusIndexed).Inc()
	metrics.PipelineStageDuration.WithLabelValues("upload").Observe(time.Since(start).Seconds())

	logger.Info("Document indexed",
		zap.Int64("document_id", docID),
		zap.Int("chunks", totalChunks),
		zap.Int("pages", result.PageCount),
	)

	return docID, nil
}

// estimatePage is a coarse position heuristic:
// floor((chunkIndex / totalChunks) * pageCount) + 1.
func estimatePage(chunkIndex, totalChunks, pageCount int) int {
	if totalChunks == 0 {
		return 1
	}
	return int(math.Floor(float64(chunkIndex)/float64(totalChunks)*float64(pageCount))) + 1
}

func (o *Orchestrator) markFailed(docID int64, cause error) {
	metrics.DocumentsProcessed.WithLabelValues(models.DocStatusFailed).Inc()
	if err := o.store.UpdateDocumentStatus(docID, models.DocStatusFailed, cause.Error()); err != nil {
		logger.Error("Failed to mark document failed",
			zap.Int64("document_id", docID),
			zap.Error(err),
		)
	}
}

// RunIndexing is the asynchronous half: concept extraction over every
// chunk, graph build and ordered persistence, exercise generation per
// concept, and spaced-repetition initialization for the uploader.
// Document status is never reverted here.
func (o *Orchestrator) RunIndexing(ctx context.Context, documentID, userID int64) error {
	chunks, err := o.store.ListChunks(documentID)
	if err != nil {
		return fmt.Errorf("failed to load chunks: %w", err)
	}
	if len(chunks) == 0 {
		logger.Warn("No chunks to index", zap.Int64("document_id", documentID))
		return nil
	}

	conceptList, err := o.extractAndPersistConcepts(ctx, documentID, chunks)
	if err != nil {
		return err
	}
	if len(conceptList) == 0 {
		// Extraction can legitimately yield nothing; the document
		// stays indexed with zero concepts.
		logger.Warn("Extraction yielded no concepts", zap.Int64("document_id", documentID))
		return nil
	}

	if o.graphMirror != nil {
		if err := o.graphMirror.MirrorConcepts(ctx, documentID, conceptList); err != nil {
			logger.Warn("Concept graph mirror failed", zap.Int64("document_id", documentID), zap.Error(err))
		}
	}

	o.generateExercises(ctx, documentID, conceptList)

	if err := o.reviews.Initialize(userID, conceptList, time.Now()); err != nil {
		return fmt.Errorf("failed to initialize spaced repetition: %w", err)
	}

	if o.chunkIndexer != nil {
		doc := &models.Document{ID: documentID, UserID: userID}
		if err := o.chunkIndexer.IndexChunks(ctx, doc, chunks); err != nil {
			logger.Warn("Chunk embedding index failed", zap.Int64("document_id", documentID), zap.Error(err))
		}
	}

	if o.cache != nil {
		if err := o.cache.InvalidateDocument(ctx, documentID); err != nil {
			logger.Warn("Cache invalidation failed", zap.Int64("document_id", documentID), zap.Error(err))
		}
	}

	return nil
}

// extractAndPersistConcepts calls the concept source once per chunk,
// sequentially, merges and orders the candidates, and inserts the
// concepts one at a time in learning order.
func (o *Orchestrator) extractAndPersistConcepts(ctx context.Context, documentID int64, chunks []models.DocumentChunk) ([]models.Concept, error) {
	start := time.Now()

	perChunk := make([]concepts.ChunkConcepts, 0, len(chunks))
	for _, chunk := range chunks {
		page := 0
		if chunk.PageNumber != nil {
			page = *chunk.PageNumber
		}
		perChunk = append(perChunk, concepts.ChunkConcepts{
			PageNumber: page,
			Candidates: o.conceptSource.ExtractConcepts(ctx, chunk.Content),
		})
	}

	ordered := concepts.BuildOrdered(perChunk)
	metrics.PipelineStageDuration.WithLabelValues("concept_extraction").Observe(time.Since(start).Seconds())

	conceptList := make([]models.Concept, 0, len(ordered))
	for _, oc := range ordered {
		concept := models.Concept{
			DocumentID:    documentID,
			Title:         oc.Title,
			Summary:       oc.Summary,
			Prerequisites: oc.Prerequisites,
			OrderIndex:    oc.OrderIndex,
			PageSpan:      oc.PageSpan,
			CreatedAt:     time.Now(),
		}
		id, err := o.store.InsertConcept(&concept)
		if err != nil {
			return nil, fmt.Errorf("failed to persist concept %q: %w", oc.Title, err)
		}
		concept.ID = id
		metrics.ConceptsExtracted.Inc()
		conceptList = append(conceptList, concept)
	}

	logger.Info("Concepts persisted",
		zap.Int64("document_id", documentID),
		zap.Int("count", len(conceptList)),
	)

	return conceptList, nil
}

// generateExercises runs one generation per concept, sequentially.
// A failed generation loses that concept's exercise but not the
// concept, and the loop continues.
func (o *Orchestrator) generateExercises(ctx context.Context, documentID int64, conceptList []models.Concept) {
	start := time.Now()
	generated := 0

	for i := range conceptList {
		concept := &conceptList[i]

		ex, err := o.exerciseSource.Generate(ctx, concept)
		if err != nil {
			metrics.ExerciseGenerationFailures.Inc()
			logger.Error("Exercise generation failed",
				zap.Int64("document_id", documentID),
				zap.Int64("concept_id", concept.ID),
				zap.String("concept", concept.Title),
				zap.Error(err),
			)
			continue
		}

		ex.CreatedAt = time.Now()
		if _, err := o.store.InsertExercise(ex); err != nil {
			logger.Error("Failed to persist exercise",
				zap.Int64("concept_id", concept.ID),
				zap.Error(err),
			)
			continue
		}
		generated++
	}

	metrics.PipelineStageDuration.WithLabelValues("exercise_generation").Observe(time.Since(start).Seconds())

	logger.Info("Exercises generated",
		zap.Int64("document_id", documentID),
		zap.Int("generated", generated),
		zap.Int("concepts", len(conceptList)),
	)
}
