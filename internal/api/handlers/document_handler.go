package handlers

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/studyhall/backend/internal/cache/redis"
	"github.com/studyhall/backend/internal/pipeline"
	"github.com/studyhall/backend/internal/storage/models"
	"github.com/studyhall/backend/internal/storage/sqlite"
	"github.com/studyhall/backend/pkg/logger"
	"github.com/studyhall/backend/pkg/utils"
)

const conceptListCacheTTL = 5 * time.Minute

type DocumentHandler struct {
	store     *sqlite.Client
	orch      *pipeline.Orchestrator
	worker    *pipeline.Worker
	cache     *redis.Client
	uploadDir string
}

func NewDocumentHandler(store *sqlite.Client, orch *pipeline.Orchestrator, worker *pipeline.Worker, cache *redis.Client, uploadDir string) *DocumentHandler {
	return &DocumentHandler{
		store:     store,
		orch:      orch,
		worker:    worker,
		cache:     cache,
		uploadDir: uploadDir,
	}
}

// UploadDocument accepts a multipart upload, runs the synchronous
// half of the pipeline, and queues the background indexing job. The
// response carries the document id and its status at return time.
func (h *DocumentHandler) UploadDocument(c *fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.FormValue("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id is required and must be a positive integer",
		})
	}

	title := strings.TrimSpace(c.FormValue("title"))
	if title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "title is required",
		})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "file is required",
		})
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileHeader.Filename)), ".")
	if ext == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "file must have an extension",
		})
	}

	storagePath := filepath.Join(h.uploadDir, uuid.New().String()+"."+ext)
	if err := c.SaveFile(fileHeader, storagePath); err != nil {
		logger.Error("Failed to save upload", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to store uploaded file",
		})
	}

	signature, err := fileSignature(storagePath)
	if err != nil {
		logger.Warn("Failed to compute upload signature", zap.Error(err))
	}

	doc := &models.Document{
		UserID:      userID,
		Title:       title,
		FileType:    ext,
		StoragePath: storagePath,
		Signature:   signature,
		SizeBytes:   fileHeader.Size,
	}

	docID, err := h.orch.ProcessUpload(doc)
	if err != nil {
		logger.Error("Document processing failed",
			zap.Int64("document_id", docID),
			zap.Error(err),
		)
		status := fiber.StatusInternalServerError
		body := fiber.Map{"error": "Failed to process document"}
		if docID > 0 {
			// The record exists in failed state; the client can
			// still look it up.
			body["document_id"] = docID
			body["status"] = models.DocStatusFailed
			status = fiber.StatusUnprocessableEntity
		}
		return c.Status(status).JSON(body)
	}

	job := h.worker.Enqueue(docID, userID)
	logger.Debug("Indexing job queued", zap.String("job_id", job.ID), zap.Int64("document_id", docID))

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"document_id": docID,
		"title":       title,
		"status":      models.DocStatusIndexed,
	})
}

func (h *DocumentHandler) GetDocument(c *fiber.Ctx) error {
	docID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid document id",
		})
	}

	doc, err := h.store.GetDocument(int64(docID))
	if err != nil {
		logger.Error("Failed to load document", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load document",
		})
	}
	if doc == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Document not found",
		})
	}

	conceptCount, err := h.store.CountConcepts(doc.ID)
	if err != nil {
		logger.Warn("Failed to count concepts", zap.Error(err))
	}

	return c.JSON(fiber.Map{
		"document_id":   doc.ID,
		"title":         doc.Title,
		"file_type":     doc.FileType,
		"status":        doc.Status,
		"error":         doc.ErrorMsg,
		"page_count":    doc.PageCount,
		"concept_count": conceptCount,
		"created_at":    doc.CreatedAt,
		"updated_at":    doc.UpdatedAt,
	})
}

// ListConcepts returns a document's concepts in learning order,
// served from the read cache when present.
func (h *DocumentHandler) ListConcepts(c *fiber.Ctx) error {
	docID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid document id",
		})
	}

	cacheKey := "doc:" + strconv.Itoa(docID) + ":concepts"
	if h.cache != nil {
		var cached []models.Concept
		if ok, err := h.cache.GetView(c.Context(), cacheKey, &cached); err == nil && ok {
			return c.JSON(fiber.Map{"concepts": cached})
		}
	}

	conceptList, err := h.store.ListConcepts(int64(docID))
	if err != nil {
		logger.Error("Failed to list concepts", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list concepts",
		})
	}

	if h.cache != nil {
		if err := h.cache.SetView(c.Context(), cacheKey, conceptList, conceptListCacheTTL); err != nil {
			logger.Warn("Failed to cache concept list", zap.Error(err))
		}
	}

	return c.JSON(fiber.Map{"concepts": conceptList})
}

func fileSignature(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	return utils.Signature(data), nil
}
