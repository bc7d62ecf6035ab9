package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/studyhall/backend/internal/storage/models"
	"github.com/studyhall/backend/internal/storage/sqlite"
	"github.com/studyhall/backend/pkg/logger"
)

const statusPollInterval = 2 * time.Second

// WebSocketHandler streams document pipeline progress to the client
// so the portal can show live status without polling the REST API.
type WebSocketHandler struct {
	store *sqlite.Client
}

func NewWebSocketHandler(store *sqlite.Client) *WebSocketHandler {
	return &WebSocketHandler{store: store}
}

func (h *WebSocketHandler) HandleDocumentStatus(c *websocket.Conn) {
	defer c.Close()

	docID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		h.sendError(c, "Invalid document id")
		return
	}

	logger.Info("Status stream opened", zap.Int64("document_id", docID))
	defer logger.Info("Status stream closed", zap.Int64("document_id", docID))

	ticker := time.NewTicker(statusPollInterval)
	defer ticker.Stop()

	deadline := time.Now().Add(10 * time.Minute)
	lastConcepts, lastExercises := -1, -1

	for time.Now().Before(deadline) {
		doc, err := h.store.GetDocument(docID)
		if err != nil {
			h.sendError(c, "Failed to load document")
			return
		}
		if doc == nil {
			h.sendError(c, "Document not found")
			return
		}

		conceptCount, _ := h.store.CountConcepts(docID)
		exerciseCount, _ := h.store.CountExercises(docID)

		if conceptCount != lastConcepts || exerciseCount != lastExercises || doc.Status == models.DocStatusFailed {
			lastConcepts, lastExercises = conceptCount, exerciseCount

			msg := map[string]interface{}{
				"type":        "status",
				"document_id": doc.ID,
				"status":      doc.Status,
				"concepts":    conceptCount,
				"exercises":   exerciseCount,
			}
			if doc.ErrorMsg != "" {
				msg["error"] = doc.ErrorMsg
			}
			if err := c.WriteJSON(msg); err != nil {
				return
			}
		}

		if doc.Status == models.DocStatusFailed {
			return
		}

		// Indexed documents keep streaming until exercises stop
		// growing, since generation runs in the background.
		if doc.Status == models.DocStatusIndexed && conceptCount > 0 && exerciseCount >= conceptCount {
			c.WriteJSON(map[string]interface{}{
				"type":        "complete",
				"document_id": doc.ID,
			})
			return
		}

		<-ticker.C
	}
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	c.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
}
