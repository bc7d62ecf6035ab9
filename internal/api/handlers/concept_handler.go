package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/studyhall/backend/internal/graph/neo4j"
	"github.com/studyhall/backend/internal/storage/sqlite"
	"github.com/studyhall/backend/pkg/logger"
)

type ConceptHandler struct {
	store *sqlite.Client
	graph *neo4j.Client
}

func NewConceptHandler(store *sqlite.Client, graph *neo4j.Client) *ConceptHandler {
	return &ConceptHandler{
		store: store,
		graph: graph,
	}
}

// GetConcept returns a single concept with its exercises and the
// previous and next concepts in learning order for navigation.
func (h *ConceptHandler) GetConcept(c *fiber.Ctx) error {
	conceptID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid concept id",
		})
	}

	concept, err := h.store.GetConcept(int64(conceptID))
	if err != nil {
		logger.Error("Failed to load concept", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load concept",
		})
	}
	if concept == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Concept not found",
		})
	}

	exercises, err := h.store.ListExercises(concept.ID)
	if err != nil {
		logger.Error("Failed to load exercises", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load exercises",
		})
	}

	prev, err := h.store.GetAdjacentConcept(concept.DocumentID, concept.OrderIndex, -1)
	if err != nil {
		logger.Warn("Failed to load previous concept", zap.Error(err))
	}
	next, err := h.store.GetAdjacentConcept(concept.DocumentID, concept.OrderIndex, 1)
	if err != nil {
		logger.Warn("Failed to load next concept", zap.Error(err))
	}

	resp := fiber.Map{
		"concept":   concept,
		"exercises": exercises,
	}
	if prev != nil {
		resp["previous"] = fiber.Map{"id": prev.ID, "title": prev.Title, "order_index": prev.OrderIndex}
	}
	if next != nil {
		resp["next"] = fiber.Map{"id": next.ID, "title": next.Title, "order_index": next.OrderIndex}
	}

	return c.JSON(resp)
}

// GetPrerequisitePath walks the concept graph down to the roots and
// returns the chain a learner should study first.
func (h *ConceptHandler) GetPrerequisitePath(c *fiber.Ctx) error {
	conceptID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid concept id",
		})
	}

	if h.graph == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Concept graph is not enabled",
		})
	}

	nodes, err := h.graph.PrerequisitePath(c.Context(), int64(conceptID))
	if err != nil {
		logger.Error("Failed to resolve prerequisite path", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to resolve prerequisite path",
		})
	}

	path := make([]fiber.Map, 0, len(nodes))
	for _, n := range nodes {
		path = append(path, fiber.Map{
			"id":          n.ID,
			"title":       n.Title,
			"order_index": n.OrderIndex,
		})
	}

	return c.JSON(fiber.Map{"path": path})
}
