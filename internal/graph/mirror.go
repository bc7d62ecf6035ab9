package graph

import (
	"context"
	"fmt"

	"github.com/studyhall/backend/internal/graph/neo4j"
	"github.com/studyhall/backend/internal/storage/models"
)

// Mirror pushes a document's concept graph into Neo4j after the
// pipeline persists it. Used from the orchestrator.
type Mirror struct {
	client *neo4j.Client
}

func NewMirror(client *neo4j.Client) *Mirror {
	return &Mirror{client: client}
}

// MirrorConcepts upserts every concept node first, then links the
// REQUIRES edges, so prerequisite matches never race node creation.
func (m *Mirror) MirrorConcepts(ctx context.Context, documentID int64, conceptList []models.Concept) error {
	for i := range conceptList {
		concept := &conceptList[i]
		node := &neo4j.ConceptNode{
			ID:         concept.ID,
			DocumentID: documentID,
			Title:      concept.Title,
			OrderIndex: concept.OrderIndex,
		}
		if err := m.client.UpsertConcept(ctx, node); err != nil {
			return fmt.Errorf("failed to mirror concept %q: %w", concept.Title, err)
		}
	}

	for i := range conceptList {
		concept := &conceptList[i]
		for _, prereq := range concept.Prerequisites {
			if err := m.client.LinkPrerequisite(ctx, documentID, concept.ID, prereq); err != nil {
				return fmt.Errorf("failed to link %q -> %q: %w", concept.Title, prereq, err)
			}
		}
	}

	return nil
}
