// Package neo4j mirrors the persisted concept graph into Neo4j so
// prerequisite chains can be walked with graph queries. The sqlite
// store stays the source of truth; the mirror is best-effort.
package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/studyhall/backend/pkg/circuitbreaker"
	"github.com/studyhall/backend/pkg/logger"
	"github.com/studyhall/backend/pkg/retry"
)

type Client struct {
	driver      neo4j.DriverWithContext
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

// ConceptNode is the graph projection of a stored concept.
type ConceptNode struct {
	ID         int64
	DocumentID int64
	Title      string
	OrderIndex int
}

func NewClient(uri, username, password string) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(
		uri,
		neo4j.BasicAuth(username, password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	ctx := context.Background()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("failed to verify connectivity: %w", err)
	}

	cb := circuitbreaker.New("neo4j", circuitbreaker.Config{
		MaxRequests:      3,
		Interval:         time.Minute,
		Timeout:          20 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    3,
		InitialDelay:   200 * time.Millisecond,
		MaxDelay:       3 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	logger.Info("Neo4j client initialized", zap.String("uri", uri))

	return &Client{
		driver:      driver,
		cb:          cb,
		retryConfig: retryConfig,
	}, nil
}

func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

func (c *Client) executeWithRetry(ctx context.Context, operation func(neo4j.SessionWithContext) error) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: "neo4j"})
			defer session.Close(ctx)
			return operation(session)
		})
	})
}

// UpsertConcept merges a Concept node keyed by its sqlite id.
func (c *Client) UpsertConcept(ctx context.Context, node *ConceptNode) error {
	return c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		query := `
			MERGE (n:Concept {id: $id})
			SET n.document_id = $document_id,
			    n.title = $title,
			    n.title_key = toLower($title),
			    n.order_index = $order_index,
			    n.updated_at = timestamp()
		`

		_, err := session.Run(ctx, query, map[string]interface{}{
			"id":          node.ID,
			"document_id": node.DocumentID,
			"title":       node.Title,
			"order_index": node.OrderIndex,
		})
		if err != nil {
			return fmt.Errorf("failed to upsert concept node: %w", err)
		}

		logger.Debug("Concept mirrored", zap.Int64("concept_id", node.ID), zap.String("title", node.Title))
		return nil
	})
}

// LinkPrerequisite creates a REQUIRES edge from a concept to one of
// its prerequisites, matched by case-folded title within the same
// document. A prerequisite title with no node is a no-op.
func (c *Client) LinkPrerequisite(ctx context.Context, documentID, conceptID int64, prerequisiteTitle string) error {
	return c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		query := `
			MATCH (n:Concept {id: $concept_id})
			MATCH (p:Concept {document_id: $document_id})
			WHERE p.title_key = toLower($prerequisite)
			MERGE (n)-[r:REQUIRES]->(p)
			SET r.created_at = timestamp()
		`

		_, err := session.Run(ctx, query, map[string]interface{}{
			"concept_id":   conceptID,
			"document_id":  documentID,
			"prerequisite": prerequisiteTitle,
		})
		if err != nil {
			return fmt.Errorf("failed to link prerequisite: %w", err)
		}
		return nil
	})
}

// PrerequisitePath walks REQUIRES edges from a concept down to its
// roots and returns the chain ordered for study, foundations first.
func (c *Client) PrerequisitePath(ctx context.Context, conceptID int64) ([]ConceptNode, error) {
	var nodes []ConceptNode

	err := c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		query := `
			MATCH (start:Concept {id: $concept_id})
			MATCH path = (start)-[:REQUIRES*0..10]->(p:Concept)
			WITH DISTINCT p
			RETURN p.id, p.document_id, p.title, p.order_index
			ORDER BY p.order_index ASC
		`

		result, err := session.Run(ctx, query, map[string]interface{}{
			"concept_id": conceptID,
		})
		if err != nil {
			return fmt.Errorf("failed to query prerequisite path: %w", err)
		}

		nodes = nodes[:0]
		for result.Next(ctx) {
			record := result.Record()

			id, _ := record.Get("p.id")
			documentID, _ := record.Get("p.document_id")
			title, _ := record.Get("p.title")
			orderIndex, _ := record.Get("p.order_index")

			nodes = append(nodes, ConceptNode{
				ID:         id.(int64),
				DocumentID: documentID.(int64),
				Title:      title.(string),
				OrderIndex: int(orderIndex.(int64)),
			})
		}

		if err = result.Err(); err != nil {
			return fmt.Errorf("error iterating results: %w", err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	logger.Debug("Prerequisite path resolved",
		zap.Int64("concept_id", conceptID),
		zap.Int("nodes", len(nodes)),
	)

	return nodes, nil
}
