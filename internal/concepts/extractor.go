// Package concepts turns chunked document text into an ordered set of
// learning concepts with prerequisite relationships.
package concepts

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/studyhall/backend/internal/llm"
	"github.com/studyhall/backend/pkg/logger"
)

// CompletionService is the slice of the LLM client the extractor needs.
type CompletionService interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
}

// Candidate is one concept as claimed by a single chunk, before
// merging.
type Candidate struct {
	Title         string   `json:"title"`
	Summary       string   `json:"summary"`
	Prerequisites []string `json:"prerequisites"`
}

const extractionSystemPrompt = `You are an expert curriculum designer. Extract the distinct educational concepts taught in the given study-material excerpt.

For each concept return:
- title: a short, precise name for the concept
- summary: 2-3 sentences explaining it
- prerequisites: titles of other concepts mentioned or implied in the same text that should be learned first

Return ONLY a JSON array:
[{"title": "...", "summary": "...", "prerequisites": ["..."]}]`

// Extractor asks the completion service for concept candidates, one
// chunk at a time.
type Extractor struct {
	svc CompletionService
}

func NewExtractor(svc CompletionService) *Extractor {
	return &Extractor{svc: svc}
}

// ExtractConcepts is best-effort: any service or parse failure yields
// an empty list so a bad chunk never aborts the document.
func (e *Extractor) ExtractConcepts(ctx context.Context, chunkText string) []Candidate {
	userPrompt := fmt.Sprintf("Extract the concepts from this study material:\n\n%s", chunkText)

	resp, err := e.svc.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: extractionSystemPrompt,
		UserPrompt:   userPrompt,
		Temperature:  0.2,
		MaxTokens:    1024,
	})
	if err != nil {
		logger.Warn("Concept extraction call failed", zap.Error(err))
		return nil
	}

	candidates, err := parseCandidates(resp.Content)
	if err != nil {
		logger.Warn("Concept extraction returned unparseable content", zap.Error(err))
		return nil
	}

	return candidates
}

// parseCandidates decodes the model output, tolerating markdown code
// fences and an object wrapper around the array.
func parseCandidates(content string) ([]Candidate, error) {
	content = StripCodeFences(content)

	var candidates []Candidate
	if err := json.Unmarshal([]byte(content), &candidates); err == nil {
		return candidates, nil
	}

	var wrapped struct {
		Concepts []Candidate `json:"concepts"`
	}
	if err := json.Unmarshal([]byte(content), &wrapped); err != nil {
		return nil, fmt.Errorf("response is neither a concept array nor a wrapped object: %w", err)
	}
	if wrapped.Concepts == nil {
		return nil, fmt.Errorf("response object has no concepts field")
	}

	return wrapped.Concepts, nil
}

// StripCodeFences removes a surrounding markdown code fence, which
// models emit even when asked for bare JSON.
func StripCodeFences(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx >= 0 {
			content = content[:idx]
		}
		content = strings.TrimSpace(content)
	}

	return content
}
