// Package exercises generates one practice exercise per concept via
// the completion service.
package exercises

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/studyhall/backend/internal/concepts"
	"github.com/studyhall/backend/internal/llm"
	"github.com/studyhall/backend/internal/storage/models"
)

const generationSystemPrompt = `You are an expert tutor writing practice exercises. Given a concept title and summary, write exactly one exercise testing understanding of that concept.

Return ONLY a JSON object:
{
  "question": "...",
  "type": "mcq" or "short_answer",
  "options": ["...", "...", "...", "..."] (exactly 4, only when type is "mcq", otherwise null),
  "correctAnswer": "...",
  "hint1": "a gentle nudge",
  "hint2": "a more revealing hint",
  "solution": "full worked solution",
  "memoryHook": "an optional mnemonic or memory aid"
}`

// Generator calls the completion service once per concept. Unlike
// concept extraction, a failed or unparseable generation is an error
// for the caller to handle.
type Generator struct {
	svc concepts.CompletionService
}

func NewGenerator(svc concepts.CompletionService) *Generator {
	return &Generator{svc: svc}
}

type exercisePayload struct {
	Question      string   `json:"question"`
	Type          string   `json:"type"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Hint1         string   `json:"hint1"`
	Hint2         string   `json:"hint2"`
	Solution      string   `json:"solution"`
	MemoryHook    string   `json:"memoryHook"`
}

// Generate produces the exercise record for one concept.
func (g *Generator) Generate(ctx context.Context, concept *models.Concept) (*models.Exercise, error) {
	userPrompt := fmt.Sprintf("Concept: %s\n\nSummary: %s\n\nWrite the exercise.", concept.Title, concept.Summary)

	resp, err := g.svc.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: generationSystemPrompt,
		UserPrompt:   userPrompt,
		Temperature:  0.4,
		MaxTokens:    1024,
		JSONMode:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("exercise generation call failed: %w", err)
	}

	var payload exercisePayload
	content := concepts.StripCodeFences(resp.Content)
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("exercise generation returned unparseable content: %w", err)
	}

	if err := validatePayload(&payload); err != nil {
		return nil, fmt.Errorf("exercise generation returned invalid content: %w", err)
	}

	ex := &models.Exercise{
		ConceptID:     concept.ID,
		Question:      payload.Question,
		Type:          payload.Type,
		CorrectAnswer: payload.CorrectAnswer,
		Hint1:         payload.Hint1,
		Hint2:         payload.Hint2,
		Solution:      payload.Solution,
		MemoryHook:    payload.MemoryHook,
	}
	if payload.Type == models.ExerciseTypeMCQ {
		ex.Options = payload.Options
	}

	return ex, nil
}

func validatePayload(p *exercisePayload) error {
	if p.Question == "" {
		return fmt.Errorf("missing question")
	}
	if p.CorrectAnswer == "" {
		return fmt.Errorf("missing correct answer")
	}
	switch p.Type {
	case models.ExerciseTypeMCQ:
		if len(p.Options) != 4 {
			return fmt.Errorf("mcq exercise needs 4 options, got %d", len(p.Options))
		}
	case models.ExerciseTypeShortAnswer:
	default:
		return fmt.Errorf("unknown exercise type %q", p.Type)
	}
	return nil
}
