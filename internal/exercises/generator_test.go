package exercises

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhall/backend/internal/llm"
	"github.com/studyhall/backend/internal/storage/models"
)

// mockCompletionService implements concepts.CompletionService
type mockCompletionService struct {
	completeFn func(llm.CompletionRequest) (*llm.CompletionResponse, error)
}

func (m *mockCompletionService) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return m.completeFn(req)
}

func testConcept() *models.Concept {
	return &models.Concept{
		ID:      7,
		Title:   "Newton's Second Law",
		Summary: "Force equals mass times acceleration.",
	}
}

func TestGenerateMCQ(t *testing.T) {
	svc := &mockCompletionService{
		completeFn: func(req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			assert.True(t, req.JSONMode)
			return &llm.CompletionResponse{Content: `{
				"question": "What does F equal?",
				"type": "mcq",
				"options": ["ma", "mv", "mgh", "mc^2"],
				"correctAnswer": "ma",
				"hint1": "Think force.",
				"hint2": "Mass and acceleration.",
				"solution": "F = ma by definition.",
				"memoryHook": "Fma"
			}`}, nil
		},
	}

	ex, err := NewGenerator(svc).Generate(context.Background(), testConcept())

	require.NoError(t, err)
	assert.Equal(t, int64(7), ex.ConceptID)
	assert.Equal(t, models.ExerciseTypeMCQ, ex.Type)
	assert.Len(t, ex.Options, 4)
	assert.Equal(t, "ma", ex.CorrectAnswer)
	assert.Equal(t, "Fma", ex.MemoryHook)
}

func TestGenerateShortAnswer(t *testing.T) {
	svc := &mockCompletionService{
		completeFn: func(req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return &llm.CompletionResponse{Content: `{
				"question": "State Newton's second law.",
				"type": "short_answer",
				"options": null,
				"correctAnswer": "F = ma",
				"hint1": "h1",
				"hint2": "h2",
				"solution": "s"
			}`}, nil
		},
	}

	ex, err := NewGenerator(svc).Generate(context.Background(), testConcept())

	require.NoError(t, err)
	assert.Equal(t, models.ExerciseTypeShortAnswer, ex.Type)
	assert.Nil(t, ex.Options)
}

func TestGenerateServiceErrorPropagates(t *testing.T) {
	svc := &mockCompletionService{
		completeFn: func(req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return nil, errors.New("rate limited")
		},
	}

	_, err := NewGenerator(svc).Generate(context.Background(), testConcept())

	assert.Error(t, err)
}

func TestGenerateUnparseableContentFails(t *testing.T) {
	svc := &mockCompletionService{
		completeFn: func(req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return &llm.CompletionResponse{Content: "Here is your exercise: what is F?"}, nil
		},
	}

	_, err := NewGenerator(svc).Generate(context.Background(), testConcept())

	assert.Error(t, err)
}

func TestGenerateValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"missing question", `{"type": "short_answer", "correctAnswer": "x"}`},
		{"missing answer", `{"question": "q", "type": "short_answer"}`},
		{"mcq wrong option count", `{"question": "q", "type": "mcq", "options": ["a", "b"], "correctAnswer": "a"}`},
		{"unknown type", `{"question": "q", "type": "essay", "correctAnswer": "x"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockCompletionService{
				completeFn: func(req llm.CompletionRequest) (*llm.CompletionResponse, error) {
					return &llm.CompletionResponse{Content: tc.content}, nil
				},
			}

			_, err := NewGenerator(svc).Generate(context.Background(), testConcept())
			assert.Error(t, err)
		})
	}
}
