package concepts

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhall/backend/internal/llm"
)

// mockCompletionService implements CompletionService for testing
type mockCompletionService struct {
	completeFn func(llm.CompletionRequest) (*llm.CompletionResponse, error)
	requests   []llm.CompletionRequest
}

func (m *mockCompletionService) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	m.requests = append(m.requests, req)
	if m.completeFn != nil {
		return m.completeFn(req)
	}
	return &llm.CompletionResponse{Content: "[]"}, nil
}

func TestExtractConceptsParsesArray(t *testing.T) {
	svc := &mockCompletionService{
		completeFn: func(req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return &llm.CompletionResponse{
				Content: `[{"title": "Vectors", "summary": "Quantities with direction.", "prerequisites": []}]`,
			}, nil
		},
	}

	candidates := NewExtractor(svc).ExtractConcepts(context.Background(), "some chunk text")

	require.Len(t, candidates, 1)
	assert.Equal(t, "Vectors", candidates[0].Title)
	assert.Equal(t, "Quantities with direction.", candidates[0].Summary)
}

func TestExtractConceptsUnwrapsObject(t *testing.T) {
	svc := &mockCompletionService{
		completeFn: func(req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return &llm.CompletionResponse{
				Content: `{"concepts": [{"title": "Limits", "summary": "s", "prerequisites": ["Functions"]}]}`,
			}, nil
		},
	}

	candidates := NewExtractor(svc).ExtractConcepts(context.Background(), "chunk")

	require.Len(t, candidates, 1)
	assert.Equal(t, []string{"Functions"}, candidates[0].Prerequisites)
}

func TestExtractConceptsStripsCodeFence(t *testing.T) {
	svc := &mockCompletionService{
		completeFn: func(req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return &llm.CompletionResponse{
				Content: "```json\n[{\"title\": \"Derivatives\", \"summary\": \"s\"}]\n```",
			}, nil
		},
	}

	candidates := NewExtractor(svc).ExtractConcepts(context.Background(), "chunk")

	require.Len(t, candidates, 1)
	assert.Equal(t, "Derivatives", candidates[0].Title)
}

func TestExtractConceptsServiceFailureYieldsEmpty(t *testing.T) {
	svc := &mockCompletionService{
		completeFn: func(req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return nil, errors.New("upstream unavailable")
		},
	}

	candidates := NewExtractor(svc).ExtractConcepts(context.Background(), "chunk")

	assert.Nil(t, candidates)
}

func TestExtractConceptsGarbageYieldsEmpty(t *testing.T) {
	svc := &mockCompletionService{
		completeFn: func(req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return &llm.CompletionResponse{Content: "I could not find any concepts, sorry!"}, nil
		},
	}

	candidates := NewExtractor(svc).ExtractConcepts(context.Background(), "chunk")

	assert.Nil(t, candidates)
}

func TestExtractConceptsSendsChunkText(t *testing.T) {
	svc := &mockCompletionService{}

	NewExtractor(svc).ExtractConcepts(context.Background(), "the photoelectric effect")

	require.Len(t, svc.requests, 1)
	assert.Contains(t, svc.requests[0].UserPrompt, "the photoelectric effect")
	assert.NotEmpty(t, svc.requests[0].SystemPrompt)
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFences(`{"a":1}`))
}
