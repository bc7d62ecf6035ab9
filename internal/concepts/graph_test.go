package concepts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func indexOf(ordered []Ordered, title string) int {
	for i, o := range ordered {
		if o.Title == title {
			return i
		}
	}
	return -1
}

func TestBuildOrderedEmpty(t *testing.T) {
	assert.Empty(t, BuildOrdered(nil))
	assert.Empty(t, BuildOrdered([]ChunkConcepts{{PageNumber: 1}}))
}

func TestBuildOrderedMergesCaseInsensitive(t *testing.T) {
	chunks := []ChunkConcepts{
		{PageNumber: 1, Candidates: []Candidate{
			{Title: "Vectors", Summary: "Short."},
		}},
		{PageNumber: 2, Candidates: []Candidate{
			{Title: "vectors", Summary: "A much longer summary of vector spaces."},
		}},
	}

	ordered := BuildOrdered(chunks)

	require.Len(t, ordered, 1)
	// First-seen casing is kept, the longer summary wins, pages
	// accumulate across chunks.
	assert.Equal(t, "Vectors", ordered[0].Title)
	assert.Equal(t, "A much longer summary of vector spaces.", ordered[0].Summary)
	assert.Equal(t, "1, 2", ordered[0].PageSpan)
}

func TestBuildOrderedPrerequisiteUnion(t *testing.T) {
	chunks := []ChunkConcepts{
		{PageNumber: 1, Candidates: []Candidate{
			{Title: "Matrices", Prerequisites: []string{"Vectors"}},
		}},
		{PageNumber: 2, Candidates: []Candidate{
			{Title: "matrices", Prerequisites: []string{"vectors", "Scalars"}},
		}},
	}

	ordered := BuildOrdered(chunks)

	require.Len(t, ordered, 1)
	assert.Equal(t, []string{"Vectors", "Scalars"}, ordered[0].Prerequisites)
}

func TestBuildOrderedSelfPrerequisiteDropped(t *testing.T) {
	chunks := []ChunkConcepts{
		{PageNumber: 1, Candidates: []Candidate{
			{Title: "Recursion", Prerequisites: []string{"recursion", "Functions"}},
		}},
	}

	ordered := BuildOrdered(chunks)

	require.Len(t, ordered, 1)
	assert.Equal(t, []string{"Functions"}, ordered[0].Prerequisites)
}

func TestBuildOrderedTopologicalOrder(t *testing.T) {
	// Dependents listed before their prerequisites in extraction
	// order; the sort must still put prerequisites first.
	chunks := []ChunkConcepts{
		{PageNumber: 1, Candidates: []Candidate{
			{Title: "Eigenvalues", Prerequisites: []string{"Matrices"}},
			{Title: "Matrices", Prerequisites: []string{"Vectors"}},
			{Title: "Vectors"},
		}},
	}

	ordered := BuildOrdered(chunks)

	require.Len(t, ordered, 3)
	assert.Less(t, indexOf(ordered, "Vectors"), indexOf(ordered, "Matrices"))
	assert.Less(t, indexOf(ordered, "Matrices"), indexOf(ordered, "Eigenvalues"))
}

func TestBuildOrderedDenseOrderIndex(t *testing.T) {
	chunks := []ChunkConcepts{
		{PageNumber: 1, Candidates: []Candidate{
			{Title: "A"}, {Title: "B"}, {Title: "C", Prerequisites: []string{"A"}},
		}},
	}

	ordered := BuildOrdered(chunks)

	require.Len(t, ordered, 3)
	for i, o := range ordered {
		assert.Equal(t, i, o.OrderIndex)
	}
}

func TestBuildOrderedCycleTolerated(t *testing.T) {
	chunks := []ChunkConcepts{
		{PageNumber: 1, Candidates: []Candidate{
			{Title: "A", Prerequisites: []string{"B"}},
			{Title: "B", Prerequisites: []string{"A"}},
			{Title: "C"},
		}},
	}

	ordered := BuildOrdered(chunks)

	// Every concept still appears exactly once with a dense index.
	require.Len(t, ordered, 3)
	seen := map[string]bool{}
	for i, o := range ordered {
		assert.Equal(t, i, o.OrderIndex)
		assert.False(t, seen[o.Title])
		seen[o.Title] = true
	}
}

func TestBuildOrderedDanglingPrerequisite(t *testing.T) {
	// A prerequisite never extracted as a concept still appears in
	// the list but contributes no ordering edge.
	chunks := []ChunkConcepts{
		{PageNumber: 3, Candidates: []Candidate{
			{Title: "Integrals", Prerequisites: []string{"Limits"}},
		}},
	}

	ordered := BuildOrdered(chunks)

	require.Len(t, ordered, 1)
	assert.Equal(t, []string{"Limits"}, ordered[0].Prerequisites)
}

func TestFormatPageSpan(t *testing.T) {
	assert.Equal(t, "", formatPageSpan(nil))
	assert.Equal(t, "1, 2, 3", formatPageSpan([]int{3, 1, 2, 2, 1}))
	assert.Equal(t, "5", formatPageSpan([]int{5, 5, 0, -1}))
}
