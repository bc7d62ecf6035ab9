package concepts

import (
	"sort"
	"strconv"
	"strings"
)

// ChunkConcepts pairs one chunk's extraction result with that chunk's
// page estimate.
type ChunkConcepts struct {
	PageNumber int
	Candidates []Candidate
}

// Ordered is a merged concept positioned in the learning sequence.
type Ordered struct {
	Title         string
	Summary       string
	Prerequisites []string
	OrderIndex    int
	PageSpan      string
}

// mergedConcept accumulates per-chunk claims about one title.
type mergedConcept struct {
	title      string
	summary    string
	prereqs    []string
	prereqSeen map[string]bool
	pages      []int
}

// BuildOrdered merges per-chunk extractions into a deduplicated
// concept set and orders it so prerequisites come before dependents.
//
// Titles merge case-insensitively: the longer summary wins, page
// numbers accumulate, prerequisite lists union. Ordering is a
// reverse-postorder depth-first topological sort over the prerequisite
// graph. A cycle never fails the build: re-entering an in-progress
// node is skipped and the node keeps the position the first DFS path
// gave it.
func BuildOrdered(chunks []ChunkConcepts) []Ordered {
	merged := make(map[string]*mergedConcept)
	var order []string // first-appearance order of lowercase titles

	for _, chunk := range chunks {
		for _, cand := range chunk.Candidates {
			title := strings.TrimSpace(cand.Title)
			if title == "" {
				continue
			}
			key := strings.ToLower(title)

			mc, ok := merged[key]
			if !ok {
				mc = &mergedConcept{
					title:      title,
					prereqSeen: make(map[string]bool),
				}
				merged[key] = mc
				order = append(order, key)
			}

			if len(cand.Summary) > len(mc.summary) {
				mc.summary = cand.Summary
			}
			mc.pages = append(mc.pages, chunk.PageNumber)

			for _, prereq := range cand.Prerequisites {
				prereq = strings.TrimSpace(prereq)
				if prereq == "" {
					continue
				}
				pkey := strings.ToLower(prereq)
				if pkey == key || mc.prereqSeen[pkey] {
					continue
				}
				mc.prereqSeen[pkey] = true
				mc.prereqs = append(mc.prereqs, prereq)
			}
		}
	}

	sorted := topoSort(merged, order)

	result := make([]Ordered, 0, len(sorted))
	for i, key := range sorted {
		mc := merged[key]
		result = append(result, Ordered{
			Title:         mc.title,
			Summary:       mc.summary,
			Prerequisites: mc.prereqs,
			OrderIndex:    i,
			PageSpan:      formatPageSpan(mc.pages),
		})
	}

	return result
}

// DFS colors.
const (
	white = iota // unvisited
	gray         // in progress
	black        // done
)

// topoSort returns concept keys in an order where every acyclic
// prerequisite precedes its dependents. Nodes are taken in
// first-appearance order so the output is deterministic.
func topoSort(merged map[string]*mergedConcept, order []string) []string {
	// Edge from prerequisite to each concept that lists it. Dangling
	// prerequisite titles (never extracted as concepts) produce no
	// edge.
	dependents := make(map[string][]string, len(order))
	for _, key := range order {
		for _, prereq := range merged[key].prereqs {
			pkey := strings.ToLower(prereq)
			if _, ok := merged[pkey]; ok {
				dependents[pkey] = append(dependents[pkey], key)
			}
		}
	}

	color := make(map[string]int, len(order))
	var finished []string

	type frame struct {
		key  string
		next int
	}

	for _, start := range order {
		if color[start] != white {
			continue
		}

		stack := []frame{{key: start}}
		color[start] = gray

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			deps := dependents[top.key]

			if top.next < len(deps) {
				child := deps[top.next]
				top.next++
				// gray child means a cycle; skip re-entering it.
				if color[child] == white {
					color[child] = gray
					stack = append(stack, frame{key: child})
				}
				continue
			}

			color[top.key] = black
			finished = append(finished, top.key)
			stack = stack[:len(stack)-1]
		}
	}

	// Reverse postorder: last finished first.
	for i, j := 0, len(finished)-1; i < j; i, j = i+1, j-1 {
		finished[i], finished[j] = finished[j], finished[i]
	}

	return finished
}

// formatPageSpan deduplicates and sorts the accumulated page numbers,
// drops non-positive values, and joins with ", ". No pages yields "".
func formatPageSpan(pages []int) string {
	seen := make(map[int]bool)
	var unique []int
	for _, p := range pages {
		if p <= 0 || seen[p] {
			continue
		}
		seen[p] = true
		unique = append(unique, p)
	}
	sort.Ints(unique)

	parts := make([]string, len(unique))
	for i, p := range unique {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ", ")
}
