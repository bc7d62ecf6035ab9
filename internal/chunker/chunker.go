// Package chunker splits extracted document text into overlapping,
// bounded segments sized for language-model input limits.
package chunker

// Pipeline defaults.
const (
	DefaultTargetTokens    = 500
	DefaultOverlapFraction = 0.2

	// boundaryWindow is how far around the raw cut point a sentence
	// boundary may be snapped to.
	boundaryWindow = 30

	// charsPerToken approximates token count from character count.
	charsPerToken = 4
)

// Split walks text left to right producing chunks of roughly
// targetTokens*4 characters. Chunk ends snap to the nearest
// sentence-ending period or newline within ±30 characters (periods
// win over newlines); consecutive chunks overlap by overlapFraction
// of the target length. Deterministic and side-effect free.
//
// Empty input yields no chunks. Input no longer than one target chunk
// yields exactly one chunk equal to the input.
func Split(text string, targetTokens int, overlapFraction float64) []string {
	if len(text) == 0 {
		return nil
	}

	targetChars := targetTokens * charsPerToken
	if targetChars <= 0 {
		targetChars = DefaultTargetTokens * charsPerToken
	}
	if len(text) <= targetChars {
		return []string{text}
	}

	overlap := int(float64(targetChars) * overlapFraction)
	if overlap >= targetChars {
		overlap = targetChars - 1
	}
	if overlap < 0 {
		overlap = 0
	}

	var chunks []string
	start := 0
	for {
		end := start + targetChars
		if end >= len(text) {
			chunks = append(chunks, text[start:])
			break
		}

		end = snapToBoundary(text, start, end)
		chunks = append(chunks, text[start:end])

		next := end - overlap
		if next <= start {
			// Overlap larger than the produced chunk; force progress.
			next = end
		}
		start = next
	}

	return chunks
}

// snapToBoundary moves the cut point to just past the nearest period
// or newline within the ±30 character window, preferring a period
// when both exist. Returns the unadjusted point when the window holds
// neither.
func snapToBoundary(text string, start, end int) int {
	lo := end - boundaryWindow
	if lo <= start {
		lo = start + 1
	}
	hi := end + boundaryWindow + 1
	if hi > len(text) {
		hi = len(text)
	}

	bestPeriod := -1
	bestNewline := -1
	periodDist := boundaryWindow + 1
	newlineDist := boundaryWindow + 1

	for i := lo; i < hi; i++ {
		dist := i - end
		if dist < 0 {
			dist = -dist
		}
		switch text[i] {
		case '.':
			if dist < periodDist {
				periodDist = dist
				bestPeriod = i
			}
		case '\n':
			if dist < newlineDist {
				newlineDist = dist
				bestNewline = i
			}
		}
	}

	if bestPeriod >= 0 {
		return bestPeriod + 1
	}
	if bestNewline >= 0 {
		return bestNewline + 1
	}
	return end
}
