package models

import "time"

// Document processing states.
const (
	DocStatusProcessing = "processing"
	DocStatusIndexed    = "indexed"
	DocStatusFailed     = "failed"
)

type Document struct {
	ID          int64
	UserID      int64
	Title       string
	FileType    string
	StoragePath string
	Signature   string
	SizeBytes   int64
	PageCount   *int
	Status      string
	ErrorMsg    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DocumentChunk is one bounded slice of a document's extracted text.
// ChunkIndex is 0-based and preserves source order; consecutive
// chunks overlap and are not deduplicated.
type DocumentChunk struct {
	ID          int64
	DocumentID  int64
	ChunkIndex  int
	Content     string
	PageNumber  *int
	EmbeddingID string
	CreatedAt   time.Time
}

// Concept is one educational idea extracted from a document.
// OrderIndex positions it in the learning sequence (dense, 0-based)
// and respects the prerequisite graph wherever that graph is acyclic.
type Concept struct {
	ID            int64
	DocumentID    int64
	Title         string
	Summary       string
	Prerequisites []string
	OrderIndex    int
	PageSpan      string
	CreatedAt     time.Time
}

// Exercise types.
const (
	ExerciseTypeMCQ         = "mcq"
	ExerciseTypeShortAnswer = "short_answer"
)

type Exercise struct {
	ID            int64
	ConceptID     int64
	Question      string
	Type          string
	Options       []string
	CorrectAnswer string
	Hint1         string
	Hint2         string
	Solution      string
	MemoryHook    string
	CreatedAt     time.Time
}

// ReviewStat tracks spaced-repetition scheduling for one
// (user, concept) pair. EaseFactor never drops below 130.
type ReviewStat struct {
	ID              int64
	UserID          int64
	ConceptID       int64
	EaseFactor      int
	IntervalDays    int
	NextReviewDate  time.Time
	Attempts        int
	CorrectAttempts int
	LastReviewedAt  *time.Time
}
