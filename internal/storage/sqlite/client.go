package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/studyhall/backend/internal/storage/models"
	"github.com/studyhall/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		file_type TEXT NOT NULL,
		storage_path TEXT NOT NULL,
		signature TEXT,
		size_bytes INTEGER NOT NULL DEFAULT 0,
		page_count INTEGER,
		status TEXT NOT NULL,
		error_msg TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_documents_user ON documents(user_id);
	CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);

	CREATE TABLE IF NOT EXISTS document_chunks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		document_id INTEGER NOT NULL,
		chunk_index INTEGER NOT NULL,
		content TEXT NOT NULL,
		page_number INTEGER,
		embedding_id TEXT,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_document ON document_chunks(document_id, chunk_index);

	CREATE TABLE IF NOT EXISTS concepts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		document_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		summary TEXT,
		prerequisites TEXT,
		order_index INTEGER NOT NULL,
		page_span TEXT,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_concepts_document ON concepts(document_id, order_index);

	CREATE TABLE IF NOT EXISTS exercises (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		concept_id INTEGER NOT NULL,
		question TEXT NOT NULL,
		type TEXT NOT NULL,
		options TEXT,
		correct_answer TEXT NOT NULL,
		hint1 TEXT,
		hint2 TEXT,
		solution TEXT,
		memory_hook TEXT,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (concept_id) REFERENCES concepts(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_exercises_concept ON exercises(concept_id);

	CREATE TABLE IF NOT EXISTS review_stats (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		concept_id INTEGER NOT NULL,
		ease_factor INTEGER NOT NULL,
		interval_days INTEGER NOT NULL,
		next_review_date INTEGER NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		correct_attempts INTEGER NOT NULL DEFAULT 0,
		last_reviewed_at INTEGER,
		UNIQUE(user_id, concept_id),
		FOREIGN KEY (concept_id) REFERENCES concepts(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_review_due ON review_stats(user_id, next_review_date);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertDocument(doc *models.Document) (int64, error) {
	query := `
		INSERT INTO documents (user_id, title, file_type, storage_path, signature, size_bytes, page_count, status, error_msg, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := c.db.Exec(
		query,
		doc.UserID,
		doc.Title,
		doc.FileType,
		doc.StoragePath,
		doc.Signature,
		doc.SizeBytes,
		doc.PageCount,
		doc.Status,
		doc.ErrorMsg,
		doc.CreatedAt.Unix(),
		doc.UpdatedAt.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert document: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read document id: %w", err)
	}
	doc.ID = id

	logger.Debug("Document inserted", zap.Int64("document_id", id), zap.String("title", doc.Title))
	return id, nil
}

func (c *Client) GetDocument(id int64) (*models.Document, error) {
	query := `
		SELECT id, user_id, title, file_type, storage_path, signature, size_bytes, page_count, status, error_msg, created_at, updated_at
		FROM documents WHERE id = ?
	`

	var doc models.Document
	var errMsg sql.NullString
	var pageCount sql.NullInt64
	var createdAt, updatedAt int64

	err := c.db.QueryRow(query, id).Scan(
		&doc.ID,
		&doc.UserID,
		&doc.Title,
		&doc.FileType,
		&doc.StoragePath,
		&doc.Signature,
		&doc.SizeBytes,
		&pageCount,
		&doc.Status,
		&errMsg,
		&createdAt,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	if pageCount.Valid {
		pc := int(pageCount.Int64)
		doc.PageCount = &pc
	}
	doc.ErrorMsg = errMsg.String
	doc.CreatedAt = time.Unix(createdAt, 0)
	doc.UpdatedAt = time.Unix(updatedAt, 0)

	return &doc, nil
}

func (c *Client) UpdateDocumentStatus(id int64, status, errorMsg string) error {
	query := `UPDATE documents SET status = ?, error_msg = ?, updated_at = ? WHERE id = ?`

	_, err := c.db.Exec(query, status, errorMsg, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}

	logger.Debug("Document status updated", zap.Int64("document_id", id), zap.String("status", status))
	return nil
}

func (c *Client) SetDocumentPageCount(id int64, pageCount int) error {
	query := `UPDATE documents SET page_count = ?, updated_at = ? WHERE id = ?`

	_, err := c.db.Exec(query, pageCount, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to set document page count: %w", err)
	}
	return nil
}

func (c *Client) InsertChunk(chunk *models.DocumentChunk) (int64, error) {
	query := `
		INSERT INTO document_chunks (document_id, chunk_index, content, page_number, embedding_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	res, err := c.db.Exec(
		query,
		chunk.DocumentID,
		chunk.ChunkIndex,
		chunk.Content,
		chunk.PageNumber,
		chunk.EmbeddingID,
		chunk.CreatedAt.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert chunk: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read chunk id: %w", err)
	}
	chunk.ID = id
	return id, nil
}

func (c *Client) ListChunks(documentID int64) ([]models.DocumentChunk, error) {
	query := `
		SELECT id, document_id, chunk_index, content, page_number, embedding_id, created_at
		FROM document_chunks
		WHERE document_id = ?
		ORDER BY chunk_index ASC
	`

	rows, err := c.db.Query(query, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	defer rows.Close()

	var chunks []models.DocumentChunk
	for rows.Next() {
		var ch models.DocumentChunk
		var pageNumber sql.NullInt64
		var embeddingID sql.NullString
		var createdAt int64

		err := rows.Scan(&ch.ID, &ch.DocumentID, &ch.ChunkIndex, &ch.Content, &pageNumber, &embeddingID, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chunk row: %w", err)
		}

		if pageNumber.Valid {
			pn := int(pageNumber.Int64)
			ch.PageNumber = &pn
		}
		ch.EmbeddingID = embeddingID.String
		ch.CreatedAt = time.Unix(createdAt, 0)
		chunks = append(chunks, ch)
	}

	return chunks, rows.Err()
}

func (c *Client) SetChunkEmbeddingID(chunkID int64, embeddingID string) error {
	_, err := c.db.Exec(`UPDATE document_chunks SET embedding_id = ? WHERE id = ?`, embeddingID, chunkID)
	if err != nil {
		return fmt.Errorf("failed to set chunk embedding id: %w", err)
	}
	return nil
}

func (c *Client) InsertConcept(concept *models.Concept) (int64, error) {
	prereqJSON, _ := json.Marshal(concept.Prerequisites)

	query := `
		INSERT INTO concepts (document_id, title, summary, prerequisites, order_index, page_span, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	res, err := c.db.Exec(
		query,
		concept.DocumentID,
		concept.Title,
		concept.Summary,
		string(prereqJSON),
		concept.OrderIndex,
		concept.PageSpan,
		concept.CreatedAt.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert concept: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read concept id: %w", err)
	}
	concept.ID = id
	return id, nil
}

func (c *Client) scanConcept(scan func(dest ...interface{}) error) (*models.Concept, error) {
	var concept models.Concept
	var summary, prereqJSON, pageSpan sql.NullString
	var createdAt int64

	err := scan(
		&concept.ID,
		&concept.DocumentID,
		&concept.Title,
		&summary,
		&prereqJSON,
		&concept.OrderIndex,
		&pageSpan,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	concept.Summary = summary.String
	concept.PageSpan = pageSpan.String
	if prereqJSON.Valid && prereqJSON.String != "" {
		json.Unmarshal([]byte(prereqJSON.String), &concept.Prerequisites)
	}
	concept.CreatedAt = time.Unix(createdAt, 0)
	return &concept, nil
}

const conceptColumns = `id, document_id, title, summary, prerequisites, order_index, page_span, created_at`

func (c *Client) GetConcept(id int64) (*models.Concept, error) {
	row := c.db.QueryRow(`SELECT `+conceptColumns+` FROM concepts WHERE id = ?`, id)
	concept, err := c.scanConcept(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get concept: %w", err)
	}
	return concept, nil
}

func (c *Client) ListConcepts(documentID int64) ([]models.Concept, error) {
	rows, err := c.db.Query(
		`SELECT `+conceptColumns+` FROM concepts WHERE document_id = ? ORDER BY order_index ASC`,
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list concepts: %w", err)
	}
	defer rows.Close()

	var concepts []models.Concept
	for rows.Next() {
		concept, err := c.scanConcept(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan concept row: %w", err)
		}
		concepts = append(concepts, *concept)
	}

	return concepts, rows.Err()
}

// GetAdjacentConcept returns the concept before (offset -1) or after
// (offset +1) the given order index within the same document, or nil
// when the sequence ends there.
func (c *Client) GetAdjacentConcept(documentID int64, orderIndex, offset int) (*models.Concept, error) {
	row := c.db.QueryRow(
		`SELECT `+conceptColumns+` FROM concepts WHERE document_id = ? AND order_index = ?`,
		documentID, orderIndex+offset,
	)
	concept, err := c.scanConcept(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get adjacent concept: %w", err)
	}
	return concept, nil
}

func (c *Client) InsertExercise(ex *models.Exercise) (int64, error) {
	var optionsJSON interface{}
	if len(ex.Options) > 0 {
		data, _ := json.Marshal(ex.Options)
		optionsJSON = string(data)
	}

	query := `
		INSERT INTO exercises (concept_id, question, type, options, correct_answer, hint1, hint2, solution, memory_hook, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := c.db.Exec(
		query,
		ex.ConceptID,
		ex.Question,
		ex.Type,
		optionsJSON,
		ex.CorrectAnswer,
		ex.Hint1,
		ex.Hint2,
		ex.Solution,
		ex.MemoryHook,
		ex.CreatedAt.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert exercise: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read exercise id: %w", err)
	}
	ex.ID = id
	return id, nil
}

func (c *Client) scanExercise(scan func(dest ...interface{}) error) (*models.Exercise, error) {
	var ex models.Exercise
	var options, hint1, hint2, solution, memoryHook sql.NullString
	var createdAt int64

	err := scan(
		&ex.ID,
		&ex.ConceptID,
		&ex.Question,
		&ex.Type,
		&options,
		&ex.CorrectAnswer,
		&hint1,
		&hint2,
		&solution,
		&memoryHook,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if options.Valid && options.String != "" {
		json.Unmarshal([]byte(options.String), &ex.Options)
	}
	ex.Hint1 = hint1.String
	ex.Hint2 = hint2.String
	ex.Solution = solution.String
	ex.MemoryHook = memoryHook.String
	ex.CreatedAt = time.Unix(createdAt, 0)
	return &ex, nil
}

const exerciseColumns = `id, concept_id, question, type, options, correct_answer, hint1, hint2, solution, memory_hook, created_at`

func (c *Client) GetExercise(id int64) (*models.Exercise, error) {
	row := c.db.QueryRow(`SELECT `+exerciseColumns+` FROM exercises WHERE id = ?`, id)
	ex, err := c.scanExercise(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get exercise: %w", err)
	}
	return ex, nil
}

func (c *Client) ListExercises(conceptID int64) ([]models.Exercise, error) {
	rows, err := c.db.Query(`SELECT `+exerciseColumns+` FROM exercises WHERE concept_id = ? ORDER BY id ASC`, conceptID)
	if err != nil {
		return nil, fmt.Errorf("failed to list exercises: %w", err)
	}
	defer rows.Close()

	var exercises []models.Exercise
	for rows.Next() {
		ex, err := c.scanExercise(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan exercise row: %w", err)
		}
		exercises = append(exercises, *ex)
	}

	return exercises, rows.Err()
}

func (c *Client) CreateReviewStat(stat *models.ReviewStat) error {
	query := `
		INSERT OR IGNORE INTO review_stats (user_id, concept_id, ease_factor, interval_days, next_review_date, attempts, correct_attempts, last_reviewed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, NULL)
	`

	_, err := c.db.Exec(
		query,
		stat.UserID,
		stat.ConceptID,
		stat.EaseFactor,
		stat.IntervalDays,
		stat.NextReviewDate.Unix(),
		stat.Attempts,
		stat.CorrectAttempts,
	)
	if err != nil {
		return fmt.Errorf("failed to create review stat: %w", err)
	}
	return nil
}

func (c *Client) GetReviewStat(userID, conceptID int64) (*models.ReviewStat, error) {
	query := `
		SELECT id, user_id, concept_id, ease_factor, interval_days, next_review_date, attempts, correct_attempts, last_reviewed_at
		FROM review_stats WHERE user_id = ? AND concept_id = ?
	`

	var stat models.ReviewStat
	var nextReview int64
	var lastReviewed sql.NullInt64

	err := c.db.QueryRow(query, userID, conceptID).Scan(
		&stat.ID,
		&stat.UserID,
		&stat.ConceptID,
		&stat.EaseFactor,
		&stat.IntervalDays,
		&nextReview,
		&stat.Attempts,
		&stat.CorrectAttempts,
		&lastReviewed,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review stat: %w", err)
	}

	stat.NextReviewDate = time.Unix(nextReview, 0).UTC()
	if lastReviewed.Valid {
		t := time.Unix(lastReviewed.Int64, 0).UTC()
		stat.LastReviewedAt = &t
	}

	return &stat, nil
}

func (c *Client) UpdateReviewStat(stat *models.ReviewStat) error {
	query := `
		UPDATE review_stats
		SET ease_factor = ?, interval_days = ?, next_review_date = ?, attempts = ?, correct_attempts = ?, last_reviewed_at = ?
		WHERE user_id = ? AND concept_id = ?
	`

	var lastReviewed interface{}
	if stat.LastReviewedAt != nil {
		lastReviewed = stat.LastReviewedAt.Unix()
	}

	_, err := c.db.Exec(
		query,
		stat.EaseFactor,
		stat.IntervalDays,
		stat.NextReviewDate.Unix(),
		stat.Attempts,
		stat.CorrectAttempts,
		lastReviewed,
		stat.UserID,
		stat.ConceptID,
	)
	if err != nil {
		return fmt.Errorf("failed to update review stat: %w", err)
	}
	return nil
}

// ListDueConcepts returns concepts whose review stat for the user has
// next_review_date at or before the given cutoff.
func (c *Client) ListDueConcepts(userID int64, cutoff time.Time) ([]models.Concept, error) {
	query := `
		SELECT c.id, c.document_id, c.title, c.summary, c.prerequisites, c.order_index, c.page_span, c.created_at
		FROM concepts c
		JOIN review_stats r ON r.concept_id = c.id
		WHERE r.user_id = ? AND r.next_review_date <= ?
		ORDER BY r.next_review_date ASC, c.order_index ASC
	`

	rows, err := c.db.Query(query, userID, cutoff.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to list due concepts: %w", err)
	}
	defer rows.Close()

	var concepts []models.Concept
	for rows.Next() {
		concept, err := c.scanConcept(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan due concept row: %w", err)
		}
		concepts = append(concepts, *concept)
	}

	return concepts, rows.Err()
}

// CountConcepts and CountExercises back the document status view.
func (c *Client) CountConcepts(documentID int64) (int, error) {
	var n int
	err := c.db.QueryRow(`SELECT COUNT(*) FROM concepts WHERE document_id = ?`, documentID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count concepts: %w", err)
	}
	return n, nil
}

func (c *Client) CountExercises(documentID int64) (int, error) {
	var n int
	err := c.db.QueryRow(
		`SELECT COUNT(*) FROM exercises e JOIN concepts c ON c.id = e.concept_id WHERE c.document_id = ?`,
		documentID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count exercises: %w", err)
	}
	return n, nil
}
