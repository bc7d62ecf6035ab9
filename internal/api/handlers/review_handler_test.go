package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhall/backend/internal/review"
	"github.com/studyhall/backend/internal/storage/models"
	"github.com/studyhall/backend/internal/storage/sqlite"
)

type reviewFixture struct {
	app        *fiber.App
	store      *sqlite.Client
	exerciseID int64
	conceptID  int64
}

func newReviewFixture(t *testing.T) *reviewFixture {
	t.Helper()

	store, err := sqlite.NewClient(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.InitSchema())

	docID, err := store.InsertDocument(&models.Document{
		UserID:      1,
		Title:       "Biology Notes",
		FileType:    "pdf",
		StoragePath: "/tmp/bio.pdf",
		Status:      models.DocStatusIndexed,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	})
	require.NoError(t, err)

	conceptID, err := store.InsertConcept(&models.Concept{
		DocumentID: docID,
		Title:      "Mitosis",
		Summary:    "Cell division producing identical daughter cells.",
		OrderIndex: 0,
		CreatedAt:  time.Now(),
	})
	require.NoError(t, err)

	exerciseID, err := store.InsertExercise(&models.Exercise{
		ConceptID:     conceptID,
		Question:      "What process divides a cell into two identical cells?",
		Type:          models.ExerciseTypeShortAnswer,
		CorrectAnswer: "Mitosis",
		Solution:      "Mitosis copies the genome and splits the cell.",
		CreatedAt:     time.Now(),
	})
	require.NoError(t, err)

	handler := NewReviewHandler(store, review.NewScheduler(store), nil)
	app := fiber.New()
	app.Post("/reviews/answers", handler.SubmitAnswer)

	return &reviewFixture{
		app:        app,
		store:      store,
		exerciseID: exerciseID,
		conceptID:  conceptID,
	}
}

func (f *reviewFixture) submit(t *testing.T, body map[string]interface{}) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/reviews/answers", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestSubmitAnswerGradesAndSchedules(t *testing.T) {
	f := newReviewFixture(t)

	resp := f.submit(t, map[string]interface{}{
		"user_id":     int64(1),
		"exercise_id": f.exerciseID,
		"answer":      "  mitosis ",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Correct      bool `json:"correct"`
		EaseFactor   int  `json:"ease_factor"`
		IntervalDays int  `json:"interval_days"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Correct)
	assert.Equal(t, 270, body.EaseFactor)
	assert.Equal(t, 6, body.IntervalDays)
}

func TestSubmitAnswerRejectsMissingAnswer(t *testing.T) {
	f := newReviewFixture(t)

	for _, answer := range []string{"", "   "} {
		resp := f.submit(t, map[string]interface{}{
			"user_id":     int64(1),
			"exercise_id": f.exerciseID,
			"answer":      answer,
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	}

	// Rejected submissions must leave review state untouched.
	stat, err := f.store.GetReviewStat(1, f.conceptID)
	require.NoError(t, err)
	assert.Nil(t, stat)
}

func TestSubmitAnswerUnknownExercise(t *testing.T) {
	f := newReviewFixture(t)

	resp := f.submit(t, map[string]interface{}{
		"user_id":     int64(1),
		"exercise_id": int64(9999),
		"answer":      "anything",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
