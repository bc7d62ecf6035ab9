package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/studyhall/backend/internal/cache/redis"
	"github.com/studyhall/backend/internal/metrics"
	"github.com/studyhall/backend/internal/review"
	"github.com/studyhall/backend/internal/storage/models"
	"github.com/studyhall/backend/internal/storage/sqlite"
	"github.com/studyhall/backend/pkg/logger"
)

const dueListCacheTTL = time.Minute

type ReviewHandler struct {
	store     *sqlite.Client
	scheduler *review.Scheduler
	cache     *redis.Client
}

func NewReviewHandler(store *sqlite.Client, scheduler *review.Scheduler, cache *redis.Client) *ReviewHandler {
	return &ReviewHandler{
		store:     store,
		scheduler: scheduler,
		cache:     cache,
	}
}

// SubmitAnswer grades one exercise answer and advances the spaced
// repetition state for the exercise's concept. Grading is a trimmed,
// case-insensitive comparison against the stored correct answer.
func (h *ReviewHandler) SubmitAnswer(c *fiber.Ctx) error {
	var req struct {
		UserID     int64  `json:"user_id"`
		ExerciseID int64  `json:"exercise_id"`
		Answer     string `json:"answer"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.UserID <= 0 || req.ExerciseID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id and exercise_id are required",
		})
	}
	if strings.TrimSpace(req.Answer) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "answer is required",
		})
	}

	exercise, err := h.store.GetExercise(req.ExerciseID)
	if err != nil {
		logger.Error("Failed to load exercise", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load exercise",
		})
	}
	if exercise == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Exercise not found",
		})
	}

	isCorrect := strings.EqualFold(
		strings.TrimSpace(req.Answer),
		strings.TrimSpace(exercise.CorrectAnswer),
	)

	stat, err := h.scheduler.RecordAnswer(req.UserID, exercise.ConceptID, isCorrect, time.Now())
	if err != nil {
		logger.Error("Failed to record answer", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to record answer",
		})
	}

	result := "incorrect"
	if isCorrect {
		result = "correct"
	}
	metrics.ReviewSubmissions.WithLabelValues(result).Inc()

	// The answer changed this user's schedule, so the cached due list
	// is stale.
	if h.cache != nil {
		if err := h.cache.InvalidateUser(c.Context(), req.UserID); err != nil {
			logger.Warn("Failed to invalidate due-review cache", zap.Error(err))
		}
	}

	return c.JSON(fiber.Map{
		"correct":          isCorrect,
		"correct_answer":   exercise.CorrectAnswer,
		"solution":         exercise.Solution,
		"ease_factor":      stat.EaseFactor,
		"interval_days":    stat.IntervalDays,
		"next_review_date": stat.NextReviewDate,
	})
}

// DueReviews lists the concepts due for review today or earlier,
// served from the read cache when present.
func (h *ReviewHandler) DueReviews(c *fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id is required",
		})
	}

	cacheKey := "user:" + strconv.FormatInt(userID, 10) + ":due"
	if h.cache != nil {
		var cached []models.Concept
		if ok, err := h.cache.GetView(c.Context(), cacheKey, &cached); err == nil && ok {
			return c.JSON(fiber.Map{
				"due":   cached,
				"count": len(cached),
			})
		}
	}

	due, err := h.scheduler.DueConcepts(userID, time.Now())
	if err != nil {
		logger.Error("Failed to list due concepts", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list due concepts",
		})
	}

	if h.cache != nil {
		if err := h.cache.SetView(c.Context(), cacheKey, due, dueListCacheTTL); err != nil {
			logger.Warn("Failed to cache due list", zap.Error(err))
		}
	}

	return c.JSON(fiber.Map{
		"due":   due,
		"count": len(due),
	})
}
