// Package review schedules per-user, per-concept practice using a
// SuperMemo-2-derived algorithm with integer ease factors.
package review

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/studyhall/backend/internal/storage/models"
	"github.com/studyhall/backend/pkg/logger"
)

const (
	// DefaultEaseFactor is the starting ease, in hundredths.
	DefaultEaseFactor = 250
	// MinEaseFactor is the floor no update may cross.
	MinEaseFactor = 130
	// DefaultInterval is the starting review interval in days.
	DefaultInterval = 1

	easeReward  = 20
	easePenalty = 30
)

// StatStore is the persistence slice the scheduler needs; satisfied
// by the sqlite client.
type StatStore interface {
	CreateReviewStat(stat *models.ReviewStat) error
	GetReviewStat(userID, conceptID int64) (*models.ReviewStat, error)
	UpdateReviewStat(stat *models.ReviewStat) error
	ListDueConcepts(userID int64, cutoff time.Time) ([]models.Concept, error)
}

// Today truncates a time to UTC midnight; all review dates live on
// that grid.
func Today(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewStat is the initial scheduling state for one (user, concept).
func NewStat(userID, conceptID int64, now time.Time) *models.ReviewStat {
	return &models.ReviewStat{
		UserID:         userID,
		ConceptID:      conceptID,
		EaseFactor:     DefaultEaseFactor,
		IntervalDays:   DefaultInterval,
		NextReviewDate: Today(now),
	}
}

// Apply advances a stat after one answer. Correct answers walk the
// 1 → 6 → 15 ladder and then grow the interval by easeFactor/100;
// incorrect answers reset the interval to one day. The ease factor
// never drops below MinEaseFactor.
func Apply(stat *models.ReviewStat, isCorrect bool, now time.Time) {
	if isCorrect {
		switch stat.IntervalDays {
		case 1:
			stat.IntervalDays = 6
		case 6:
			stat.IntervalDays = 15
		default:
			stat.IntervalDays = int(math.Round(float64(stat.IntervalDays) * float64(stat.EaseFactor) / 100))
		}
		stat.EaseFactor = clampEase(stat.EaseFactor + easeReward)
		stat.CorrectAttempts++
	} else {
		stat.IntervalDays = DefaultInterval
		stat.EaseFactor = clampEase(stat.EaseFactor - easePenalty)
	}

	stat.NextReviewDate = Today(now).AddDate(0, 0, stat.IntervalDays)
	stat.Attempts++
	reviewedAt := now
	stat.LastReviewedAt = &reviewedAt
}

func clampEase(ease int) int {
	if ease < MinEaseFactor {
		return MinEaseFactor
	}
	return ease
}

// Scheduler persists scheduling state through a StatStore.
type Scheduler struct {
	store StatStore
}

func NewScheduler(store StatStore) *Scheduler {
	return &Scheduler{store: store}
}

// Initialize creates one stat per concept for the user. Existing
// (user, concept) pairs are left untouched.
func (s *Scheduler) Initialize(userID int64, conceptList []models.Concept, now time.Time) error {
	for _, concept := range conceptList {
		if err := s.store.CreateReviewStat(NewStat(userID, concept.ID, now)); err != nil {
			return fmt.Errorf("failed to initialize review stat for concept %d: %w", concept.ID, err)
		}
	}

	logger.Info("Spaced repetition initialized",
		zap.Int64("user_id", userID),
		zap.Int("concepts", len(conceptList)),
	)

	return nil
}

// RecordAnswer applies one answer to the (user, concept) stat and
// persists the result. A missing stat is created on the fly so a
// review can never be lost to an incomplete initialization.
func (s *Scheduler) RecordAnswer(userID, conceptID int64, isCorrect bool, now time.Time) (*models.ReviewStat, error) {
	stat, err := s.store.GetReviewStat(userID, conceptID)
	if err != nil {
		return nil, fmt.Errorf("failed to load review stat: %w", err)
	}
	if stat == nil {
		stat = NewStat(userID, conceptID, now)
		if err := s.store.CreateReviewStat(stat); err != nil {
			return nil, fmt.Errorf("failed to create review stat: %w", err)
		}
	}

	Apply(stat, isCorrect, now)

	if err := s.store.UpdateReviewStat(stat); err != nil {
		return nil, fmt.Errorf("failed to persist review stat: %w", err)
	}

	return stat, nil
}

// DueConcepts lists the user's concepts whose next review date is
// today or earlier.
func (s *Scheduler) DueConcepts(userID int64, now time.Time) ([]models.Concept, error) {
	return s.store.ListDueConcepts(userID, Today(now))
}
