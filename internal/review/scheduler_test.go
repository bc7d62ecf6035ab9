package review

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhall/backend/internal/storage/models"
)

// mockStatStore implements StatStore for testing
type mockStatStore struct {
	stats        map[[2]int64]*models.ReviewStat
	createErr    error
	dueFn        func(userID int64, cutoff time.Time) ([]models.Concept, error)
	lastCutoff   time.Time
	createdCount int
}

func newMockStatStore() *mockStatStore {
	return &mockStatStore{stats: make(map[[2]int64]*models.ReviewStat)}
}

func (m *mockStatStore) CreateReviewStat(stat *models.ReviewStat) error {
	if m.createErr != nil {
		return m.createErr
	}
	key := [2]int64{stat.UserID, stat.ConceptID}
	if _, exists := m.stats[key]; !exists {
		copied := *stat
		m.stats[key] = &copied
		m.createdCount++
	}
	return nil
}

func (m *mockStatStore) GetReviewStat(userID, conceptID int64) (*models.ReviewStat, error) {
	stat, ok := m.stats[[2]int64{userID, conceptID}]
	if !ok {
		return nil, nil
	}
	copied := *stat
	return &copied, nil
}

func (m *mockStatStore) UpdateReviewStat(stat *models.ReviewStat) error {
	copied := *stat
	m.stats[[2]int64{stat.UserID, stat.ConceptID}] = &copied
	return nil
}

func (m *mockStatStore) ListDueConcepts(userID int64, cutoff time.Time) ([]models.Concept, error) {
	m.lastCutoff = cutoff
	if m.dueFn != nil {
		return m.dueFn(userID, cutoff)
	}
	return nil, nil
}

var testNow = time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)

func TestTodayTruncatesToUTCMidnight(t *testing.T) {
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), Today(testNow))

	// A local time east of UTC still lands on the UTC calendar day.
	loc := time.FixedZone("UTC+9", 9*3600)
	late := time.Date(2024, 3, 16, 2, 0, 0, 0, loc) // 2024-03-15 17:00 UTC
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), Today(late))
}

func TestNewStatDefaults(t *testing.T) {
	stat := NewStat(1, 42, testNow)

	assert.Equal(t, DefaultEaseFactor, stat.EaseFactor)
	assert.Equal(t, DefaultInterval, stat.IntervalDays)
	assert.Equal(t, Today(testNow), stat.NextReviewDate)
	assert.Zero(t, stat.Attempts)
}

func TestApplyCorrectLadder(t *testing.T) {
	stat := NewStat(1, 42, testNow)

	Apply(stat, true, testNow)
	assert.Equal(t, 6, stat.IntervalDays)
	assert.Equal(t, 270, stat.EaseFactor)

	Apply(stat, true, testNow)
	assert.Equal(t, 15, stat.IntervalDays)
	assert.Equal(t, 290, stat.EaseFactor)

	// Past the ladder the interval grows by the ease factor held
	// before this answer's reward: round(15 * 290 / 100) = 44.
	Apply(stat, true, testNow)
	assert.Equal(t, 44, stat.IntervalDays)
	assert.Equal(t, 310, stat.EaseFactor)

	assert.Equal(t, 3, stat.Attempts)
	assert.Equal(t, 3, stat.CorrectAttempts)
	assert.Equal(t, Today(testNow).AddDate(0, 0, 44), stat.NextReviewDate)
}

func TestApplyIncorrectResets(t *testing.T) {
	stat := NewStat(1, 42, testNow)
	stat.IntervalDays = 15
	stat.EaseFactor = 290

	Apply(stat, false, testNow)

	assert.Equal(t, 1, stat.IntervalDays)
	assert.Equal(t, 260, stat.EaseFactor)
	assert.Equal(t, 1, stat.Attempts)
	assert.Zero(t, stat.CorrectAttempts)
	assert.Equal(t, Today(testNow).AddDate(0, 0, 1), stat.NextReviewDate)
}

func TestApplyEaseFloor(t *testing.T) {
	stat := NewStat(1, 42, testNow)
	stat.EaseFactor = 140

	Apply(stat, false, testNow)
	assert.Equal(t, MinEaseFactor, stat.EaseFactor)

	Apply(stat, false, testNow)
	assert.Equal(t, MinEaseFactor, stat.EaseFactor)
}

func TestApplySetsLastReviewedAt(t *testing.T) {
	stat := NewStat(1, 42, testNow)

	Apply(stat, true, testNow)

	require.NotNil(t, stat.LastReviewedAt)
	assert.Equal(t, testNow, *stat.LastReviewedAt)
}

func TestSchedulerInitialize(t *testing.T) {
	store := newMockStatStore()
	s := NewScheduler(store)

	conceptList := []models.Concept{{ID: 1}, {ID: 2}, {ID: 3}}
	require.NoError(t, s.Initialize(7, conceptList, testNow))

	assert.Equal(t, 3, store.createdCount)
	stat, _ := store.GetReviewStat(7, 2)
	require.NotNil(t, stat)
	assert.Equal(t, DefaultEaseFactor, stat.EaseFactor)
}

func TestSchedulerInitializeIdempotent(t *testing.T) {
	store := newMockStatStore()
	s := NewScheduler(store)

	conceptList := []models.Concept{{ID: 1}}
	require.NoError(t, s.Initialize(7, conceptList, testNow))

	// Advance the existing stat, then re-initialize; the stat must
	// keep its progress.
	_, err := s.RecordAnswer(7, 1, true, testNow)
	require.NoError(t, err)
	require.NoError(t, s.Initialize(7, conceptList, testNow))

	stat, _ := store.GetReviewStat(7, 1)
	assert.Equal(t, 6, stat.IntervalDays)
}

func TestSchedulerInitializeError(t *testing.T) {
	store := newMockStatStore()
	store.createErr = errors.New("disk full")
	s := NewScheduler(store)

	err := s.Initialize(7, []models.Concept{{ID: 1}}, testNow)
	assert.Error(t, err)
}

func TestSchedulerRecordAnswerPersists(t *testing.T) {
	store := newMockStatStore()
	s := NewScheduler(store)
	require.NoError(t, s.Initialize(7, []models.Concept{{ID: 5}}, testNow))

	stat, err := s.RecordAnswer(7, 5, true, testNow)

	require.NoError(t, err)
	assert.Equal(t, 6, stat.IntervalDays)

	persisted, _ := store.GetReviewStat(7, 5)
	assert.Equal(t, 6, persisted.IntervalDays)
}

func TestSchedulerRecordAnswerCreatesMissingStat(t *testing.T) {
	store := newMockStatStore()
	s := NewScheduler(store)

	stat, err := s.RecordAnswer(7, 99, false, testNow)

	require.NoError(t, err)
	assert.Equal(t, 1, stat.IntervalDays)
	assert.Equal(t, DefaultEaseFactor-30, stat.EaseFactor)
	assert.Equal(t, 1, stat.Attempts)
}

func TestSchedulerDueConceptsUsesMidnightCutoff(t *testing.T) {
	store := newMockStatStore()
	store.dueFn = func(userID int64, cutoff time.Time) ([]models.Concept, error) {
		return []models.Concept{{ID: 1, Title: "Vectors"}}, nil
	}
	s := NewScheduler(store)

	due, err := s.DueConcepts(7, testNow)

	require.NoError(t, err)
	assert.Len(t, due, 1)
	assert.Equal(t, Today(testNow), store.lastCutoff)
}
