package highlights

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkmark/inkmark/pkg/models"
)

func TestAddReviewRecord(t *testing.T) {
	m, _ := newTestManager()
	bookID := models.NewBookID()
	h, err := m.CreateHighlight("memorize me", fallbackPosition("memorize me"), models.ColorYellow, models.PlatformWeb, bookID, nil)
	require.NoError(t, err)

	t.Run("unknown id", func(t *testing.T) {
		_, err := m.AddReviewRecord(models.NewHighlightID(), true, 0)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("first success schedules one day out", func(t *testing.T) {
		rec, err := m.AddReviewRecord(h.ID, true, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, rec.Interval)
		assert.Equal(t, DefaultEaseFactor, rec.EaseFactor)
		assert.Equal(t, rec.Date.AddDate(0, 0, 1), rec.NextReview)
	})

	t.Run("later success scales by ease factor", func(t *testing.T) {
		rec, err := m.AddReviewRecord(h.ID, true, 2.5)
		require.NoError(t, err)
		assert.Equal(t, 3, rec.Interval, "round(1 * 2.5)")

		rec, err = m.AddReviewRecord(h.ID, true, 2.5)
		require.NoError(t, err)
		assert.Equal(t, 8, rec.Interval, "round(3 * 2.5)")
	})

	t.Run("any failure resets to today", func(t *testing.T) {
		rec, err := m.AddReviewRecord(h.ID, false, 2.5)
		require.NoError(t, err)
		assert.Equal(t, 0, rec.Interval)
		assert.Equal(t, rec.Date, rec.NextReview)
	})

	t.Run("history is append-only", func(t *testing.T) {
		stored, err := m.GetHighlight(h.ID)
		require.NoError(t, err)
		require.Len(t, stored.ReviewHistory, 4)
		assert.Equal(t, 1, stored.ReviewHistory[0].Interval, "past records untouched")
	})
}

func TestGetHighlightsForReview(t *testing.T) {
	m, _ := newTestManager()
	bookID := models.NewBookID()

	never, err := m.CreateHighlight("never reviewed", fallbackPosition("never reviewed"), models.ColorYellow, models.PlatformWeb, bookID, nil)
	require.NoError(t, err)
	failed, err := m.CreateHighlight("failed once", fallbackPosition("failed once"), models.ColorBlue, models.PlatformWeb, bookID, nil)
	require.NoError(t, err)
	scheduled, err := m.CreateHighlight("scheduled out", fallbackPosition("scheduled out"), models.ColorPink, models.PlatformWeb, bookID, nil)
	require.NoError(t, err)
	important, err := m.CreateHighlight("important", fallbackPosition("important"), models.ColorGreen, models.PlatformWeb, bookID, nil)
	require.NoError(t, err)

	// failed: due immediately. scheduled: successful review pushes it out a day.
	_, err = m.AddReviewRecord(failed.ID, false, 0)
	require.NoError(t, err)
	_, err = m.AddReviewRecord(scheduled.ID, true, 0)
	require.NoError(t, err)

	imp := 5
	_, err = m.UpdateHighlight(important.ID, Update{Importance: &imp})
	require.NoError(t, err)

	due := m.GetHighlightsForReview(bookID)
	require.Len(t, due, 3, "future-scheduled highlight is excluded")

	assert.Equal(t, important.ID, due[0].ID, "importance sorts first")
	assert.Equal(t, never.ID, due[1].ID, "never-reviewed precedes reviewed at equal importance")
	assert.Equal(t, failed.ID, due[2].ID)

	for _, h := range due {
		assert.NotEqual(t, scheduled.ID, h.ID)
	}
}

func TestStatistics(t *testing.T) {
	m, _ := newTestManager()
	bookA := models.NewBookID()
	bookB := models.NewBookID()

	a, err := m.CreateHighlight("one", fallbackPosition("one"), models.ColorYellow, models.PlatformWeb, bookA, &CreateOptions{Tags: []string{"t1", "t2"}})
	require.NoError(t, err)
	_, err = m.CreateHighlight("two", fallbackPosition("two"), models.ColorYellow, models.PlatformWeb, bookA, &CreateOptions{Tags: []string{"t1"}})
	require.NoError(t, err)
	_, err = m.CreateHighlight("three", fallbackPosition("three"), models.ColorBlue, models.PlatformMobile, bookB, nil)
	require.NoError(t, err)

	_, err = m.AddReviewRecord(a.ID, true, 0)
	require.NoError(t, err)
	_, err = m.AddReviewRecord(a.ID, false, 0)
	require.NoError(t, err)

	t.Run("per book", func(t *testing.T) {
		stats := m.Statistics(bookA)
		assert.Equal(t, 2, stats.Total)
		assert.Equal(t, 2, stats.ByColor[models.ColorYellow])
		assert.Equal(t, 2, stats.ByTag["t1"])
		assert.Equal(t, 1, stats.ByTag["t2"])
		assert.Nil(t, stats.ByBook)
		assert.Equal(t, 1, stats.Review.Reviewed)
		assert.Equal(t, 2, stats.Review.Pending, "failed review is due again; unreviewed is pending")
		assert.InDelta(t, 0.5, stats.Review.AverageSuccessRate, 1e-9, "over all attempts")
	})

	t.Run("all books", func(t *testing.T) {
		stats := m.Statistics(models.BookID{})
		assert.Equal(t, 3, stats.Total)
		require.NotNil(t, stats.ByBook)
		assert.Equal(t, 2, stats.ByBook[bookA.String()])
		assert.Equal(t, 1, stats.ByBook[bookB.String()])
	})
}
