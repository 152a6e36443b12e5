package highlights

import (
	"fmt"
	"math"
	"sort"

	"github.com/inkmark/inkmark/pkg/models"
)

// DefaultEaseFactor is the spaced-repetition growth factor applied to the
// prior interval on a successful review.
const DefaultEaseFactor = 2.5

// GetHighlightsForReview returns highlights due for review: never reviewed,
// or whose latest scheduled review is not in the future. Results are ordered
// by importance descending, then by soonest next review; highlights that have
// never been reviewed sort first within an importance class.
func (m *Manager) GetHighlightsForReview(bookID models.BookID) []*models.Highlight {
	now := m.now()
	due := m.collect(func(h *models.Highlight) bool {
		if !bookID.IsZero() && h.BookID != bookID {
			return false
		}
		return h.DueForReview(now)
	})

	sort.SliceStable(due, func(i, j int) bool {
		if due[i].Importance != due[j].Importance {
			return due[i].Importance > due[j].Importance
		}
		li, lj := due[i].LatestReview(), due[j].LatestReview()
		switch {
		case li == nil && lj == nil:
			return due[i].CreatedAt.Before(due[j].CreatedAt)
		case li == nil:
			return true
		case lj == nil:
			return false
		default:
			return li.NextReview.Before(lj.NextReview)
		}
	})
	return due
}

// AddReviewRecord appends a review outcome to the highlight's history and
// computes the next interval: a first success schedules a 1-day interval,
// later successes scale the prior interval by easeFactor, and any failure
// resets the schedule to review again today. Past records are never mutated.
// An easeFactor <= 0 selects DefaultEaseFactor.
func (m *Manager) AddReviewRecord(id models.HighlightID, success bool, easeFactor float64) (*models.ReviewRecord, error) {
	if easeFactor <= 0 {
		easeFactor = DefaultEaseFactor
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.highlights[id]
	if !ok {
		return nil, fmt.Errorf("review highlight %s: %w", id, ErrNotFound)
	}

	interval := 0
	if success {
		if prior := h.LatestReview(); prior == nil {
			interval = 1
		} else {
			interval = int(math.Round(float64(prior.Interval) * easeFactor))
		}
	}

	now := m.now()
	rec := models.ReviewRecord{
		ID:         models.NewReviewID(),
		Date:       now,
		Success:    success,
		NextReview: now.AddDate(0, 0, interval),
		Interval:   interval,
		EaseFactor: easeFactor,
	}
	h.ReviewHistory = append(h.ReviewHistory, rec)
	h.UpdatedAt = now
	h.LastModified = now

	m.log.Debug().
		Stringer("id", id).
		Bool("success", success).
		Int("interval_days", interval).
		Msg("review recorded")
	return &rec, nil
}
