package highlights

import "github.com/inkmark/inkmark/pkg/models"

// ReviewStats aggregates review progress over a highlight set.
// AverageSuccessRate is computed over all historical review attempts, not
// just each highlight's latest.
type ReviewStats struct {
	Total              int     `json:"total"`
	Reviewed           int     `json:"reviewed"`
	Pending            int     `json:"pending"`
	AverageSuccessRate float64 `json:"averageSuccessRate"`
}

// Stats is the aggregate view over a book's (or every book's) highlights.
type Stats struct {
	Total   int                  `json:"total"`
	ByColor map[models.Color]int `json:"byColor"`
	ByTag   map[string]int       `json:"byTag"`
	ByBook  map[string]int       `json:"byBook,omitempty"`
	Review  ReviewStats          `json:"review"`
}

// Statistics computes counts by color and tag plus review aggregates. With a
// zero bookID it spans every book and additionally breaks counts out per
// book id.
func (m *Manager) Statistics(bookID models.BookID) Stats {
	now := m.now()
	stats := Stats{
		ByColor: make(map[models.Color]int),
		ByTag:   make(map[string]int),
	}
	if bookID.IsZero() {
		stats.ByBook = make(map[string]int)
	}

	var attempts, successes int

	m.mu.RLock()
	for _, h := range m.highlights {
		if !bookID.IsZero() && h.BookID != bookID {
			continue
		}
		stats.Total++
		stats.ByColor[h.Color]++
		for _, tag := range h.Tags {
			stats.ByTag[tag]++
		}
		if stats.ByBook != nil {
			stats.ByBook[h.BookID.String()]++
		}

		if len(h.ReviewHistory) > 0 {
			stats.Review.Reviewed++
		}
		if h.DueForReview(now) {
			stats.Review.Pending++
		}
		for _, rec := range h.ReviewHistory {
			attempts++
			if rec.Success {
				successes++
			}
		}
	}
	m.mu.RUnlock()

	stats.Review.Total = stats.Total
	if attempts > 0 {
		stats.Review.AverageSuccessRate = float64(successes) / float64(attempts)
	}
	return stats
}
