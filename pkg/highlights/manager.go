// Package highlights owns the authoritative in-memory collection of highlight
// records for the current process. The Manager is the only component that
// mutates the collection; everything else works on copies.
package highlights

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/inkmark/inkmark/pkg/models"
)

var (
	// ErrNotFound is returned when an operation targets an unknown highlight
	// id. The caller holds a stale reference and must be told.
	ErrNotFound = errors.New("highlight not found")

	// ErrEmptyText is returned when a highlight would be created without its
	// anchor of last resort.
	ErrEmptyText = errors.New("highlight text is empty")

	// ErrInvalidColor is returned for colors outside the palette.
	ErrInvalidColor = errors.New("invalid highlight color")
)

// CreateOptions carries the optional fields of a new highlight.
type CreateOptions struct {
	Note       string
	Tags       []string
	PageNumber int
	Chapter    string
}

// Update is a partial highlight mutation. Nil pointer fields are left
// untouched; a non-nil Tags slice replaces the tag set (an empty slice
// clears it). Identity fields (id, bookId, text, createdAt, platform) can
// never be overwritten.
type Update struct {
	Color      *models.Color
	Note       *string
	Tags       []string
	Position   *models.Position
	PageNumber *int
	Chapter    *string
	Importance *int
}

// Manager holds the highlight collection. All methods are safe for use from
// multiple goroutines; within one process every mutation is serialized by the
// manager's lock.
type Manager struct {
	mu         sync.RWMutex
	highlights map[models.HighlightID]*models.Highlight
	log        zerolog.Logger
	now        func() time.Time
}

// NewManager returns an empty manager logging through log.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		highlights: make(map[models.HighlightID]*models.Highlight),
		log:        log,
		now:        time.Now,
	}
}

// CreateHighlight builds a new record from a calculator result and stores it.
// The returned record is a copy; mutating it does not affect the collection.
func (m *Manager) CreateHighlight(text string, pos models.Position, color models.Color, platform models.Platform, bookID models.BookID, opts *CreateOptions) (*models.Highlight, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	if !color.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidColor, color)
	}

	now := m.now()
	h := &models.Highlight{
		ID:            models.NewHighlightID(),
		BookID:        bookID,
		Text:          text,
		Color:         color,
		Position:      pos,
		CreatedAt:     now,
		UpdatedAt:     now,
		LastModified:  now,
		Platform:      platform,
		Platforms:     []models.Platform{platform},
		Importance:    models.DefaultImportance,
		ReviewHistory: []models.ReviewRecord{},
	}
	if opts != nil {
		h.Note = opts.Note
		if opts.Tags != nil {
			h.Tags = append([]string(nil), opts.Tags...)
		}
		h.PageNumber = opts.PageNumber
		h.Chapter = opts.Chapter
	}
	if h.Tags == nil {
		h.Tags = []string{}
	}

	m.mu.Lock()
	m.highlights[h.ID] = h
	m.mu.Unlock()

	m.log.Debug().Stringer("id", h.ID).Stringer("book", bookID).Msg("highlight created")
	return h.Clone(), nil
}

// UpdateHighlight applies a partial update. Both UpdatedAt and LastModified
// are refreshed; LastModified is the sole basis for merge tie-breaking.
func (m *Manager) UpdateHighlight(id models.HighlightID, upd Update) (*models.Highlight, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.highlights[id]
	if !ok {
		return nil, fmt.Errorf("update highlight %s: %w", id, ErrNotFound)
	}

	if upd.Color != nil {
		if !upd.Color.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidColor, *upd.Color)
		}
		h.Color = *upd.Color
	}
	if upd.Note != nil {
		h.Note = *upd.Note
	}
	if upd.Tags != nil {
		h.Tags = append([]string(nil), upd.Tags...)
	}
	if upd.Position != nil {
		h.Position = *upd.Position
	}
	if upd.PageNumber != nil {
		h.PageNumber = *upd.PageNumber
	}
	if upd.Chapter != nil {
		h.Chapter = *upd.Chapter
	}
	if upd.Importance != nil {
		h.Importance = clampImportance(*upd.Importance)
	}

	now := m.now()
	h.UpdatedAt = now
	h.LastModified = now
	return h.Clone(), nil
}

// DeleteHighlight removes the record.
func (m *Manager) DeleteHighlight(id models.HighlightID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.highlights[id]; !ok {
		return fmt.Errorf("delete highlight %s: %w", id, ErrNotFound)
	}
	delete(m.highlights, id)
	m.log.Debug().Stringer("id", id).Msg("highlight deleted")
	return nil
}

// GetHighlight returns a copy of the record.
func (m *Manager) GetHighlight(id models.HighlightID) (*models.Highlight, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.highlights[id]
	if !ok {
		return nil, fmt.Errorf("get highlight %s: %w", id, ErrNotFound)
	}
	return h.Clone(), nil
}

// GetHighlightsForBook returns the book's highlights ordered by creation
// time, oldest first.
func (m *Manager) GetHighlightsForBook(bookID models.BookID) []*models.Highlight {
	return m.collect(func(h *models.Highlight) bool {
		return h.BookID == bookID
	})
}

// SearchHighlights returns highlights whose text, note or any tag contains
// the query, case-insensitively. A zero bookID searches every book.
func (m *Manager) SearchHighlights(query string, bookID models.BookID) []*models.Highlight {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	return m.collect(func(h *models.Highlight) bool {
		if !bookID.IsZero() && h.BookID != bookID {
			return false
		}
		if strings.Contains(strings.ToLower(h.Text), q) || strings.Contains(strings.ToLower(h.Note), q) {
			return true
		}
		for _, tag := range h.Tags {
			if strings.Contains(strings.ToLower(tag), q) {
				return true
			}
		}
		return false
	})
}

// FilterByColor returns highlights of an exact color. A zero bookID spans
// every book.
func (m *Manager) FilterByColor(color models.Color, bookID models.BookID) []*models.Highlight {
	return m.collect(func(h *models.Highlight) bool {
		if !bookID.IsZero() && h.BookID != bookID {
			return false
		}
		return h.Color == color
	})
}

// FilterByTags returns highlights carrying at least one of the given tags.
func (m *Manager) FilterByTags(tags []string, bookID models.BookID) []*models.Highlight {
	return m.collect(func(h *models.Highlight) bool {
		if !bookID.IsZero() && h.BookID != bookID {
			return false
		}
		for _, tag := range tags {
			if h.HasTag(tag) {
				return true
			}
		}
		return false
	})
}

// All returns every record, ordered by creation time.
func (m *Manager) All() []*models.Highlight {
	return m.collect(func(*models.Highlight) bool { return true })
}

// Count returns the number of records held.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.highlights)
}

// Upsert inserts or replaces records by id, used when loading a merged set
// back after conflict resolution. Records are cloned on the way in.
func (m *Manager) Upsert(records []*models.Highlight) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, h := range records {
		if h == nil || h.ID.IsZero() {
			continue
		}
		m.highlights[h.ID] = h.Clone()
	}
	return len(m.highlights)
}

// collect snapshots matching records as clones, ordered by createdAt
// ascending with the id string as a deterministic tiebreak.
func (m *Manager) collect(match func(*models.Highlight) bool) []*models.Highlight {
	m.mu.RLock()
	var out []*models.Highlight
	for _, h := range m.highlights {
		if match(h) {
			out = append(out, h.Clone())
		}
	}
	m.mu.RUnlock()

	sortByCreatedAt(out)
	return out
}

func sortByCreatedAt(hs []*models.Highlight) {
	sort.Slice(hs, func(i, j int) bool {
		if hs[i].CreatedAt.Equal(hs[j].CreatedAt) {
			return hs[i].ID.String() < hs[j].ID.String()
		}
		return hs[i].CreatedAt.Before(hs[j].CreatedAt)
	})
}

func clampImportance(v int) int {
	if v < 1 {
		return 1
	}
	if v > 5 {
		return 5
	}
	return v
}
