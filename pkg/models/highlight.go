package models

import (
	"strings"
	"time"
)

// Color is the highlight color palette exposed to readers.
type Color string

const (
	ColorYellow Color = "yellow"
	ColorBlue   Color = "blue"
	ColorPink   Color = "pink"
	ColorGreen  Color = "green"
)

func (c Color) Valid() bool {
	switch c {
	case ColorYellow, ColorBlue, ColorPink, ColorGreen:
		return true
	}
	return false
}

// Platform identifies where a highlight was created.
type Platform string

const (
	PlatformWeb    Platform = "web"
	PlatformMobile Platform = "mobile"
)

// DefaultImportance is assigned to new highlights; importance ranges 1..5.
const DefaultImportance = 3

// ReviewRecord is one entry of a highlight's append-only review history.
// Interval is in days; a failed review always records interval 0.
type ReviewRecord struct {
	ID         ReviewID  `json:"id"`
	Date       time.Time `json:"date"`
	Success    bool      `json:"success"`
	NextReview time.Time `json:"nextReview"`
	Interval   int       `json:"interval"`
	EaseFactor float64   `json:"easeFactor"`
}

// Highlight is the user-facing annotation record. ID, BookID, Text, CreatedAt
// and Platform are immutable once created; Text in particular is the anchor
// of last resort and must survive every mutation and merge.
type Highlight struct {
	ID         HighlightID `json:"id"`
	BookID     BookID      `json:"bookId"`
	Text       string      `json:"text"`
	Color      Color       `json:"color"`
	Note       string      `json:"note"`
	Tags       []string    `json:"tags"`
	PageNumber int         `json:"pageNumber,omitempty"`
	Chapter    string      `json:"chapter,omitempty"`
	Position   Position    `json:"position"`

	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	LastModified time.Time `json:"lastModified"`

	// Platform is the origin of creation. Platforms accumulates every origin
	// that has touched the record through a merge, seeded with Platform.
	Platform  Platform   `json:"platform"`
	Platforms []Platform `json:"platforms,omitempty"`

	Importance    int            `json:"importance"`
	ReviewHistory []ReviewRecord `json:"reviewHistory"`
}

// Clone returns a deep copy; mutating the copy never aliases the original's
// tags, platforms, or review history.
func (h *Highlight) Clone() *Highlight {
	c := *h
	if h.Tags != nil {
		c.Tags = append([]string(nil), h.Tags...)
	}
	if h.Platforms != nil {
		c.Platforms = append([]Platform(nil), h.Platforms...)
	}
	if h.ReviewHistory != nil {
		c.ReviewHistory = append([]ReviewRecord(nil), h.ReviewHistory...)
	}
	return &c
}

// HasTag reports whether the highlight carries the tag, case-insensitively.
func (h *Highlight) HasTag(tag string) bool {
	for _, t := range h.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// LatestReview returns the most recent review record, or nil if the
// highlight has never been reviewed.
func (h *Highlight) LatestReview() *ReviewRecord {
	if len(h.ReviewHistory) == 0 {
		return nil
	}
	return &h.ReviewHistory[len(h.ReviewHistory)-1]
}

// DueForReview reports whether the highlight should be offered for review:
// either it has never been reviewed, or its latest scheduled review is due.
func (h *Highlight) DueForReview(now time.Time) bool {
	latest := h.LatestReview()
	if latest == nil {
		return true
	}
	return !latest.NextReview.After(now)
}
