// Package position turns a raw text or area selection into a durable,
// re-locatable position descriptor, and knows how to validate and compare
// descriptors after content has reflowed.
//
// The calculator never fails for a non-empty selection: when a structural
// anchor cannot be computed it degrades to a fallback-only position with a
// lower confidence instead of returning an error.
package position

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/inkmark/inkmark/pkg/models"
)

// DocumentKind distinguishes reflowable documents (anchored by structural
// path) from fixed-layout documents (anchored by page coordinates).
type DocumentKind string

const (
	DocumentReflowable  DocumentKind = "reflowable"
	DocumentFixedLayout DocumentKind = "fixed-layout"
)

// contextChars is how much surrounding text the fallback keeps on each side.
const contextChars = 50

// areaTolerance is the coordinate slack, in page units, within which two
// area anchors on the same page are considered the same position.
const areaTolerance = 10.0

// ErrEmptySelection is returned when a selection carries no text; every
// non-empty selection produces a position.
var ErrEmptySelection = errors.New("selection has no text")

// Selection is a live reader selection as captured by the rendering layer.
// For reflowable documents the structural fields (ChapterID, PathSteps,
// Offset) may be absent when the renderer could not resolve them; the
// calculator then produces a fallback-only position.
type Selection struct {
	Text          string
	ContextBefore string
	ContextAfter  string

	// Reflowable capture.
	ChapterID string
	PathSteps []int
	Offset    int

	// Fixed-layout capture.
	PageNumber int
	X          float64
	Y          float64
	Width      float64
	Height     float64
}

// Calculator derives, validates and compares position descriptors.
type Calculator struct {
	log zerolog.Logger
}

// NewCalculator returns a calculator logging through log. Use a disabled
// logger (zerolog.Nop()) when no logging is wanted.
func NewCalculator(log zerolog.Logger) *Calculator {
	return &Calculator{log: log}
}

// CalculatePosition derives a position descriptor from the selection. The
// fallback is always populated from the live selection; the primary anchor is
// present only when the structural (reflowable) or geometric (fixed-layout)
// capture was complete. Confidence is models.ConfidenceAnchored with a
// primary anchor and models.ConfidenceFallback without one.
func (c *Calculator) CalculatePosition(sel Selection, kind DocumentKind) (models.Position, error) {
	if strings.TrimSpace(sel.Text) == "" {
		return models.Position{}, ErrEmptySelection
	}

	pos := models.Position{
		Fallback: models.Fallback{
			TextContent:   sel.Text,
			ContextBefore: tailRunes(sel.ContextBefore, contextChars),
			ContextAfter:  headRunes(sel.ContextAfter, contextChars),
		},
	}

	switch kind {
	case DocumentFixedLayout:
		pos.Fallback.PageNumber = sel.PageNumber
		if anchor, ok := c.areaAnchor(sel); ok {
			pos.Primary = anchor
			pos.Confidence = models.ConfidenceAnchored
		} else {
			c.log.Debug().Int("page", sel.PageNumber).Msg("area anchor unavailable, using fallback position")
			pos.Confidence = models.ConfidenceFallback
		}
	default:
		pos.Fallback.ChapterID = sel.ChapterID
		if anchor, ok := c.textAnchor(sel); ok {
			pos.Primary = anchor
			pos.Confidence = models.ConfidenceAnchored
		} else {
			c.log.Debug().Str("chapter", sel.ChapterID).Msg("text anchor unavailable, using fallback position")
			pos.Confidence = models.ConfidenceFallback
		}
	}
	return pos, nil
}

// textAnchor builds the structural anchor string "[chapter]/step/...:offset".
func (c *Calculator) textAnchor(sel Selection) (models.TextAnchor, bool) {
	chapter := strings.TrimSpace(sel.ChapterID)
	if chapter == "" || sel.Offset < 0 {
		return models.TextAnchor{}, false
	}
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(chapter)
	b.WriteString("]")
	for _, step := range sel.PathSteps {
		if step < 0 {
			return models.TextAnchor{}, false
		}
		fmt.Fprintf(&b, "/%d", step)
	}
	fmt.Fprintf(&b, ":%d", sel.Offset)
	return models.TextAnchor{Value: b.String(), TextOffset: sel.Offset}, true
}

func (c *Calculator) areaAnchor(sel Selection) (models.AreaAnchor, bool) {
	if sel.PageNumber <= 0 || sel.Width <= 0 || sel.Height <= 0 {
		return models.AreaAnchor{}, false
	}
	return models.AreaAnchor{
		PageNumber: sel.PageNumber,
		X:          sel.X,
		Y:          sel.Y,
		Width:      sel.Width,
		Height:     sel.Height,
	}, true
}

// ValidatePosition reports whether the position can still be trusted to
// locate its highlight. A well-formed primary anchor validates the position
// outright; otherwise the fallback text must be non-empty after trimming.
func (c *Calculator) ValidatePosition(pos models.Position, kind DocumentKind) bool {
	switch a := pos.Primary.(type) {
	case models.TextAnchor:
		if kind != DocumentFixedLayout && wellFormedTextAnchor(a.Value) {
			return true
		}
	case models.AreaAnchor:
		if kind == DocumentFixedLayout && a.PageNumber > 0 && a.Width > 0 && a.Height > 0 {
			return true
		}
	}
	return strings.TrimSpace(pos.Fallback.TextContent) != ""
}

// wellFormedTextAnchor checks the expected bracketing: "[chapter]" followed
// by the path/offset suffix.
func wellFormedTextAnchor(value string) bool {
	if value == "" || !strings.HasPrefix(value, "[") {
		return false
	}
	end := strings.Index(value, "]")
	return end > 1 && strings.Contains(value[end:], ":")
}

// ComparePositions reports whether two descriptors locate the same place.
// Two primary anchors of the same kind compare structurally: text anchors by
// string equality, area anchors by page number and coordinate proximity
// within areaTolerance. In every other case the comparison degrades to the
// literal fallback text.
func (c *Calculator) ComparePositions(a, b models.Position) bool {
	switch av := a.Primary.(type) {
	case models.TextAnchor:
		if bv, ok := b.Primary.(models.TextAnchor); ok {
			return av.Value == bv.Value
		}
	case models.AreaAnchor:
		if bv, ok := b.Primary.(models.AreaAnchor); ok {
			return av.PageNumber == bv.PageNumber &&
				math.Abs(av.X-bv.X) <= areaTolerance &&
				math.Abs(av.Y-bv.Y) <= areaTolerance
		}
	}
	return a.Fallback.TextContent == b.Fallback.TextContent
}

// Confidence returns the effective confidence of the position: the reported
// confidence when a primary anchor is present, otherwise degraded by 0.1 and
// floored at models.ConfidenceFloor.
func (c *Calculator) Confidence(pos models.Position) float64 {
	return pos.EffectiveConfidence()
}

func tailRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

func headRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
