package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AnchorKind discriminates the two anchor variants on the wire.
type AnchorKind string

const (
	AnchorKindText AnchorKind = "text-anchor"
	AnchorKindArea AnchorKind = "area-anchor"
)

// Confidence levels reported by the position calculator. A position backed by
// a primary anchor is ConfidenceAnchored; one that only carries the literal
// text fallback is ConfidenceFallback. ConfidenceFloor is the lowest value
// EffectiveConfidence ever reports.
const (
	ConfidenceAnchored = 0.95
	ConfidenceFallback = 0.85
	ConfidenceFloor    = 0.5
)

// Anchor is the primary position descriptor: either a TextAnchor locating a
// point in a reflowable document's content tree, or an AreaAnchor locating a
// region on a fixed-layout page. The set of implementations is closed.
type Anchor interface {
	Kind() AnchorKind
	anchor()
}

// TextAnchor is a structural path plus character offset into a reflowable
// document. Value has the form "[chapterID]/step/step:offset".
type TextAnchor struct {
	Value      string `json:"value"`
	TextOffset int    `json:"textOffset,omitempty"`
}

func (TextAnchor) Kind() AnchorKind { return AnchorKindText }
func (TextAnchor) anchor()          {}

// AreaAnchor is a rectangle in absolute page coordinates of a fixed-layout
// document.
type AreaAnchor struct {
	PageNumber int     `json:"pageNumber"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
}

func (AreaAnchor) Kind() AnchorKind { return AnchorKindArea }
func (AreaAnchor) anchor()          {}

// Fallback is the anchor of last resort: the literal highlighted text plus
// surrounding context. It is present on every valid Position, and TextContent
// is never empty.
type Fallback struct {
	TextContent   string `json:"textContent"`
	ContextBefore string `json:"contextBefore,omitempty"`
	ContextAfter  string `json:"contextAfter,omitempty"`
	ChapterID     string `json:"chapterId,omitempty"`
	PageNumber    int    `json:"pageNumber,omitempty"`
}

// Position describes where a highlight sits in a document. Primary may be nil
// when no structural anchor could be computed; Fallback is always populated.
type Position struct {
	Primary    Anchor
	Fallback   Fallback
	Confidence float64
}

// EffectiveConfidence returns Confidence when a primary anchor is present,
// and otherwise degrades it by 0.1 with a floor of ConfidenceFloor.
func (p Position) EffectiveConfidence() float64 {
	if p.Primary != nil {
		return p.Confidence
	}
	c := p.Confidence - 0.1
	if c < ConfidenceFloor {
		return ConfidenceFloor
	}
	return c
}

// Valid reports whether the position satisfies the fallback invariant.
func (p Position) Valid() bool {
	return strings.TrimSpace(p.Fallback.TextContent) != ""
}

type anchorEnvelope struct {
	Kind       AnchorKind      `json:"kind"`
	Value      json.RawMessage `json:"value"`
	TextOffset *int            `json:"textOffset,omitempty"`
}

type positionEnvelope struct {
	Primary    *anchorEnvelope `json:"primary,omitempty"`
	Fallback   Fallback        `json:"fallback"`
	Confidence float64         `json:"confidence"`
}

func (p Position) MarshalJSON() ([]byte, error) {
	env := positionEnvelope{
		Fallback:   p.Fallback,
		Confidence: p.Confidence,
	}
	switch a := p.Primary.(type) {
	case nil:
	case TextAnchor:
		value, err := json.Marshal(a.Value)
		if err != nil {
			return nil, err
		}
		env.Primary = &anchorEnvelope{Kind: AnchorKindText, Value: value}
		if a.TextOffset != 0 {
			offset := a.TextOffset
			env.Primary.TextOffset = &offset
		}
	case AreaAnchor:
		value, err := json.Marshal(a)
		if err != nil {
			return nil, err
		}
		env.Primary = &anchorEnvelope{Kind: AnchorKindArea, Value: value}
	default:
		return nil, fmt.Errorf("unknown anchor kind %T", p.Primary)
	}
	return json.Marshal(env)
}

func (p *Position) UnmarshalJSON(data []byte) error {
	var env positionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	p.Fallback = env.Fallback
	p.Confidence = env.Confidence
	p.Primary = nil
	if env.Primary == nil {
		return nil
	}
	switch env.Primary.Kind {
	case AnchorKindText:
		var a TextAnchor
		if err := json.Unmarshal(env.Primary.Value, &a.Value); err != nil {
			return fmt.Errorf("text anchor value: %w", err)
		}
		if env.Primary.TextOffset != nil {
			a.TextOffset = *env.Primary.TextOffset
		}
		p.Primary = a
	case AnchorKindArea:
		var a AreaAnchor
		if err := json.Unmarshal(env.Primary.Value, &a); err != nil {
			return fmt.Errorf("area anchor value: %w", err)
		}
		p.Primary = a
	default:
		return fmt.Errorf("unknown anchor kind %q", env.Primary.Kind)
	}
	return nil
}
