package models

// ConflictType classifies how a local and a remote copy of the same highlight
// id diverged. It is an ephemeral comparison result and is never persisted.
type ConflictType string

const (
	// ConflictSameTextSamePosition means the two copies anchor the same
	// passage and only metadata (note, tags, color) diverged.
	ConflictSameTextSamePosition ConflictType = "same-text-same-position"
	// ConflictOverlappingText means the two copies likely captured the same
	// passage slightly differently.
	ConflictOverlappingText ConflictType = "overlapping-text"
	// ConflictSamePositionDifferentText means the copies share a position but
	// disagree on the captured text.
	ConflictSamePositionDifferentText ConflictType = "same-position-different-text"
	// ConflictNone is the fallback classification: two independent highlights.
	ConflictNone ConflictType = "no-conflict"
)

// Conflict pairs the two divergent copies with their classification.
type Conflict struct {
	Type   ConflictType
	Local  *Highlight
	Remote *Highlight
}
