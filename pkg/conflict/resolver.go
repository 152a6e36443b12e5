// Package conflict reconciles two independently-evolved highlight sets into
// one merged set without losing data. Resolution is deterministic: the
// lastModified timestamp, never arrival order, breaks ties.
//
// The load-bearing contract is ValidateResolution: every input id survives
// into the merged set and the merged set is at least as large as either
// input. The resolver asserts this on every merge; a violation is a defect
// in the resolver itself, not a recoverable condition, so it panics.
package conflict

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/inkmark/inkmark/pkg/models"
	"github.com/inkmark/inkmark/pkg/position"
)

// wordOverlapThreshold is the fraction of shared words above which two
// different texts are treated as captures of the same passage.
const wordOverlapThreshold = 0.5

// Resolver merges divergent highlight collections.
type Resolver struct {
	calc  *position.Calculator
	log   zerolog.Logger
	newID func() models.HighlightID
}

// NewResolver returns a resolver logging through log.
func NewResolver(log zerolog.Logger) *Resolver {
	return &Resolver{
		calc:  position.NewCalculator(log),
		log:   log,
		newID: models.NewHighlightID,
	}
}

// Resolve merges the local and remote highlight sets. Ids present on only one
// side copy through unchanged. For ids present on both sides the conflict is
// classified and resolved per type; whenever two genuinely distinct
// annotations collide on one id, the remote copy is preserved under a freshly
// generated id so that neither annotation is lost.
//
// The result always satisfies ValidateResolution; Resolve panics otherwise.
func (r *Resolver) Resolve(local, remote []*models.Highlight) []*models.Highlight {
	remoteByID := indexByID(remote)
	localByID := indexByID(local)

	resolved := make([]*models.Highlight, 0, len(local)+len(remote))

	for _, l := range local {
		rm, both := remoteByID[l.ID]
		if !both {
			resolved = append(resolved, l.Clone())
			continue
		}
		if !HasConflict(l, rm) {
			// Either copy is equivalent; keep local.
			resolved = append(resolved, l.Clone())
			continue
		}

		ct := DetermineConflictType(r.calc, l, rm)
		r.log.Debug().
			Stringer("id", l.ID).
			Str("type", string(ct)).
			Msg("resolving highlight conflict")

		switch ct {
		case models.ConflictSameTextSamePosition:
			resolved = append(resolved, mergeRecords(l, rm))
		case models.ConflictSamePositionDifferentText:
			resolved = append(resolved, mostRecentWins(l, rm))
		default:
			// Overlapping text or two unrelated highlights sharing an id:
			// keep the local record under the original id and reissue the
			// remote one under a fresh id.
			resolved = append(resolved, l.Clone(), r.reissue(rm))
		}
	}

	for _, rm := range remote {
		if _, both := localByID[rm.ID]; !both {
			resolved = append(resolved, rm.Clone())
		}
	}

	if err := ValidateResolution(local, remote, resolved); err != nil {
		panic(fmt.Sprintf("conflict resolution would lose data: %v", err))
	}
	return resolved
}

// ResolveConflicts merges two highlight sets with a default resolver. See
// [Resolver.Resolve].
func ResolveConflicts(local, remote []*models.Highlight) []*models.Highlight {
	return NewResolver(zerolog.Nop()).Resolve(local, remote)
}

// DetectConflicts returns the classified divergent pairs between the two
// sets without resolving them, so callers can preview or report a merge.
// Ids present on only one side never conflict; equivalent copies are skipped.
func (r *Resolver) DetectConflicts(local, remote []*models.Highlight) []models.Conflict {
	remoteByID := indexByID(remote)

	var conflicts []models.Conflict
	for _, l := range local {
		rm, both := remoteByID[l.ID]
		if !both || !HasConflict(l, rm) {
			continue
		}
		conflicts = append(conflicts, models.Conflict{
			Type:   DetermineConflictType(r.calc, l, rm),
			Local:  l.Clone(),
			Remote: rm.Clone(),
		})
	}
	return conflicts
}

// HasConflict reports whether two copies of the same highlight id diverged in
// any merge-relevant field. Tag sets compare order-insensitively.
func HasConflict(local, remote *models.Highlight) bool {
	if !local.LastModified.Equal(remote.LastModified) {
		return true
	}
	if local.Text != remote.Text || local.Note != remote.Note {
		return true
	}
	if local.Color != remote.Color {
		return true
	}
	return !sameTagSet(local.Tags, remote.Tags)
}

// DetermineConflictType classifies a divergence. Classification order
// matters: identical passages are recognized before overlapping captures,
// which are recognized before position-only matches.
func DetermineConflictType(calc *position.Calculator, local, remote *models.Highlight) models.ConflictType {
	positionsEqual := calc.ComparePositions(local.Position, remote.Position)

	if local.Text == remote.Text && positionsEqual {
		return models.ConflictSameTextSamePosition
	}
	if textsOverlap(local.Text, remote.Text) {
		return models.ConflictOverlappingText
	}
	if positionsEqual {
		return models.ConflictSamePositionDifferentText
	}
	return models.ConflictNone
}

// ValidateResolution checks the no-data-loss contract: the merged set is at
// least as large as either input set and contains every input id.
func ValidateResolution(local, remote, resolved []*models.Highlight) error {
	resolvedIDs := make(map[models.HighlightID]bool, len(resolved))
	for _, h := range resolved {
		resolvedIDs[h.ID] = true
	}

	if len(resolved) < len(local) {
		return fmt.Errorf("resolved set has %d records, local had %d", len(resolved), len(local))
	}
	if len(resolved) < len(remote) {
		return fmt.Errorf("resolved set has %d records, remote had %d", len(resolved), len(remote))
	}
	for _, h := range local {
		if !resolvedIDs[h.ID] {
			return fmt.Errorf("local highlight %s missing from resolution", h.ID)
		}
	}
	for _, h := range remote {
		if !resolvedIDs[h.ID] {
			return fmt.Errorf("remote highlight %s missing from resolution", h.ID)
		}
	}
	return nil
}

// reissue preserves a record under a freshly generated id.
func (r *Resolver) reissue(h *models.Highlight) *models.Highlight {
	c := h.Clone()
	c.ID = r.newID()
	return c
}

func indexByID(hs []*models.Highlight) map[models.HighlightID]*models.Highlight {
	m := make(map[models.HighlightID]*models.Highlight, len(hs))
	for _, h := range hs {
		m[h.ID] = h
	}
	return m
}

// textsOverlap reports whether the normalized texts are substrings of one
// another or share more than half of their words.
func textsOverlap(a, b string) bool {
	na := normalizeText(a)
	nb := normalizeText(b)
	if na == "" || nb == "" {
		return false
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return true
	}

	wordsA := strings.Fields(na)
	wordsB := strings.Fields(nb)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return false
	}
	setA := make(map[string]bool, len(wordsA))
	for _, w := range wordsA {
		setA[w] = true
	}
	shared := 0
	seen := make(map[string]bool, len(wordsB))
	for _, w := range wordsB {
		if setA[w] && !seen[w] {
			shared++
			seen[w] = true
		}
	}

	smaller := len(setA)
	if distinct := len(distinctWords(wordsB)); distinct < smaller {
		smaller = distinct
	}
	return float64(shared)/float64(smaller) > wordOverlapThreshold
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func distinctWords(words []string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

func sameTagSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, t := range a {
		counts[t]++
	}
	for _, t := range b {
		counts[t]--
		if counts[t] < 0 {
			return false
		}
	}
	return true
}
