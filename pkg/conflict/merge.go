package conflict

import (
	"sort"

	"github.com/inkmark/inkmark/pkg/models"
)

// noteSeparator joins two distinct notes kept through a metadata merge.
const noteSeparator = " | "

// mergeRecords combines two copies that anchor the same passage: the later
// copy contributes its color, position and lastModified, while tags, notes,
// platforms and review histories are merged field by field. The earlier
// createdAt is kept.
func mergeRecords(local, remote *models.Highlight) *models.Highlight {
	winner, loser := orderByModified(local, remote)

	merged := winner.Clone()
	merged.ID = local.ID
	merged.BookID = local.BookID
	if loser.CreatedAt.Before(winner.CreatedAt) {
		merged.CreatedAt = loser.CreatedAt
	}
	merged.Tags = mergeTags(local.Tags, remote.Tags)
	merged.Note = mergeNotes(local.Note, remote.Note)
	merged.Platforms = mergePlatforms(local, remote)
	merged.ReviewHistory = mergeReviewHistories(local.ReviewHistory, remote.ReviewHistory)
	return merged
}

// mostRecentWins keeps the later copy wholesale, only unioning the platform
// lists onto the winner.
func mostRecentWins(local, remote *models.Highlight) *models.Highlight {
	winner, _ := orderByModified(local, remote)
	merged := winner.Clone()
	merged.Platforms = mergePlatforms(local, remote)
	return merged
}

// orderByModified returns (later, earlier) by lastModified; the local copy
// wins exact ties so resolution stays deterministic across replicas applying
// the same merge.
func orderByModified(local, remote *models.Highlight) (winner, loser *models.Highlight) {
	if remote.LastModified.After(local.LastModified) {
		return remote, local
	}
	return local, remote
}

// mergeTags unions two tag lists, keeping local order first and appending
// unseen remote tags.
func mergeTags(local, remote []string) []string {
	seen := make(map[string]bool, len(local)+len(remote))
	merged := make([]string, 0, len(local)+len(remote))
	for _, t := range local {
		if !seen[t] {
			seen[t] = true
			merged = append(merged, t)
		}
	}
	for _, t := range remote {
		if !seen[t] {
			seen[t] = true
			merged = append(merged, t)
		}
	}
	return merged
}

// mergeNotes concatenates distinct non-empty notes with a separator; when
// only one side carries a note, that note is kept.
func mergeNotes(local, remote string) string {
	switch {
	case local == "":
		return remote
	case remote == "" || local == remote:
		return local
	default:
		return local + noteSeparator + remote
	}
}

// mergePlatforms unions the accumulated platform lists of both copies,
// falling back to each record's creation platform when the list is empty.
func mergePlatforms(local, remote *models.Highlight) []models.Platform {
	seen := make(map[models.Platform]bool, 2)
	var merged []models.Platform
	add := func(p models.Platform) {
		if p != "" && !seen[p] {
			seen[p] = true
			merged = append(merged, p)
		}
	}
	for _, p := range platformList(local) {
		add(p)
	}
	for _, p := range platformList(remote) {
		add(p)
	}
	return merged
}

func platformList(h *models.Highlight) []models.Platform {
	if len(h.Platforms) > 0 {
		return h.Platforms
	}
	return []models.Platform{h.Platform}
}

// mergeReviewHistories merges by record id, the remote record overwriting the
// local one on collision, and orders the result by date ascending.
func mergeReviewHistories(local, remote []models.ReviewRecord) []models.ReviewRecord {
	byID := make(map[models.ReviewID]models.ReviewRecord, len(local)+len(remote))
	for _, rec := range local {
		byID[rec.ID] = rec
	}
	for _, rec := range remote {
		byID[rec.ID] = rec
	}

	merged := make([]models.ReviewRecord, 0, len(byID))
	for _, rec := range byID {
		merged = append(merged, rec)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Date.Equal(merged[j].Date) {
			return merged[i].ID.String() < merged[j].ID.String()
		}
		return merged[i].Date.Before(merged[j].Date)
	})
	return merged
}
