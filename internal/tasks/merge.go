package tasks

import (
	"slices"

	"github.com/desertthunder/tagalbum/internal/models"
)

// MergeResult is the outcome of merging fetched items into an album.
type MergeResult struct {
	Create []models.Item // new items inside the cap
	Delete []models.Item // stored items pushed past the cap
	Items  []models.Item // retained window, newest-first
}

// DeleteIDs returns the row IDs of the items to delete.
func (m MergeResult) DeleteIDs() []string {
	ids := make([]string, 0, len(m.Delete))
	for _, item := range m.Delete {
		ids = append(ids, item.ID)
	}
	return ids
}

// dedupBatch drops items that are the same media as an earlier item of the batch, keeping source order.
func dedupBatch(items []models.Item) []models.Item {
	kept := make([]models.Item, 0, len(items))
	for _, item := range items {
		if !models.ContainsSame(kept, item) {
			kept = append(kept, item)
		}
	}
	return kept
}

// capItems keeps at most max items from the front of items.
func capItems(items []models.Item, max int) []models.Item {
	if len(items) > max {
		return items[:max]
	}
	return items
}

// mergeItems merges candidates into existing (newest-first) and splits the result at the cap.
//
// A candidate is appended only when it is not the same media as anything already in the working list,
// so candidates are also checked against each other. It reports false when nothing was appended.
//
// After the merge the list is ordered newest-first. Positions below max that are not stored yet go to Create,
// stored items at or beyond max go to Delete. Unstored items beyond max are discarded.
func mergeItems(existing, candidates []models.Item, max int) (MergeResult, bool) {
	working := slices.Clone(existing)
	slices.Reverse(working)

	appended := false
	for _, candidate := range candidates {
		if !models.ContainsSame(working, candidate) {
			working = append(working, candidate)
			appended = true
		}
	}

	if !appended {
		return MergeResult{}, false
	}

	models.SortNewestFirst(working)

	var result MergeResult
	for i, item := range working {
		switch {
		case i < max:
			result.Items = append(result.Items, item)
			if !item.Persisted() {
				result.Create = append(result.Create, item)
			}
		case item.Persisted():
			result.Delete = append(result.Delete, item)
		}
	}

	return result, true
}
