package tasks

import (
	"fmt"
	"testing"

	"github.com/desertthunder/tagalbum/internal/models"
)

func item(id int64) models.Item {
	return models.Item{
		ExternalID: id,
		URL:        fmt.Sprintf("https://t.co/%d", id),
		MediaURL:   fmt.Sprintf("https://pbs.twimg.com/%d.jpg", id),
	}
}

func stored(id int64) models.Item {
	it := item(id)
	it.ID = fmt.Sprintf("row-%d", id)
	return it
}

// storedRange returns persisted items from..to, newest-first.
func storedRange(from, to int64) []models.Item {
	var items []models.Item
	for id := to; id >= from; id-- {
		items = append(items, stored(id))
	}
	return items
}

func ids(items []models.Item) []int64 {
	out := make([]int64, 0, len(items))
	for _, it := range items {
		out = append(out, it.ExternalID)
	}
	return out
}

func TestDedupBatch(t *testing.T) {
	t.Run("Same Media URL Kept Once", func(t *testing.T) {
		a := models.Item{ExternalID: 1, URL: "u1", MediaURL: "m"}
		b := models.Item{ExternalID: 2, URL: "u2", MediaURL: "m"}
		c := item(3)

		got := dedupBatch([]models.Item{a, b, c})
		if len(got) != 2 || got[0].ExternalID != 1 || got[1].ExternalID != 3 {
			t.Errorf("expected [1 3], got %v", ids(got))
		}
	})

	t.Run("Same External URL", func(t *testing.T) {
		a := models.Item{ExternalID: 1, URL: "u1", MediaURL: "m1", ExternalURL: "https://example.com"}
		b := models.Item{ExternalID: 2, URL: "u2", MediaURL: "m2", ExternalURL: "https://example.com"}

		if got := dedupBatch([]models.Item{a, b}); len(got) != 1 {
			t.Errorf("expected 1 item, got %d", len(got))
		}
	})

	t.Run("Distinct Items Untouched", func(t *testing.T) {
		got := dedupBatch([]models.Item{item(3), item(2), item(1)})
		if len(got) != 3 {
			t.Errorf("expected 3 items, got %d", len(got))
		}
	})
}

func TestCapItems(t *testing.T) {
	items := storedRange(1, 10)

	if got := capItems(items, 4); len(got) != 4 || got[0].ExternalID != 10 {
		t.Errorf("expected first 4 items, got %v", ids(got))
	}
	if got := capItems(items, 20); len(got) != 10 {
		t.Errorf("expected all items when under cap, got %d", len(got))
	}
}

func TestMergeItems(t *testing.T) {
	t.Run("Overflow Deletes Oldest", func(t *testing.T) {
		existing := storedRange(1, 100)
		candidates := []models.Item{item(105), item(104), item(103), item(102), item(101)}

		result, changed := mergeItems(existing, candidates, 100)
		if !changed {
			t.Fatal("expected merge to report a change")
		}

		if got := ids(result.Create); fmt.Sprint(got) != "[105 104 103 102 101]" {
			t.Errorf("unexpected create set %v", got)
		}
		if got := ids(result.Delete); fmt.Sprint(got) != "[5 4 3 2 1]" {
			t.Errorf("unexpected delete set %v", got)
		}
		if len(result.Items) != 100 || result.Items[0].ExternalID != 105 || result.Items[99].ExternalID != 6 {
			t.Errorf("unexpected retained window %d..%d (%d items)",
				result.Items[0].ExternalID, result.Items[len(result.Items)-1].ExternalID, len(result.Items))
		}
		if fmt.Sprint(result.DeleteIDs()) != "[row-5 row-4 row-3 row-2 row-1]" {
			t.Errorf("unexpected delete ids %v", result.DeleteIDs())
		}
	})

	t.Run("Under Cap Creates Only", func(t *testing.T) {
		result, changed := mergeItems(storedRange(1, 3), []models.Item{item(5), item(4)}, 100)
		if !changed {
			t.Fatal("expected change")
		}
		if len(result.Create) != 2 || len(result.Delete) != 0 || len(result.Items) != 5 {
			t.Errorf("unexpected result: create=%v delete=%v items=%v", ids(result.Create), ids(result.Delete), ids(result.Items))
		}
	})

	t.Run("Nothing New", func(t *testing.T) {
		existing := storedRange(1, 3)
		dup := item(2)
		dup.ExternalID = 99

		if _, changed := mergeItems(existing, []models.Item{dup}, 100); changed {
			t.Error("a candidate matching an existing url should not count as new")
		}
		if _, changed := mergeItems(existing, nil, 100); changed {
			t.Error("no candidates should not count as a change")
		}
	})

	t.Run("Unpersisted Overflow Discarded", func(t *testing.T) {
		existing := storedRange(10, 12)
		candidates := []models.Item{item(1), item(13)}

		result, changed := mergeItems(existing, candidates, 3)
		if !changed {
			t.Fatal("expected change")
		}
		if fmt.Sprint(ids(result.Create)) != "[13]" {
			t.Errorf("expected only 13 created, got %v", ids(result.Create))
		}
		if fmt.Sprint(ids(result.Delete)) != "[10]" {
			t.Errorf("expected 10 deleted, got %v", ids(result.Delete))
		}
		if fmt.Sprint(ids(result.Items)) != "[13 12 11]" {
			t.Errorf("unexpected window %v", ids(result.Items))
		}
	})

	t.Run("Candidates Checked Against Each Other", func(t *testing.T) {
		a := models.Item{ExternalID: 20, URL: "x", MediaURL: "shared"}
		b := models.Item{ExternalID: 21, URL: "y", MediaURL: "shared"}

		result, _ := mergeItems(nil, []models.Item{a, b}, 100)
		if len(result.Create) != 1 {
			t.Errorf("expected one of the duplicate candidates, got %v", ids(result.Create))
		}
	})

	t.Run("Does Not Mutate Existing", func(t *testing.T) {
		existing := storedRange(1, 3)
		mergeItems(existing, []models.Item{item(4)}, 100)
		if fmt.Sprint(ids(existing)) != "[3 2 1]" {
			t.Errorf("existing slice was modified: %v", ids(existing))
		}
	})

	t.Run("Cap Invariant", func(t *testing.T) {
		for _, max := range []int{1, 5, 50, 100} {
			existing := storedRange(1, int64(max))
			var candidates []models.Item
			for id := int64(max + 30); id > int64(max); id-- {
				candidates = append(candidates, item(id))
			}

			result, _ := mergeItems(existing, candidates, max)
			kept := len(existing) - len(result.Delete) + len(result.Create)
			if kept > max || len(result.Items) > max {
				t.Errorf("max=%d: album would hold %d items", max, kept)
			}
			for i := 1; i < len(result.Items); i++ {
				if result.Items[i-1].ExternalID <= result.Items[i].ExternalID {
					t.Fatalf("max=%d: window not strictly newest-first at %d", max, i)
				}
			}
		}
	})
}
