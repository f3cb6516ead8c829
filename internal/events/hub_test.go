package events

import "testing"

func TestPublishSubscribe(t *testing.T) {
	t.Parallel()

	h := NewHub(8)
	ch, cancel := h.Subscribe()
	defer cancel()

	h.Publish("workspace.save", "web-prod", "create_in_progress", "")

	tr := <-ch
	if tr.Workspace != "web-prod" || tr.State != "create_in_progress" {
		t.Fatalf("transition = %+v", tr)
	}
	if tr.ID == 0 {
		t.Fatalf("transition ID not assigned")
	}
}

func TestSnapshotSinceFiltersAndOrders(t *testing.T) {
	t.Parallel()

	h := NewHub(8)
	h.Publish("workspace.save", "a", "create_in_progress", "")
	h.Publish("workspace.save", "a", "create_complete", "")
	h.Publish("workspace.destroy", "a", "delete_in_progress", "")

	all := h.SnapshotSince(0)
	if len(all) != 3 {
		t.Fatalf("len(all) = %d, want 3", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].ID <= all[i-1].ID {
			t.Fatalf("snapshot not oldest-first: %+v", all)
		}
	}

	tail := h.SnapshotSince(all[0].ID)
	if len(tail) != 2 {
		t.Fatalf("len(tail) = %d, want 2", len(tail))
	}
}

func TestRingOverwritesOldest(t *testing.T) {
	t.Parallel()

	h := NewHub(2)
	h.Publish("t", "a", "", "")
	h.Publish("t", "b", "", "")
	h.Publish("t", "c", "", "")

	snap := h.SnapshotSince(0)
	if len(snap) != 2 {
		t.Fatalf("len = %d, want 2", len(snap))
	}
	if snap[0].Workspace != "b" || snap[1].Workspace != "c" {
		t.Fatalf("snapshot = %+v, want b then c", snap)
	}
}
