package tasks

import (
	"context"
	"testing"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	id, err := store.Create(ctx, "user-a", Draft{Title: "Buy milk", Deadline: "2024-06-01", Priority: PriorityHigh})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	list, err := store.ListByOwner(ctx, "user-a")
	if err != nil {
		t.Fatalf("ListByOwner returned error: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 task, got %d", len(list))
	}
	got := list[0]
	if got.ID != id || got.Title != "Buy milk" || got.Deadline != "2024-06-01" || got.Priority != PriorityHigh || got.Completed {
		t.Fatalf("unexpected task: %#v", got)
	}

	ok, err := store.Replace(ctx, "user-a", id, Update{Title: "Buy milk", Deadline: "2024-06-01", Priority: PriorityHigh, Completed: true})
	if err != nil || !ok {
		t.Fatalf("Replace = %v, %v", ok, err)
	}
	list, _ = store.ListByOwner(ctx, "user-a")
	if !list[0].Completed {
		t.Fatal("expected task to be completed")
	}

	ok, err = store.Remove(ctx, "user-a", id)
	if err != nil || !ok {
		t.Fatalf("Remove = %v, %v", ok, err)
	}
	list, _ = store.ListByOwner(ctx, "user-a")
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %#v", list)
	}
}

func TestMemoryStoreOwnerIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	id, err := store.Create(ctx, "user-a", Draft{Title: "A's task", Deadline: "2024-06-01", Priority: PriorityLow})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if list, _ := store.ListByOwner(ctx, "user-b"); len(list) != 0 {
		t.Fatalf("user-b should not see user-a's tasks: %#v", list)
	}

	ok, err := store.Replace(ctx, "user-b", id, Update{Title: "hijacked", Deadline: "2024-06-02", Priority: PriorityHigh, Completed: true})
	if err != nil || ok {
		t.Fatalf("cross-user Replace = %v, %v", ok, err)
	}
	ok, err = store.Remove(ctx, "user-b", id)
	if err != nil || ok {
		t.Fatalf("cross-user Remove = %v, %v", ok, err)
	}

	list, _ := store.ListByOwner(ctx, "user-a")
	if len(list) != 1 || list[0].Title != "A's task" || list[0].Completed {
		t.Fatalf("user-a's task was modified: %#v", list)
	}
}

func TestMemoryStoreMissingID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if ok, err := store.Remove(ctx, "user-a", "does-not-exist"); err != nil || ok {
		t.Fatalf("Remove = %v, %v", ok, err)
	}
	if ok, err := store.Replace(ctx, "user-a", "does-not-exist", Update{Title: "x"}); err != nil || ok {
		t.Fatalf("Replace = %v, %v", ok, err)
	}
}

func TestMemoryStoreKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	titles := []string{"first", "second", "third"}
	ids := make([]string, 0, len(titles))
	for _, title := range titles {
		id, err := store.Create(ctx, "user-a", Draft{Title: title, Deadline: "2024-06-01", Priority: PriorityMedium})
		if err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
		ids = append(ids, id)
	}
	if _, err := store.Remove(ctx, "user-a", ids[1]); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}

	list, _ := store.ListByOwner(ctx, "user-a")
	if len(list) != 2 || list[0].Title != "first" || list[1].Title != "third" {
		t.Fatalf("unexpected order: %#v", list)
	}
}
