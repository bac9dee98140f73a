package core

import (
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRegistrySnapshotOrderedByID(t *testing.T) {
	r := NewRegistry()
	for _, id := range []int64{5, 1, 3} {
		if err := r.Add(newNamedClient(t, id, "u"+strconv.FormatInt(id, 10), 1)); err != nil {
			t.Fatalf("add %d: %v", id, err)
		}
	}

	var got []ClientInfo
	for _, c := range r.Snapshot() {
		got = append(got, c.Info())
	}
	want := []ClientInfo{{ID: 1, Username: "u1"}, {ID: 3, Username: "u3"}, {ID: 5, Username: "u5"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistryRemoveAbsentIsNoop(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Remove(7); ok {
		t.Fatal("removing an absent id must report false")
	}
	if r.Len() != 0 {
		t.Fatal("registry should stay empty")
	}
}

func TestRegistryRejectsUnauthenticated(t *testing.T) {
	r := NewRegistry()
	if err := r.Add(NewClient(1, "test", 1, nil)); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	const workers = 32
	const perWorker = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id := int64(w*perWorker + i)
				c := NewClient(id, "test", 1, nil)
				_ = c.SetName("user")
				if err := r.Add(c); err != nil {
					t.Errorf("add %d: %v", id, err)
					return
				}
				_ = r.Snapshot()
				if i%2 == 0 {
					if _, ok := r.Remove(id); !ok {
						t.Errorf("remove %d: not found", id)
					}
				}
			}
		}(w)
	}
	wg.Wait()

	if got, want := r.Len(), workers*perWorker/2; got != want {
		t.Fatalf("len = %d, want %d", got, want)
	}
	for _, c := range r.Snapshot() {
		if c.ID%2 == 0 {
			t.Fatalf("removed client %d still present", c.ID)
		}
	}
}
