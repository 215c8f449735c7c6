package refresh_test

import (
	"context"
	"testing"

	"newsdb/internal/refresh"
	"newsdb/pkg/ingest"
	"newsdb/pkg/models"
	"newsdb/pkg/store"
)

func TestRunOnceEnqueuesSubscribedGroups(t *testing.T) {
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	for _, g := range []models.Group{
		{Name: "comp.misc", Subscribed: true},
		{Name: "sci.crypt", Subscribed: true},
		{Name: "alt.ignored", Subscribed: false},
	} {
		if err := store.SaveGroup(g); err != nil {
			t.Fatalf("SaveGroup %s: %v", g.Name, err)
		}
	}

	q := ingest.NewQueue(8)
	if err := refresh.RunOnce(context.Background(), q); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if q.Len() != 2 {
		t.Fatalf("queue holds %d ops; want 2", q.Len())
	}

	seen := map[string]string{}
	for q.Len() > 0 {
		it := <-q.Out()
		if it.Op.Type != ingest.OpSync {
			t.Fatalf("unexpected op type %q", it.Op.Type)
		}
		seen[it.Op.Group] = it.Op.ID
		it.Done()
	}
	if _, ok := seen["alt.ignored"]; ok {
		t.Fatalf("unsubscribed group enqueued")
	}
	if seen["comp.misc"] == "" || seen["comp.misc"] != seen["sci.crypt"] {
		t.Fatalf("syncs from one tick should share an id: %v", seen)
	}
}

func TestRunOnceSurvivesFullQueue(t *testing.T) {
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	for _, name := range []string{"a.one", "a.two", "a.three"} {
		if err := store.SaveGroup(models.Group{Name: name, Subscribed: true}); err != nil {
			t.Fatalf("SaveGroup: %v", err)
		}
	}
	q := ingest.NewQueue(1)
	if err := refresh.RunOnce(context.Background(), q); err != nil {
		t.Fatalf("RunOnce must not fail on a full queue: %v", err)
	}
	if q.Len() != 1 {
		t.Fatalf("queue holds %d ops", q.Len())
	}
}
