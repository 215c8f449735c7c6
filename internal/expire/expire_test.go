package expire_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"newsdb/internal/expire"
	"newsdb/pkg/config"
	"newsdb/pkg/models"
	"newsdb/pkg/store"
)

func openSeededGroup(t *testing.T, dates []time.Time, bytes []int64) {
	t.Helper()
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.SaveGroup(models.Group{Name: "alt.retain", Subscribed: true}); err != nil {
		t.Fatalf("SaveGroup: %v", err)
	}
	for i := range dates {
		art := models.Article{
			Number:    int64(i + 1),
			MessageID: fmt.Sprintf("<r%d@x>", i+1),
			Subject:   "s",
		}
		if !dates[i].IsZero() {
			art.Date = dates[i].UTC().Format(time.RFC1123Z)
		}
		if bytes != nil {
			art.Bytes = bytes[i]
		}
		if err := store.SaveArticle("alt.retain", art); err != nil {
			t.Fatalf("SaveArticle: %v", err)
		}
	}
}

func retained(t *testing.T) []int64 {
	t.Helper()
	nums, err := store.ListArticleNumbers("alt.retain")
	if err != nil {
		t.Fatalf("ListArticleNumbers: %v", err)
	}
	return nums
}

func run(t *testing.T, rc config.RetentionConfig) {
	t.Helper()
	cfg := &config.Config{Retention: rc}
	if err := expire.RunOnce(context.Background(), cfg); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
}

func TestMaxArticlesKeepsNewest(t *testing.T) {
	openSeededGroup(t, make([]time.Time, 5), nil)
	run(t, config.RetentionConfig{Enabled: true, MaxArticles: 2})
	nums := retained(t)
	if len(nums) != 2 || nums[0] != 4 || nums[1] != 5 {
		t.Fatalf("retained %v; want [4 5]", nums)
	}
}

func TestMaxAgeRemovesOldPrefix(t *testing.T) {
	now := time.Now()
	openSeededGroup(t, []time.Time{
		now.Add(-72 * time.Hour),
		now.Add(-50 * time.Hour),
		now.Add(-2 * time.Hour),
		now.Add(-1 * time.Hour),
	}, nil)
	run(t, config.RetentionConfig{Enabled: true, MaxAge: config.Duration(24 * time.Hour)})
	nums := retained(t)
	if len(nums) != 2 || nums[0] != 3 {
		t.Fatalf("retained %v; want [3 4]", nums)
	}
}

func TestMaxAgeStopsAtUndatedRow(t *testing.T) {
	now := time.Now()
	openSeededGroup(t, []time.Time{
		now.Add(-72 * time.Hour),
		{}, // no parseable date; the walk must stop here
		now.Add(-60 * time.Hour),
	}, nil)
	run(t, config.RetentionConfig{Enabled: true, MaxAge: config.Duration(24 * time.Hour)})
	nums := retained(t)
	if len(nums) != 2 || nums[0] != 2 {
		t.Fatalf("retained %v; want [2 3]", nums)
	}
}

func TestMaxBytesBudget(t *testing.T) {
	openSeededGroup(t, make([]time.Time, 4), []int64{500, 500, 300, 300})
	run(t, config.RetentionConfig{Enabled: true, MaxBytes: config.SizeBytes(700)})
	nums := retained(t)
	// newest-first: 300+300 fits, the 500s overflow the budget
	if len(nums) != 2 || nums[0] != 3 || nums[1] != 4 {
		t.Fatalf("retained %v; want [3 4]", nums)
	}
}

func TestStrictestLimitWins(t *testing.T) {
	now := time.Now()
	openSeededGroup(t, []time.Time{
		now.Add(-72 * time.Hour),
		now.Add(-1 * time.Hour),
		now.Add(-1 * time.Hour),
		now.Add(-1 * time.Hour),
	}, nil)
	// age would only drop row 1; the row cap drops 1-3
	run(t, config.RetentionConfig{
		Enabled:     true,
		MaxAge:      config.Duration(24 * time.Hour),
		MaxArticles: 1,
	})
	nums := retained(t)
	if len(nums) != 1 || nums[0] != 4 {
		t.Fatalf("retained %v; want [4]", nums)
	}
}

func TestDryRunDeletesNothing(t *testing.T) {
	openSeededGroup(t, make([]time.Time, 5), nil)
	run(t, config.RetentionConfig{Enabled: true, MaxArticles: 1, DryRun: true})
	if nums := retained(t); len(nums) != 5 {
		t.Fatalf("dry run removed rows: %v", nums)
	}
}
