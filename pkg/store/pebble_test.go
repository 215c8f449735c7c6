package store_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"newsdb/pkg/models"
	"newsdb/pkg/store"
)

func openStore(t *testing.T) {
	t.Helper()
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("store.Close: %v", err)
		}
	})
}

func seedArticle(t *testing.T, group string, number int64, msgID, subject string) {
	t.Helper()
	art := models.Article{Number: number, MessageID: msgID, Subject: subject, From: "a@example.org"}
	if err := store.SaveArticle(group, art); err != nil {
		t.Fatalf("SaveArticle %d: %v", number, err)
	}
}

func TestGroupRoundTrip(t *testing.T) {
	openStore(t)
	if !store.Ready() {
		t.Fatalf("store not ready after Open")
	}

	g := models.Group{Name: "comp.lang.misc", Description: "assorted languages", Low: 10, High: 42, Count: 33}
	if err := store.SaveGroup(g); err != nil {
		t.Fatalf("SaveGroup: %v", err)
	}

	s, err := store.GetGroup("comp.lang.misc")
	if err != nil {
		t.Fatalf("GetGroup: %v", err)
	}
	var got models.Group
	if err := json.Unmarshal([]byte(s), &got); err != nil {
		t.Fatalf("unmarshal group: %v", err)
	}
	if got.High != 42 || got.Description != "assorted languages" {
		t.Fatalf("group mismatch: %+v", got)
	}
}

func TestListGroupsSkipsArticleRows(t *testing.T) {
	openStore(t)
	for _, name := range []string{"alt.test", "comp.misc"} {
		if err := store.SaveGroup(models.Group{Name: name}); err != nil {
			t.Fatalf("SaveGroup %s: %v", name, err)
		}
	}
	seedArticle(t, "alt.test", 1, "<one@test>", "hello")
	seedArticle(t, "comp.misc", 1, "<two@test>", "hello")

	groups, err := store.ListGroups()
	if err != nil {
		t.Fatalf("ListGroups: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups; got %d: %v", len(groups), groups)
	}
}

func TestListArticlesOrderAndBounds(t *testing.T) {
	openStore(t)
	// insert out of order; padded keys must still sort numerically
	for _, n := range []int64{5, 2, 100, 9} {
		seedArticle(t, "sci.crypt", n, "", "subject")
	}

	rows, err := store.ListArticles("sci.crypt", 0, 0, 0)
	if err != nil {
		t.Fatalf("ListArticles: %v", err)
	}
	var nums []int64
	for _, r := range rows {
		var a models.Article
		if err := json.Unmarshal([]byte(r), &a); err != nil {
			t.Fatalf("unmarshal row: %v", err)
		}
		nums = append(nums, a.Number)
	}
	want := []int64{2, 5, 9, 100}
	if len(nums) != len(want) {
		t.Fatalf("expected %v; got %v", want, nums)
	}
	for i := range want {
		if nums[i] != want[i] {
			t.Fatalf("expected %v; got %v", want, nums)
		}
	}

	rows, err = store.ListArticles("sci.crypt", 5, 9, 0)
	if err != nil {
		t.Fatalf("ListArticles bounded: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 bounded rows; got %d", len(rows))
	}

	rows, err = store.ListArticles("sci.crypt", 0, 0, 3)
	if err != nil {
		t.Fatalf("ListArticles limited: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 limited rows; got %d", len(rows))
	}
}

func TestListArticlesIsolatedPerGroup(t *testing.T) {
	openStore(t)
	seedArticle(t, "alt.a", 1, "", "s")
	seedArticle(t, "alt.a.b", 7, "", "s")

	nums, err := store.ListArticleNumbers("alt.a")
	if err != nil {
		t.Fatalf("ListArticleNumbers: %v", err)
	}
	if len(nums) != 1 || nums[0] != 1 {
		t.Fatalf("expected [1]; got %v", nums)
	}
}

func TestLookupMessageID(t *testing.T) {
	openStore(t)
	seedArticle(t, "comp.misc", 12, "<find-me@test>", "lookup")

	loc, err := store.LookupMessageID("<find-me@test>")
	if err != nil {
		t.Fatalf("LookupMessageID: %v", err)
	}
	if loc.Group != "comp.misc" || loc.Number != 12 {
		t.Fatalf("locator mismatch: %+v", loc)
	}

	if _, err := store.LookupMessageID("<absent@test>"); err == nil {
		t.Fatalf("expected lookup miss for unknown id")
	}
}

func TestDeleteArticlesBelow(t *testing.T) {
	openStore(t)
	for n := int64(1); n <= 5; n++ {
		seedArticle(t, "alt.expire", n, fmt.Sprintf("<n%d@test>", n), "old")
	}

	removed, err := store.DeleteArticlesBelow("alt.expire", 4)
	if err != nil {
		t.Fatalf("DeleteArticlesBelow: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 removed; got %d", removed)
	}
	nums, err := store.ListArticleNumbers("alt.expire")
	if err != nil {
		t.Fatalf("ListArticleNumbers: %v", err)
	}
	if len(nums) != 2 || nums[0] != 4 || nums[1] != 5 {
		t.Fatalf("expected [4 5]; got %v", nums)
	}
	// index entries for removed rows must be gone as well
	if _, err := store.LookupMessageID("<n1@test>"); err == nil {
		t.Fatalf("expected index entry for removed article to be deleted")
	}
	if _, err := store.LookupMessageID("<n4@test>"); err != nil {
		t.Fatalf("surviving index entry lost: %v", err)
	}
}

func TestDeleteGroupRemovesEverything(t *testing.T) {
	openStore(t)
	if err := store.SaveGroup(models.Group{Name: "alt.drop"}); err != nil {
		t.Fatalf("SaveGroup: %v", err)
	}
	seedArticle(t, "alt.drop", 1, "<drop@test>", "bye")

	if err := store.DeleteGroup("alt.drop"); err != nil {
		t.Fatalf("DeleteGroup: %v", err)
	}
	if _, err := store.GetGroup("alt.drop"); err == nil {
		t.Fatalf("group metadata survived delete")
	}
	if n, err := store.CountArticles("alt.drop"); err != nil || n != 0 {
		t.Fatalf("articles survived delete: n=%d err=%v", n, err)
	}
	if _, err := store.LookupMessageID("<drop@test>"); err == nil {
		t.Fatalf("index survived delete")
	}
}

func TestMetaRoundTrip(t *testing.T) {
	openStore(t)
	if err := store.SetMeta("schema_version", "1"); err != nil {
		t.Fatalf("SetMeta: %v", err)
	}
	v, err := store.GetMeta("schema_version")
	if err != nil {
		t.Fatalf("GetMeta: %v", err)
	}
	if v != "1" {
		t.Fatalf("expected \"1\"; got %q", v)
	}
}

func TestNotOpened(t *testing.T) {
	if store.Ready() {
		t.Skip("store already open from another test")
	}
	if err := store.SaveGroup(models.Group{Name: "x"}); err == nil {
		t.Fatalf("expected error before Open")
	}
	if _, err := store.ListArticles("x", 0, 0, 0); err == nil {
		t.Fatalf("expected error before Open")
	}
}
