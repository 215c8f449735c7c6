package models

import (
	"reflect"
	"testing"
	"time"

	"newsdb/pkg/threading"
)

func TestParseReferences(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"<a@x>", []string{"<a@x>"}},
		{"<a@x> <b@y>", []string{"<a@x>", "<b@y>"}},
		{"<a@x>,<b@y>", []string{"<a@x>", "<b@y>"}},
		{"junk <a@x> more junk <b@y> tail", []string{"<a@x>", "<b@y>"}},
		{"<a@x>\r\n\t<b@y>", []string{"<a@x>", "<b@y>"}},
		{"<unterminated", nil},
		{"<a@x> <unterminated", []string{"<a@x>"}},
		{"no brackets at all", nil},
	}
	for _, c := range cases {
		if got := ParseReferences(c.in); !reflect.DeepEqual(got, c.want) {
			t.Errorf("ParseReferences(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestArticleSubjectCache(t *testing.T) {
	a := &Article{MessageID: "<1>", Subject: "Re: Caching"}
	if got := a.SimplifiedSubject(); got != "Caching" {
		t.Fatalf("SimplifiedSubject = %q", got)
	}
	if !a.SubjectIsReply() {
		t.Fatalf("SubjectIsReply = false, want true")
	}

	// The derived pair is cached until a structural link changes.
	a.Subject = "Other"
	if got := a.SimplifiedSubject(); got != "Caching" {
		t.Fatalf("cache dropped without link change: %q", got)
	}
	a.SetNext(nil)
	if got := a.SimplifiedSubject(); got != "Other" {
		t.Fatalf("cache kept after link change: %q", got)
	}
	if a.SubjectIsReply() {
		t.Fatalf("SubjectIsReply stale after recompute")
	}
}

func TestArticleMakeDummy(t *testing.T) {
	a := &Article{MessageID: "<1>", Subject: "Re: Planning"}
	d := a.MakeDummy().(*Article)
	if !d.IsDummy() {
		t.Fatalf("dummy not flagged")
	}
	if d.Subject != "Planning" {
		t.Fatalf("dummy subject = %q, want simplified template subject", d.Subject)
	}
	if d.MessageID != "" {
		t.Fatalf("dummy has message id %q", d.MessageID)
	}
}

func TestArticleTime(t *testing.T) {
	a := &Article{Date: "Fri, 21 Nov 1997 09:55:06 -0600"}
	got := a.Time()
	if got.IsZero() {
		t.Fatalf("valid date parsed as zero")
	}
	if got.UTC().Year() != 1997 || got.UTC().Month() != time.November {
		t.Fatalf("parsed %v", got)
	}

	for _, bad := range []string{"", "not a date"} {
		if ts := (&Article{Date: bad}).Time(); !ts.IsZero() {
			t.Fatalf("Date %q parsed as %v, want zero", bad, ts)
		}
	}
}

func TestBuildForest(t *testing.T) {
	arts := []*Article{
		{Number: 1, MessageID: "<1>", Subject: "Deploy window"},
		{Number: 2, MessageID: "<2>", Subject: "Re: Deploy window", Refs: []string{"<1>"}},
		{Number: 3, MessageID: "<3>", Subject: "Unrelated"},
	}
	in := make([]threading.Threadable, len(arts))
	for i, a := range arts {
		in[i] = a
	}

	root := threading.NewThreader().Thread(in)
	if root == nil {
		t.Fatalf("no root")
	}
	forest := BuildForest(root.(*Article))
	if len(forest) != 2 {
		t.Fatalf("forest roots = %d, want 2", len(forest))
	}
	if forest[0].MessageID != "<1>" || len(forest[0].Children) != 1 {
		t.Fatalf("first tree wrong: %+v", forest[0])
	}
	if forest[0].Children[0].MessageID != "<2>" {
		t.Fatalf("child = %q", forest[0].Children[0].MessageID)
	}
	if forest[1].MessageID != "<3>" || forest[1].Children != nil {
		t.Fatalf("second tree wrong: %+v", forest[1])
	}
	if got := CountNodes(forest); got != 3 {
		t.Fatalf("CountNodes = %d, want 3", got)
	}
}
