package models

import (
	"net/mail"
	"strings"
	"time"

	"newsdb/pkg/threading"
)

// Article is one newsgroup article as carried in overview data. The child
// and next links are written by the threading engine during read-back and
// are excluded from JSON; rendered trees use ThreadNode instead.
type Article struct {
	Number    int64    `json:"number,omitempty"`
	MessageID string   `json:"message_id"`
	Subject   string   `json:"subject"`
	From      string   `json:"from,omitempty"`
	Date      string   `json:"date,omitempty"`
	Refs      []string `json:"references,omitempty"`
	Bytes     int64    `json:"bytes,omitempty"`
	Lines     int64    `json:"lines,omitempty"`
	// Dummy marks a placeholder synthesized for an ancestor that was
	// never delivered. Dummies never come from overview data.
	Dummy bool `json:"dummy,omitempty"`

	child *Article
	next  *Article

	// lazily derived from Subject; dropped whenever a link changes
	subjOK  bool
	subj    string
	isReply bool
}

// Child returns the first reply, set by threading.
func (a *Article) Child() *Article { return a.child }

// Next returns the next sibling at the same level, set by threading.
func (a *Article) Next() *Article { return a.next }

// IsDummy implements threading.Threadable.
func (a *Article) IsDummy() bool { return a.Dummy }

// MakeDummy implements threading.Threadable.
func (a *Article) MakeDummy() threading.Threadable {
	return NewDummyArticle(a)
}

// NewDummyArticle returns a placeholder standing in for child's
// undelivered ancestor. It carries the child's simplified subject so the
// synthesized root displays the conversation topic rather than a reply
// marker.
func NewDummyArticle(child *Article) *Article {
	return &Article{Subject: child.SimplifiedSubject(), Dummy: true}
}

// ID implements threading.Threadable.
func (a *Article) ID() string { return a.MessageID }

// References implements threading.Threadable: ancestor ids oldest first.
func (a *Article) References() []string { return a.Refs }

// SetChild implements threading.Threadable. Only the engine calls it.
func (a *Article) SetChild(t threading.Threadable) {
	a.child = asArticle(t)
	a.subjOK = false
}

// SetNext implements threading.Threadable. Only the engine calls it.
func (a *Article) SetNext(t threading.Threadable) {
	a.next = asArticle(t)
	a.subjOK = false
}

// SimplifiedSubject implements threading.Threadable, caching the result
// until a structural link changes.
func (a *Article) SimplifiedSubject() string {
	if !a.subjOK {
		a.subj, a.isReply = threading.SimplifySubject(a.Subject)
		a.subjOK = true
	}
	return a.subj
}

// SubjectIsReply implements threading.Threadable.
func (a *Article) SubjectIsReply() bool {
	if !a.subjOK {
		a.subj, a.isReply = threading.SimplifySubject(a.Subject)
		a.subjOK = true
	}
	return a.isReply
}

// Time parses the Date header. Returns the zero time when the header is
// missing or not a date this side of RFC 5322.
func (a *Article) Time() time.Time {
	if a.Date == "" {
		return time.Time{}
	}
	t, err := mail.ParseDate(a.Date)
	if err != nil {
		return time.Time{}
	}
	return t
}

func asArticle(t threading.Threadable) *Article {
	if t == nil {
		return nil
	}
	return t.(*Article)
}

// ParseReferences splits a References header into individual message ids,
// oldest first. Text outside angle brackets (comments, folding whitespace,
// stray commas) is ignored; a fragment with no closing bracket is dropped.
func ParseReferences(header string) []string {
	var refs []string
	for {
		i := strings.IndexByte(header, '<')
		if i < 0 {
			return refs
		}
		j := strings.IndexByte(header[i:], '>')
		if j < 0 {
			return refs
		}
		refs = append(refs, header[i:i+j+1])
		header = header[i+j+1:]
	}
}
