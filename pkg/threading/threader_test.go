package threading_test

import (
	"strings"
	"testing"

	"newsdb/pkg/threading"
)

// msg is a minimal Threadable for exercising the engine without pulling in
// the article model.
type msg struct {
	id    string
	refs  []string
	subj  string
	dummy bool

	child *msg
	next  *msg

	subjOK  bool
	simple  string
	isReply bool
}

func newMsg(id, subj string, refs ...string) *msg {
	return &msg{id: id, subj: subj, refs: refs}
}

func (m *msg) IsDummy() bool { return m.dummy }

func (m *msg) MakeDummy() threading.Threadable {
	return &msg{subj: m.SimplifiedSubject(), dummy: true}
}

func (m *msg) ID() string           { return m.id }
func (m *msg) References() []string { return m.refs }

func (m *msg) SetChild(t threading.Threadable) {
	m.child = castMsg(t)
	m.subjOK = false
}

func (m *msg) SetNext(t threading.Threadable) {
	m.next = castMsg(t)
	m.subjOK = false
}

func (m *msg) SimplifiedSubject() string {
	m.derive()
	return m.simple
}

func (m *msg) SubjectIsReply() bool {
	m.derive()
	return m.isReply
}

func (m *msg) derive() {
	if !m.subjOK {
		m.simple, m.isReply = threading.SimplifySubject(m.subj)
		m.subjOK = true
	}
}

func castMsg(t threading.Threadable) *msg {
	if t == nil {
		return nil
	}
	return t.(*msg)
}

func thread(t *testing.T, msgs ...*msg) *msg {
	t.Helper()
	in := make([]threading.Threadable, len(msgs))
	for i, m := range msgs {
		in[i] = m
	}
	out := threading.NewThreader().Thread(in)
	if out == nil {
		return nil
	}
	return out.(*msg)
}

// shape renders a forest compactly: roots separated by spaces, children in
// parentheses, dummies as dummy[subject].
func shape(m *msg) string {
	var b strings.Builder
	for ; m != nil; m = m.next {
		if m.dummy {
			b.WriteString("dummy[" + m.subj + "]")
		} else {
			b.WriteString(m.id)
		}
		if m.child != nil {
			b.WriteString("(")
			b.WriteString(shape(m.child))
			b.WriteString(")")
		}
		if m.next != nil {
			b.WriteString(" ")
		}
	}
	return b.String()
}

// collect walks the forest and fails on any message reachable twice, which
// also catches cycles. Returns the set of reached messages.
func collect(t *testing.T, root *msg) map[*msg]bool {
	t.Helper()
	seen := map[*msg]bool{}
	var walk func(*msg)
	walk = func(m *msg) {
		for ; m != nil; m = m.next {
			if seen[m] {
				t.Fatalf("message %q reached twice", m.id)
			}
			seen[m] = true
			walk(m.child)
		}
	}
	walk(root)
	return seen
}

func TestThreadEmptyInput(t *testing.T) {
	if got := thread(t); got != nil {
		t.Fatalf("empty input: got %v, want nil", got)
	}
	if got := threading.NewThreader().Thread(nil); got != nil {
		t.Fatalf("nil input: got %v, want nil", got)
	}
}

func TestThreadAllDummies(t *testing.T) {
	d1 := &msg{id: "<d1>", subj: "x", dummy: true}
	d2 := &msg{id: "<d2>", subj: "y", dummy: true}
	if got := thread(t, d1, d2); got != nil {
		t.Fatalf("all-dummy input: got %v, want nil", got)
	}
}

func TestThreadChain(t *testing.T) {
	m1 := newMsg("<1>", "Meeting tomorrow")
	m2 := newMsg("<2>", "Re: Meeting tomorrow", "<1>")
	m3 := newMsg("<3>", "Re: Meeting tomorrow", "<1>", "<2>")

	root := thread(t, m1, m2, m3)
	if root != m1 {
		t.Fatalf("root = %v, want m1", root)
	}
	if got := shape(root); got != "<1>(<2>(<3>))" {
		t.Fatalf("shape = %q", got)
	}
	if m1.next != nil || m3.child != nil {
		t.Fatalf("chain ends not terminated: m1.next=%v m3.child=%v", m1.next, m3.child)
	}
	collect(t, root)
}

func TestThreadNoReferences(t *testing.T) {
	m1 := newMsg("<1>", "alpha")
	m2 := newMsg("<2>", "beta")
	m3 := newMsg("<3>", "gamma")

	root := thread(t, m1, m2, m3)
	if got := shape(root); got != "<1> <2> <3>" {
		t.Fatalf("shape = %q", got)
	}
	if len(collect(t, root)) != 3 {
		t.Fatalf("forest lost a message")
	}
}

func TestThreadMissingAncestorPromoted(t *testing.T) {
	m1 := newMsg("<1>", "Question", "<missing>")

	root := thread(t, m1)
	if root != m1 {
		t.Fatalf("root = %v, want m1 promoted", root)
	}
	if m1.child != nil || m1.next != nil {
		t.Fatalf("m1 should be a bare root, got shape %q", shape(root))
	}
}

func TestThreadPlaceholderChainCollapses(t *testing.T) {
	m1 := newMsg("<1>", "deep", "<gone1>", "<gone2>")

	root := thread(t, m1)
	if got := shape(root); got != "<1>" {
		t.Fatalf("shape = %q", got)
	}
}

func TestThreadSharedMissingAncestorSynthesized(t *testing.T) {
	m1 := newMsg("<1>", "Topic A", "<missing>")
	m2 := newMsg("<2>", "Topic B", "<missing>")

	root := thread(t, m1, m2)
	if root == nil || !root.dummy {
		t.Fatalf("want synthesized dummy root, got %q", shape(root))
	}
	if got := shape(root); got != "dummy[Topic A](<1> <2>)" {
		t.Fatalf("shape = %q", got)
	}
	collect(t, root)
}

func TestThreadPartialReferenceChains(t *testing.T) {
	m1 := newMsg("<1>", "Start", "<gone>")
	m2 := newMsg("<2>", "Re: Start", "<gone>", "<1>")

	root := thread(t, m1, m2)
	if got := shape(root); got != "<1>(<2>)" {
		t.Fatalf("shape = %q", got)
	}
}

func TestThreadSiblingOrderPreserved(t *testing.T) {
	m1 := newMsg("<1>", "Root")
	r1 := newMsg("<r1>", "Re: Root", "<1>")
	r2 := newMsg("<r2>", "Re: Root", "<1>")
	r3 := newMsg("<r3>", "Re: Root", "<1>")

	root := thread(t, m1, r1, r2, r3)
	if got := shape(root); got != "<1>(<r1> <r2> <r3>)" {
		t.Fatalf("shape = %q", got)
	}
}

func TestThreadForwardReference(t *testing.T) {
	// The reply arrives before its parent.
	m2 := newMsg("<2>", "Re: Hi", "<1>")
	m1 := newMsg("<1>", "Hi")

	root := thread(t, m2, m1)
	if root != m1 {
		t.Fatalf("root = %v, want m1", root)
	}
	if got := shape(root); got != "<1>(<2>)" {
		t.Fatalf("shape = %q", got)
	}
}

func TestThreadSubjectMerge(t *testing.T) {
	m1 := newMsg("<1>", "Status")
	m2 := newMsg("<2>", "Re: Status")

	root := thread(t, m1, m2)
	if root != m1 {
		t.Fatalf("root = %v, want m1", root)
	}
	if m1.child != m2 {
		t.Fatalf("m1.child = %v, want m2; shape %q", m1.child, shape(root))
	}
	if m1.next != nil {
		t.Fatalf("merge left an extra root: %q", shape(root))
	}
}

func TestThreadSubjectMergeTwoRealRoots(t *testing.T) {
	// Two non-reply articles with the same subject and no references get
	// a synthesized parent; the later arrival files first.
	m1 := newMsg("<1>", "Topic")
	m2 := newMsg("<2>", "Topic")

	root := thread(t, m1, m2)
	if got := shape(root); got != "dummy[Topic](<2> <1>)" {
		t.Fatalf("shape = %q", got)
	}
	collect(t, root)
}

func TestThreadSubjectMergeIntoPlaceholderRoot(t *testing.T) {
	m1 := newMsg("<1>", "Re: Topic", "<m>")
	m2 := newMsg("<2>", "Re: Topic", "<m>")
	m3 := newMsg("<3>", "Topic")

	root := thread(t, m1, m2, m3)
	if got := shape(root); got != "dummy[Topic](<3> <1> <2>)" {
		t.Fatalf("shape = %q", got)
	}
	collect(t, root)
}

func TestThreadNoSubjectFold(t *testing.T) {
	// With folding off, same-subject roots stay independent and reply
	// subjects link nothing; only references matter.
	m1 := newMsg("<1>", "Topic")
	m2 := newMsg("<2>", "Topic")
	m3 := newMsg("<3>", "Re: Topic")
	m4 := newMsg("<4>", "Re: Topic", "<1>")

	in := []threading.Threadable{m1, m2, m3, m4}
	th := threading.NewThreader()
	th.NoSubjectFold = true
	root := castMsg(th.Thread(in))

	if got := shape(root); got != "<1>(<4>) <2> <3>" {
		t.Fatalf("shape = %q", got)
	}
	collect(t, root)
}

func TestThreadCycleSafety(t *testing.T) {
	a := newMsg("<a>", "alpha", "<b>")
	b := newMsg("<b>", "beta", "<a>")

	root := thread(t, a, b)
	if got := shape(root); got != "<b>(<a>)" {
		t.Fatalf("shape = %q", got)
	}
	if len(collect(t, root)) != 2 {
		t.Fatalf("cycle dropped a message")
	}
}

func TestThreadSelfReference(t *testing.T) {
	m := newMsg("<1>", "me", "<1>")

	root := thread(t, m)
	if root != m || m.child != nil || m.next != nil {
		t.Fatalf("self-reference: shape %q", shape(root))
	}
}

func TestThreadDuplicateIDs(t *testing.T) {
	m1 := newMsg("<x>", "one")
	m2 := newMsg("<x>", "two")

	root := thread(t, m1, m2)
	seen := collect(t, root)
	if !seen[m1] || !seen[m2] {
		t.Fatalf("duplicate id dropped a message: shape %q", shape(root))
	}
	if len(seen) != 2 {
		t.Fatalf("reachable = %d, want 2", len(seen))
	}
}

func TestThreadSubjectlessNeverMerged(t *testing.T) {
	m1 := newMsg("<1>", "")
	m2 := newMsg("<2>", "")
	m3 := newMsg("<3>", "(no subject)")

	root := thread(t, m1, m2, m3)
	if got := shape(root); got != "<1> <2> <3>" {
		t.Fatalf("blank subjects must stay independent, shape = %q", got)
	}
}

func TestThreadDeterministic(t *testing.T) {
	build := func() []*msg {
		return []*msg{
			newMsg("<1>", "Meeting"),
			newMsg("<2>", "Re: Meeting", "<1>"),
			newMsg("<3>", "Lunch", "<gone>"),
			newMsg("<4>", "Re: Lunch", "<gone>"),
			newMsg("<5>", "Status"),
			newMsg("<6>", "Re: Status"),
			newMsg("<7>", "Meeting"),
		}
	}

	want := shape(thread(t, build()...))
	for i := 0; i < 10; i++ {
		if got := shape(thread(t, build()...)); got != want {
			t.Fatalf("run %d: shape %q, want %q", i, got, want)
		}
	}
}

func TestThreaderReuse(t *testing.T) {
	th := threading.NewThreader()

	m1 := newMsg("<1>", "first")
	if got := th.Thread([]threading.Threadable{m1}); got != m1 {
		t.Fatalf("first call: got %v", got)
	}

	m2 := newMsg("<2>", "second")
	if got := th.Thread([]threading.Threadable{m2}); got != m2 {
		t.Fatalf("second call: got %v", got)
	}
}
