package threading

import "strconv"

// Threader assembles a flat batch of articles into conversation trees. It
// is a one-shot transform: no I/O, no goroutines, and no state shared
// between calls except the duplicate-id counter. Independent batches may be
// threaded concurrently with separate Threaders; one batch's articles must
// not be handed to two Threaders at once, since read-back writes their
// link fields unsynchronized.
type Threader struct {
	// NoSubjectFold skips the subject-grouping pass over the root set,
	// leaving only reference-based linking. Folding is on by default.
	NoSubjectFold bool

	idTable map[string]*container
	order   []*container // idTable insertion order, for reproducible output
	bogus   int
	root    *container
}

// NewThreader returns a Threader ready for a Thread call.
func NewThreader() *Threader {
	return &Threader{}
}

// Thread links articles into one or more conversation trees and returns the
// first root. Walk the root's next chain for further independent
// conversations and each node's child chain for replies. Sibling order
// follows the order articles arrived in the input.
//
// Dummy articles in the input are skipped entirely. Thread returns nil when
// the input is empty or holds only dummies.
//
// Thread mutates the child and next links of every non-dummy input article,
// and may introduce freshly made dummy roots for inferred ancestors that
// were never delivered but have two or more surviving children. A panic
// from Thread means the forest invariants were broken mid-build; that is a
// bug here, and the partially written articles should be discarded rather
// than re-threaded.
func (t *Threader) Thread(articles []Threadable) Threadable {
	t.idTable = make(map[string]*container)
	t.order = nil

	for _, a := range articles {
		if !a.IsDummy() {
			t.buildContainer(a)
		}
	}
	if len(t.order) == 0 {
		return nil
	}

	t.root = t.findRootSet()
	t.idTable = nil
	t.order = nil

	t.pruneEmpty(t.root)
	t.root.reverseChildren()
	if !t.NoSubjectFold {
		t.gatherSubjects()
	}

	if t.root.next != nil {
		panic("threading: synthetic root gained a sibling")
	}

	// Inferred ancestors still standing in the root set become real
	// articles now, modeled on their first child.
	for c := t.root.child; c != nil; c = c.next {
		if c.article == nil {
			c.article = c.child.article.MakeDummy()
		}
	}

	var first Threadable
	if t.root.child != nil {
		first = t.root.child.article
	}
	t.root.flush()
	t.root = nil
	return first
}

// buildContainer indexes one article and weaves its reference chain into
// the forest. References to ids that have not arrived yet leave placeholder
// containers behind for a later article to fill in.
func (t *Threader) buildContainer(a Threadable) {
	id := a.ID()
	c := t.idTable[id]

	if c != nil {
		if c.article != nil {
			// Duplicate id. Rename this arrival rather than dropping
			// either article.
			id = "bogus-" + strconv.Itoa(t.bogus)
			t.bogus++
			c = nil
		} else {
			// A placeholder created by a forward reference; claim it.
			c.article = a
		}
	}
	if c == nil {
		c = &container{article: a}
		t.idTable[id] = c
		t.order = append(t.order, c)
	}

	// Chain the references together in the order given. Each ancestor is
	// linked under its predecessor unless it already has a parent or the
	// edge would make the predecessor its own ancestor.
	var parentRef *container
	for _, refID := range a.References() {
		ref := t.idTable[refID]
		if ref == nil {
			ref = &container{}
			t.idTable[refID] = ref
			t.order = append(t.order, ref)
		}
		if parentRef != nil && ref.parent == nil && ref != parentRef && !ref.hasDescendant(parentRef) {
			ref.parent = parentRef
			ref.next = parentRef.child
			parentRef.child = ref
		}
		parentRef = ref
	}

	// The last reference is the candidate parent for this article.
	// Discard it if adopting it would close a loop.
	if parentRef != nil && (parentRef == c || c.hasDescendant(parentRef)) {
		parentRef = nil
	}

	// Any parent assigned before now was a guess inferred from another
	// article's reference list. This article's own references override it.
	if c.parent != nil {
		c.unlink()
	}
	if parentRef != nil {
		c.parent = parentRef
		c.next = parentRef.child
		parentRef.child = c
	}
}

// findRootSet chains every parentless container under a synthetic root.
// The walk follows idTable insertion order rather than map order so output
// is reproducible across runs; front-insertion here is undone by the
// reversal pass.
func (t *Threader) findRootSet() *container {
	root := &container{}
	for _, c := range t.order {
		if c.parent == nil {
			if c.next != nil {
				panic("threading: parentless container has a sibling")
			}
			c.next = root.child
			root.child = c
		}
	}
	return root
}

// pruneEmpty walks parent's child list depth-first, deleting childless
// placeholders and splicing out the rest. A placeholder below the root, or
// one with a single child, always gives its place to its children; a
// root-level placeholder with two or more children stays to hold the
// conversation together until dummy synthesis.
func (t *Threader) pruneEmpty(parent *container) {
	var prev *container
	c := parent.child
	var next *container
	if c != nil {
		next = c.next
	}
	for c != nil {
		if c.article == nil && c.child == nil {
			if prev == nil {
				parent.child = c.next
			} else {
				prev.next = c.next
			}
			c = prev
		} else if c.article == nil && (c.parent != nil || c.child.next == nil) {
			// Promote the children into this container's position and
			// reprocess them from here.
			kids := c.child
			if prev == nil {
				parent.child = kids
			} else {
				prev.next = kids
			}
			tail := kids
			for ; tail.next != nil; tail = tail.next {
				tail.parent = c.parent
			}
			tail.parent = c.parent
			tail.next = c.next
			next = kids
			c = prev
		} else if c.child != nil {
			t.pruneEmpty(c)
		}

		prev = c
		c = next
		if c != nil {
			next = c.next
		} else {
			next = nil
		}
	}
}

// representativeSubject is the simplified subject a root container is filed
// under: its own article's, or its first child's when the root is a
// placeholder.
func representativeSubject(c *container) string {
	a := c.article
	if a == nil {
		a = c.child.article
	}
	return a.SimplifiedSubject()
}

// gatherSubjects folds together root-set conversations that share a
// simplified subject even though no reference connects them.
func (t *Threader) gatherSubjects() {
	count := 0
	for c := t.root.child; c != nil; c = c.next {
		count++
	}
	subjectTable := make(map[string]*container, count)

	// Pick the most interesting container per subject: a placeholder
	// beats a real article, a non-reply beats a reply, and otherwise the
	// first one seen stays.
	count = 0
	for c := t.root.child; c != nil; c = c.next {
		subj := representativeSubject(c)
		if subj == "" {
			continue
		}
		old := subjectTable[subj]
		if old == nil ||
			(c.article == nil && old.article != nil) ||
			(old.article != nil && old.article.SubjectIsReply() &&
				c.article != nil && !c.article.SubjectIsReply()) {
			subjectTable[subj] = c
			count++
		}
	}
	if count == 0 {
		return
	}

	// Second pass over the now-stable root list: whoever maps to a
	// different table entry is pulled out of the root set and merged into
	// that entry.
	var prev *container
	c := t.root.child
	var rest *container
	if c != nil {
		rest = c.next
	}
	for c != nil {
		subj := representativeSubject(c)
		if subj != "" {
			if old := subjectTable[subj]; old != c {
				if prev == nil {
					t.root.child = c.next
				} else {
					prev.next = c.next
				}
				c.next = nil

				if old.article == nil && c.article == nil {
					// Two placeholders: push c's children onto the
					// end of old's child list.
					tail := old.child
					for tail != nil && tail.next != nil {
						tail = tail.next
					}
					if tail != nil {
						tail.next = c.child
					}
					for kid := c.child; kid != nil; kid = kid.next {
						kid.parent = old
					}
					c.child = nil
				} else if old.article == nil ||
					(c.article != nil && c.article.SubjectIsReply() && !old.article.SubjectIsReply()) {
					// old is a placeholder, or c is the reply side:
					// c files under old.
					c.parent = old
					c.next = old.child
					old.child = c
				} else {
					// Two real articles. old turns into a placeholder
					// over both, keeping its slot in the root list and
					// in the subject table.
					moved := &container{article: old.article, child: old.child, parent: old}
					for kid := moved.child; kid != nil; kid = kid.next {
						kid.parent = moved
					}
					old.article = nil
					c.parent = old
					old.child = c
					c.next = moved
				}

				// prev must stay where it is after a merge.
				c = prev
			}
		}

		prev = c
		c = rest
		if c != nil {
			rest = c.next
		} else {
			rest = nil
		}
	}
}
