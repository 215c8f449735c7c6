package threading

// container is an internal forest node wrapping at most one article. A nil
// article marks a placeholder: an ancestor that was referenced but never
// delivered. Containers exist only for the duration of a Thread call; their
// structure is copied onto the articles during read-back and then dropped.
//
// A container with a parent appears exactly once in that parent's child
// list; linking always unlinks first.
type container struct {
	article Threadable
	parent  *container
	child   *container
	next    *container
}

// hasDescendant reports whether target appears anywhere in the subtree
// below c. Used as the cycle guard before every new parent/child edge.
func (c *container) hasDescendant(target *container) bool {
	for kid := c.child; kid != nil; kid = kid.next {
		if kid == target || kid.hasDescendant(target) {
			return true
		}
	}
	return false
}

// unlink removes c from its parent's child list and clears its parent and
// next pointers. Panics if c is not actually in the list: that means the
// forest is corrupt, which is a defect in the threader, not bad input.
func (c *container) unlink() {
	var prev *container
	rest := c.parent.child
	for ; rest != nil; prev, rest = rest, rest.next {
		if rest == c {
			break
		}
	}
	if rest == nil {
		panic("threading: container missing from its parent's child list")
	}
	if prev == nil {
		c.parent.child = c.next
	} else {
		prev.next = c.next
	}
	c.next = nil
	c.parent = nil
}

// reverseChildren reverses the sibling order at every level below c.
// Construction builds child lists by front-insertion, so one reversal at
// the end restores the original arrival order.
func (c *container) reverseChildren() {
	if c.child == nil {
		return
	}
	var prev *container
	kid := c.child
	rest := kid.next
	for kid != nil {
		kid.next = prev
		prev, kid = kid, rest
		if rest != nil {
			rest = rest.next
		}
	}
	c.child = prev

	for kid := c.child; kid != nil; kid = kid.next {
		kid.reverseChildren()
	}
}

// flush copies the container structure onto the articles' own child and
// next links, tearing the containers apart as it goes. Siblings are walked
// iteratively so a wide root set cannot exhaust the stack; recursion is per
// level of reply depth only.
func (c *container) flush() {
	for n := c; n != nil; {
		if n.parent != nil && n.article == nil {
			panic("threading: placeholder survived below the root set")
		}
		n.parent = nil

		if n.article != nil {
			if n.child != nil {
				n.article.SetChild(n.child.article)
			} else {
				n.article.SetChild(nil)
			}
		}
		if n.child != nil {
			n.child.flush()
			n.child = nil
		}
		if n.article != nil {
			if n.next != nil {
				n.article.SetNext(n.next.article)
			} else {
				n.article.SetNext(nil)
			}
		}

		next := n.next
		n.next = nil
		n = next
	}
}
