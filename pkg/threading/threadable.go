// Package threading rebuilds conversation trees from flat article sets.
// Articles carry a message id, an ordered list of ancestor ids and a
// subject line; the threader links them into parent/child/sibling forests,
// inferring ancestors that were never delivered and folding together
// conversations that are only related by subject.
package threading

// Threadable is the capability contract an article type must satisfy to be
// threaded. The engine reads identity, references and subject state; the two
// structural setters are written exactly once, during read-back, and must
// not be called by anything else while a Thread call is in flight.
type Threadable interface {
	// IsDummy reports whether this is a synthesized placeholder rather
	// than a delivered article. Dummies in the input are skipped.
	IsDummy() bool

	// MakeDummy returns a new placeholder article modeled on the
	// receiver. The engine calls it on the first child of an inferred
	// ancestor so the final forest has a real node at every root.
	MakeDummy() Threadable

	// ID returns the unique message id. Collisions are tolerated; the
	// engine renames duplicates internally.
	ID() string

	// References returns ancestor ids, oldest first. Ids that never
	// appear as delivered articles are fine.
	References() []string

	// SetChild records the first reply. nil clears it.
	SetChild(Threadable)

	// SetNext records the next sibling at the same level. nil clears it.
	SetNext(Threadable)

	// SimplifiedSubject returns the subject with reply markers stripped,
	// per SimplifySubject. Must be a pure function of the subject text.
	SimplifiedSubject() string

	// SubjectIsReply reports whether the raw subject carried a reply
	// marker. Must agree with SimplifiedSubject.
	SubjectIsReply() bool
}
