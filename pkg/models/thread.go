package models

// ThreadNode is the JSON rendering of one node in a threaded conversation.
// Dummy nodes stand in for ancestors that were never delivered; they have
// no number or message id.
type ThreadNode struct {
	Number    int64         `json:"number,omitempty"`
	MessageID string        `json:"message_id,omitempty"`
	Subject   string        `json:"subject"`
	From      string        `json:"from,omitempty"`
	Date      string        `json:"date,omitempty"`
	Dummy     bool          `json:"dummy,omitempty"`
	Children  []*ThreadNode `json:"children,omitempty"`
}

// BuildForest renders a threaded article chain (the first root returned by
// the engine plus its next links) into ThreadNode trees, one per
// independent conversation.
func BuildForest(root *Article) []*ThreadNode {
	var out []*ThreadNode
	for a := root; a != nil; a = a.Next() {
		out = append(out, buildNode(a))
	}
	return out
}

func buildNode(a *Article) *ThreadNode {
	n := &ThreadNode{
		Number:    a.Number,
		MessageID: a.MessageID,
		Subject:   a.Subject,
		From:      a.From,
		Date:      a.Date,
		Dummy:     a.Dummy,
	}
	for kid := a.Child(); kid != nil; kid = kid.Next() {
		n.Children = append(n.Children, buildNode(kid))
	}
	return n
}

// CountNodes returns the number of nodes across a rendered forest,
// dummies included.
func CountNodes(forest []*ThreadNode) int {
	total := 0
	for _, n := range forest {
		total += 1 + CountNodes(n.Children)
	}
	return total
}
