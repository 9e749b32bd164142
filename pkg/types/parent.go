package types

import "strconv"

// ParentRef names the parent of a node being added: nothing (a new root), a
// node id, or a title resolved with a first-match lookup.
type ParentRef struct {
	id      int64
	title   string
	hasID   bool
	byTitle bool
}

// NoParent adds the node as a new root.
var NoParent = ParentRef{}

// ParentID refers to the parent by identifier.
func ParentID(id int64) ParentRef {
	return ParentRef{id: id, hasID: true}
}

// ParentTitle refers to the parent by title. When several nodes share the
// title, whichever the store returns first is used.
func ParentTitle(title string) ParentRef {
	return ParentRef{title: title, byTitle: true}
}

// IsRoot reports whether the reference asks for a new root.
func (p ParentRef) IsRoot() bool {
	return !p.hasID && !p.byTitle
}

// ID returns the parent identifier and whether one was given.
func (p ParentRef) ID() (int64, bool) {
	return p.id, p.hasID
}

// Title returns the parent title and whether the reference is by title.
func (p ParentRef) Title() (string, bool) {
	return p.title, p.byTitle
}

func (p ParentRef) String() string {
	switch {
	case p.hasID:
		return "#" + strconv.FormatInt(p.id, 10)
	case p.byTitle:
		return strconv.Quote(p.title)
	default:
		return "root"
	}
}
