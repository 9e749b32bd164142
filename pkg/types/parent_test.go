package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParentRef(t *testing.T) {
	tests := []struct {
		name      string
		ref       ParentRef
		wantRoot  bool
		wantID    int64
		hasID     bool
		wantTitle string
		byTitle   bool
		wantStr   string
	}{
		{name: "no parent", ref: NoParent, wantRoot: true, wantStr: "root"},
		{name: "by id", ref: ParentID(7), wantID: 7, hasID: true, wantStr: "#7"},
		{name: "by id zero", ref: ParentID(0), wantID: 0, hasID: true, wantStr: "#0"},
		{name: "by title", ref: ParentTitle("A"), wantTitle: "A", byTitle: true, wantStr: `"A"`},
		{name: "by empty title", ref: ParentTitle(""), byTitle: true, wantStr: `""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantRoot, tt.ref.IsRoot())
			id, ok := tt.ref.ID()
			assert.Equal(t, tt.hasID, ok)
			assert.Equal(t, tt.wantID, id)
			title, ok := tt.ref.Title()
			assert.Equal(t, tt.byTitle, ok)
			assert.Equal(t, tt.wantTitle, title)
			assert.Equal(t, tt.wantStr, tt.ref.String())
		})
	}
}

func TestErrorHierarchy(t *testing.T) {
	assert.ErrorIs(t, ErrNodeNotFound, ErrNotFound)
	assert.ErrorIs(t, ErrParentNotFound, ErrNotFound)
	assert.ErrorIs(t, ErrTitleNotFound, ErrNotFound)
	assert.ErrorIs(t, ErrNotDetached, ErrInvariantViolation)
	assert.ErrorIs(t, ErrCycle, ErrInvariantViolation)
	assert.NotErrorIs(t, ErrCycle, ErrNotFound)
}

func TestSelfRow(t *testing.T) {
	assert.Equal(t, PathEntry{Ancestor: 3, Descendant: 3, Depth: 0}, SelfRow(3))
}
