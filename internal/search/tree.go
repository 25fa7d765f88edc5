// Package search finds optimal moves with depth-bounded minimax over a lazily
// grown game tree, with optional alpha-beta pruning and a transposition table.
package search

import "github.com/jaminalder/codex-kinarow/internal/domain"

// Tree is one node of the game tree. A node either holds a board or is empty,
// meaning unexplored or reached by an illegal move. Children are owned by
// value, one slot per coordinate in row-major order, allocated on first use.
//
// Nodes are never copied or shared: the same position reached by different
// move orders lives in different nodes.
type Tree struct {
	board    domain.Board
	ok       bool
	children []Tree
}

// NewTree returns a root node holding a copy of b.
func NewTree(b domain.Board) *Tree {
	return &Tree{board: b, ok: true}
}

// Empty reports whether the node holds no board. A nil tree is empty.
func (t *Tree) Empty() bool { return t == nil || !t.ok }

// Board returns a copy of the node's board.
func (t *Tree) Board() (domain.Board, bool) {
	if t.Empty() {
		return domain.Board{}, false
	}
	return t.board, true
}

// SubTree returns the child reached by playing c. The slot is built on first
// call and left empty when c is occupied. It returns nil for an empty node
// or an off-board coordinate, which has no slot.
func (t *Tree) SubTree(c domain.Coord) *Tree {
	if t.Empty() {
		return nil
	}
	n := t.board.Size()
	if !c.In(n) {
		return nil
	}
	if t.children == nil {
		t.children = make([]Tree, n*n)
	}
	slot := &t.children[c.Row*n+c.Col]
	next := t.board
	if !next.Play(c) {
		*slot = Tree{}
		return slot
	}
	if !slot.ok {
		slot.board = next
		slot.ok = true
	}
	return slot
}

// Explored counts the materialized nodes in the subtree, t included.
func (t *Tree) Explored() int {
	if t.Empty() {
		return 0
	}
	k := 1
	for i := range t.children {
		k += t.children[i].Explored()
	}
	return k
}
