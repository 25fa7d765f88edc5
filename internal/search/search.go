package search

import (
	"math"

	"github.com/jaminalder/codex-kinarow/internal/domain"
)

// Infinity bounds the alpha-beta window; every score lies strictly inside.
const Infinity = math.MaxInt

// Move is a search result. The zero value, NoMove, means there is no legal
// move or nothing was computed; check Legal before trusting Coord.
type Move struct {
	Score int          `json:"score"`
	Coord domain.Coord `json:"coord"`
	Legal bool         `json:"legal"`
}

// NoMove is the explicit "no legal move" result.
var NoMove = Move{}

// Stats counts the work done by a search.
type Stats struct {
	Nodes     int `json:"nodes"`
	Cutoffs   int `json:"cutoffs"`
	TableHits int `json:"table_hits"`
}

// Options selects pruning and memoization independently.
//
// With both enabled, only results whose subtree saw no cutoff are stored.
type Options struct {
	Prune   bool
	Memoize bool
	Table   *Table
	Stats   *Stats
}

// OptimalMove runs memoized minimax. A nil table disables memoization.
func (t *Tree) OptimalMove(depth int, table *Table) Move {
	return t.Search(depth, -Infinity, Infinity, Options{Memoize: table != nil, Table: table})
}

// OptimalMoveAlphaBeta runs minimax with alpha-beta pruning and no table.
// The canonical call passes -Infinity, Infinity.
func (t *Tree) OptimalMoveAlphaBeta(depth, alpha, beta int) Move {
	return t.Search(depth, alpha, beta, Options{Prune: true})
}

// Search returns the best move for the side to move within depth plies.
// X maximizes, O minimizes; ties keep the first coordinate in row-major order.
// At depth 0 or on a finished board it returns the board score with a
// placeholder coordinate.
func (t *Tree) Search(depth, alpha, beta int, opt Options) Move {
	if opt.Memoize && opt.Table == nil {
		opt.Memoize = false
	}
	m, _ := t.search(depth, alpha, beta, &opt)
	return m
}

// search also reports whether the result is an exact value rather than a
// bound produced by a cutoff somewhere below.
func (t *Tree) search(depth, alpha, beta int, opt *Options) (Move, bool) {
	if t.Empty() {
		return NoMove, true
	}
	if opt.Stats != nil {
		opt.Stats.Nodes++
	}
	b := &t.board
	if depth <= 0 || b.IsFinished() {
		return Move{Score: b.Score(), Legal: true}, true
	}
	if opt.Memoize {
		if m := opt.Table.Lookup(b.ID(), depth); m.Legal {
			if opt.Stats != nil {
				opt.Stats.TableHits++
			}
			return m, true
		}
	}

	maximizing := b.Turn() == domain.X
	bestScore := Infinity
	if maximizing {
		bestScore = -Infinity
	}
	best := NoMove
	exact := true
	n := b.Size()

scan:
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			coord := domain.Coord{Row: r, Col: c}
			child := t.SubTree(coord)
			if child.Empty() {
				continue
			}
			m, childExact := child.search(depth-1, alpha, beta, opt)
			if !m.Legal {
				continue
			}
			exact = exact && childExact
			if (maximizing && m.Score > bestScore) || (!maximizing && m.Score < bestScore) {
				bestScore = m.Score
				best = Move{Score: m.Score, Coord: coord, Legal: true}
			}
			if !opt.Prune {
				continue
			}
			if maximizing {
				if bestScore > beta {
					opt.cut()
					exact = false
					break scan
				}
				alpha = max(alpha, bestScore)
			} else {
				if bestScore < alpha {
					opt.cut()
					exact = false
					break scan
				}
				beta = min(beta, bestScore)
			}
		}
	}

	if opt.Memoize && exact && best.Legal {
		opt.Table.Update(b.ID(), depth, best)
	}
	return best, exact
}

func (o *Options) cut() {
	if o.Stats != nil {
		o.Stats.Cutoffs++
	}
}
