package search

import (
	"math/rand"
	"testing"

	"github.com/jaminalder/codex-kinarow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchOnEmptyNodeReturnsNoMove(t *testing.T) {
	root := NewTree(board(t, 3, [2]int{0, 0}))
	illegal := root.SubTree(domain.Coord{Row: 0, Col: 0})

	assert.Equal(t, NoMove, illegal.OptimalMove(3, NewTable(0)))
	assert.Equal(t, NoMove, illegal.OptimalMoveAlphaBeta(3, -Infinity, Infinity))

	var missing *Tree
	assert.Equal(t, NoMove, missing.OptimalMove(3, nil))
}

func TestSearchLeafReturnsBoardScore(t *testing.T) {
	b := board(t, 3, [2]int{1, 1})
	got := NewTree(b).OptimalMove(0, NewTable(0))
	assert.True(t, got.Legal)
	assert.Equal(t, b.Score(), got.Score)

	won := board(t, 3, [2]int{0, 0}, [2]int{1, 0}, [2]int{0, 1}, [2]int{1, 1}, [2]int{0, 2})
	got = NewTree(won).OptimalMoveAlphaBeta(5, -Infinity, Infinity)
	assert.True(t, got.Legal)
	assert.Equal(t, domain.WinScore, got.Score)
}

func TestCenterOpeningIsDraw(t *testing.T) {
	b := board(t, 3, [2]int{1, 1})

	memo := NewTree(b).OptimalMove(9, NewTable(0))
	require.True(t, memo.Legal)
	assert.Equal(t, 0, memo.Score)

	ab := NewTree(b).OptimalMoveAlphaBeta(9, -Infinity, Infinity)
	require.True(t, ab.Legal)
	assert.Equal(t, 0, ab.Score)
}

func TestEmptyBoardIsDraw(t *testing.T) {
	b := board(t, 3)
	assert.Equal(t, 0, NewTree(b).OptimalMove(9, NewTable(0)).Score)
	assert.Equal(t, 0, NewTree(b).OptimalMoveAlphaBeta(9, -Infinity, Infinity).Score)
}

func TestTakesImmediateWin(t *testing.T) {
	b := board(t, 3, [2]int{0, 0}, [2]int{1, 0}, [2]int{0, 1}, [2]int{1, 1})
	want := Move{Score: domain.WinScore, Coord: domain.Coord{Row: 0, Col: 2}, Legal: true}

	assert.Equal(t, want, NewTree(b).OptimalMove(1, NewTable(0)))
	assert.Equal(t, want, NewTree(b).OptimalMoveAlphaBeta(1, -Infinity, Infinity))
}

func TestMinimizerBlocks(t *testing.T) {
	// X threatens the top row; O must take (0,2).
	b := board(t, 3, [2]int{0, 0}, [2]int{2, 2}, [2]int{0, 1})
	got := NewTree(b).OptimalMove(9, NewTable(0))
	require.True(t, got.Legal)
	assert.Equal(t, domain.Coord{Row: 0, Col: 2}, got.Coord)
	assert.Less(t, got.Score, domain.WinScore)
}

func TestTieKeepsFirstCoordinate(t *testing.T) {
	// Uniform weights at depth 1: every X move scores the same.
	got := NewTree(board(t, 3)).OptimalMove(1, nil)
	assert.Equal(t, Move{Score: 1, Coord: domain.Coord{}, Legal: true}, got)
}

func TestFullBoardThroughSearchKeepsLeafScore(t *testing.T) {
	b := board(t, 3,
		[2]int{0, 0}, [2]int{0, 1}, [2]int{0, 2},
		[2]int{1, 1}, [2]int{1, 0}, [2]int{1, 2},
		[2]int{2, 1}, [2]int{2, 0}, [2]int{2, 2},
	)
	got := NewTree(b).OptimalMove(4, NewTable(0))
	assert.True(t, got.Legal)
	assert.Equal(t, b.Score(), got.Score)
}

func randomPosition(t *testing.T, rng *rand.Rand, n, moves int) domain.Board {
	t.Helper()
	for {
		b := board(t, n)
		for b.Moves() < moves {
			b.Play(domain.Coord{Row: rng.Intn(n), Col: rng.Intn(n)})
		}
		if !b.IsFinished() {
			return b
		}
	}
}

func TestPruningAndMemoizationKeepScore(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	cases := []struct {
		n, moves, maxDepth int
	}{
		{3, 2, 8},
		{3, 3, 7},
		{3, 5, 5},
		{4, 10, 6},
	}
	weights := [][]int{{3, 2, 3}, {2, 4, 2}, {3, 2, 3}}
	for _, tc := range cases {
		for trial := 0; trial < 8; trial++ {
			b := randomPosition(t, rng, tc.n, tc.moves)
			if tc.n == 3 && trial%2 == 1 {
				wb, err := domain.NewBoard(weights)
				require.NoError(t, err)
				replay(t, &wb, b)
				b = wb
			}
			for depth := 1; depth <= tc.maxDepth; depth++ {
				plain := NewTree(b).Search(depth, -Infinity, Infinity, Options{})
				memo := NewTree(b).OptimalMove(depth, NewTable(0))
				ab := NewTree(b).OptimalMoveAlphaBeta(depth, -Infinity, Infinity)
				both := NewTree(b).Search(depth, -Infinity, Infinity, Options{Prune: true, Memoize: true, Table: NewTable(0)})

				assert.Equal(t, plain, memo, "memo n=%d depth=%d\n%s", tc.n, depth, b)
				assert.Equal(t, plain.Score, ab.Score, "alpha-beta n=%d depth=%d\n%s", tc.n, depth, b)
				assert.Equal(t, plain.Score, both.Score, "prune+memo n=%d depth=%d\n%s", tc.n, depth, b)
			}
		}
	}
}

// replay plays src's X and O cells onto dst in alternating order.
func replay(t *testing.T, dst *domain.Board, src domain.Board) {
	t.Helper()
	n := src.Size()
	var xs, os []domain.Coord
	for i, c := range src.Cells() {
		switch c {
		case domain.X:
			xs = append(xs, domain.Coord{Row: i / n, Col: i % n})
		case domain.O:
			os = append(os, domain.Coord{Row: i / n, Col: i % n})
		}
	}
	for i := range xs {
		require.True(t, dst.Play(xs[i]))
		if i < len(os) {
			require.True(t, dst.Play(os[i]))
		}
	}
	require.Equal(t, src.ID(), dst.ID())
}

func TestPruningDoesLessWork(t *testing.T) {
	b := board(t, 3, [2]int{1, 1})
	var plain, pruned Stats
	p := NewTree(b).Search(8, -Infinity, Infinity, Options{Stats: &plain})
	q := NewTree(b).Search(8, -Infinity, Infinity, Options{Prune: true, Stats: &pruned})

	assert.Equal(t, p.Score, q.Score)
	assert.Less(t, pruned.Nodes, plain.Nodes)
	assert.Positive(t, pruned.Cutoffs)
	assert.Zero(t, plain.Cutoffs)
}

func TestMemoizationHitsTable(t *testing.T) {
	b := board(t, 3, [2]int{1, 1})
	table := NewTable(0)
	var stats Stats
	first := NewTree(b).Search(8, -Infinity, Infinity, Options{Memoize: true, Table: table, Stats: &stats})
	assert.Positive(t, stats.TableHits)
	assert.Positive(t, table.Len())

	d, ok := table.Depth(b.ID())
	require.True(t, ok)
	assert.Equal(t, 8, d)

	// a second search from a fresh tree is answered from the table at the root
	var again Stats
	second := NewTree(b).Search(8, -Infinity, Infinity, Options{Memoize: true, Table: table, Stats: &again})
	assert.Equal(t, first, second)
	assert.Equal(t, 1, again.Nodes)
	assert.Equal(t, 1, again.TableHits)
}

func TestShallowRequestUsesDeeperEntry(t *testing.T) {
	b := board(t, 3, [2]int{1, 1})
	table := NewTable(0)
	deep := NewTree(b).OptimalMove(8, table)
	shallow := NewTree(b).OptimalMove(2, table)
	assert.Equal(t, deep, shallow)
}
