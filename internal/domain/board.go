package domain

import (
	"errors"
	"math"
	"strings"
)

// Cell represents a board cell state.
type Cell uint8

const (
	Empty Cell = iota
	X
	O
)

// Opponent returns the other player; Empty maps to Empty.
func (c Cell) Opponent() Cell {
	switch c {
	case X:
		return O
	case O:
		return X
	default:
		return Empty
	}
}

func (c Cell) String() string {
	switch c {
	case X:
		return "X"
	case O:
		return "O"
	default:
		return "."
	}
}

// Coord identifies a cell by row and column.
type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// In reports whether c lies on an n×n board.
func (c Coord) In(n int) bool {
	return c.Row >= 0 && c.Row < n && c.Col >= 0 && c.Col < n
}

const (
	// MaxSize is the largest supported side; 3^36 still fits a uint64 id.
	MaxSize = 6
	// WinScore is returned for X's completed line, -WinScore for O's.
	WinScore = 1_000_000
)

// Errors returned by domain operations.
var (
	ErrOutOfBounds     = errors.New("out of bounds")
	ErrOccupied        = errors.New("cell occupied")
	ErrGameOver        = errors.New("game over")
	ErrBadWeights      = errors.New("weights must be a square grid of side 1..6")
	ErrWeightsTooLarge = errors.New("weights can reach the win score")
)

// Board is one game position. It holds only arrays, so assignment copies it.
type Board struct {
	n       int
	cells   [MaxSize * MaxSize]Cell
	weights [MaxSize * MaxSize]int
	turn    Cell
	id      uint64
	policy  WeightPolicy
}

// BoardOption customizes NewBoard.
type BoardOption func(*Board)

// WithWeightPolicy replaces the symmetric per-player weight factor.
func WithWeightPolicy(p WeightPolicy) BoardOption {
	return func(b *Board) {
		if p != nil {
			b.policy = p
		}
	}
}

// NewBoard returns an empty board scored with the given weight grid, X to move.
func NewBoard(weights [][]int, opts ...BoardOption) (Board, error) {
	n := len(weights)
	if n < 1 || n > MaxSize {
		return Board{}, ErrBadWeights
	}
	b := Board{n: n, turn: X, policy: SymmetricPolicy{}}
	for _, opt := range opts {
		opt(&b)
	}
	// Cells and factors are bounded by WinScore first so the int64 product
	// below cannot overflow.
	var total int64
	for r, row := range weights {
		if len(row) != n {
			return Board{}, ErrBadWeights
		}
		for c, w := range row {
			aw := abs64(w)
			if aw > WinScore {
				return Board{}, ErrWeightsTooLarge
			}
			b.weights[r*n+c] = w
			total += aw
		}
	}
	f := max(abs64(b.Policy().Factor(X)), abs64(b.Policy().Factor(O)))
	if f > WinScore || total*f >= WinScore {
		return Board{}, ErrWeightsTooLarge
	}
	return b, nil
}

// UniformWeights returns an n×n grid filled with w.
func UniformWeights(n, w int) [][]int {
	grid := make([][]int, n)
	for r := range grid {
		grid[r] = make([]int, n)
		for c := range grid[r] {
			grid[r][c] = w
		}
	}
	return grid
}

// Size returns the side length N.
func (b *Board) Size() int { return b.n }

// Turn returns the player to move.
func (b *Board) Turn() Cell { return b.turn }

// ID returns the canonical base-3 encoding of the cells.
func (b *Board) ID() uint64 { return b.id }

// Moves returns the number of occupied cells.
func (b *Board) Moves() int { return b.n*b.n - b.empties() }

// At returns the content of c, Empty when out of bounds.
func (b *Board) At(c Coord) Cell {
	if !c.In(b.n) {
		return Empty
	}
	return b.cells[c.Row*b.n+c.Col]
}

// Weight returns the heuristic weight of c, 0 when out of bounds.
func (b *Board) Weight(c Coord) int {
	if !c.In(b.n) {
		return 0
	}
	return b.weights[c.Row*b.n+c.Col]
}

// Weights returns a copy of the weight grid.
func (b *Board) Weights() [][]int {
	grid := make([][]int, b.n)
	for r := range grid {
		grid[r] = append([]int(nil), b.weights[r*b.n:(r+1)*b.n]...)
	}
	return grid
}

// Cells returns the cells in row-major order.
func (b *Board) Cells() []Cell {
	return append([]Cell(nil), b.cells[:b.n*b.n]...)
}

// Policy returns the weight policy the board scores with.
func (b *Board) Policy() WeightPolicy {
	if b.policy == nil {
		return SymmetricPolicy{}
	}
	return b.policy
}

func (b *Board) empties() int {
	var k int
	for _, c := range b.cells[:b.n*b.n] {
		if c == Empty {
			k++
		}
	}
	return k
}

// IsFull reports whether no cell is empty.
func (b *Board) IsFull() bool { return b.empties() == 0 }

// Winner returns the owner of a completed row, column or diagonal, or Empty.
func (b *Board) Winner() Cell {
	n := b.n
	if n == 0 {
		return Empty
	}
	line := func(start, step int) Cell {
		first := b.cells[start]
		if first == Empty {
			return Empty
		}
		for k := 1; k < n; k++ {
			if b.cells[start+k*step] != first {
				return Empty
			}
		}
		return first
	}
	for i := 0; i < n; i++ {
		if w := line(i*n, 1); w != Empty {
			return w
		}
		if w := line(i, n); w != Empty {
			return w
		}
	}
	if w := line(0, n+1); w != Empty {
		return w
	}
	return line(n-1, n-1)
}

// Score returns ±WinScore for a completed line, 0 for a drawn full board,
// else the weighted material difference.
func (b *Board) Score() int {
	switch b.Winner() {
	case X:
		return WinScore
	case O:
		return -WinScore
	}
	if b.IsFull() {
		return 0
	}
	var xs, os int
	for i, c := range b.cells[:b.n*b.n] {
		switch c {
		case X:
			xs += b.weights[i]
		case O:
			os += b.weights[i]
		}
	}
	p := b.Policy()
	return xs*p.Factor(X) - os*p.Factor(O)
}

// IsFinished reports whether a line is complete or the board is full.
func (b *Board) IsFinished() bool {
	return b.Winner() != Empty || b.IsFull()
}

// Play places the mover's mark at c. It returns false and leaves the board
// untouched when c is off the board or occupied.
func (b *Board) Play(c Coord) bool {
	if !c.In(b.n) || b.cells[c.Row*b.n+c.Col] != Empty {
		return false
	}
	b.cells[c.Row*b.n+c.Col] = b.turn
	b.turn = b.turn.Opponent()
	b.id = encode(b.cells[:b.n*b.n])
	return true
}

// TryPlay is Play for drivers: it also refuses moves on a finished board and
// says why a move was rejected.
func (b *Board) TryPlay(c Coord) error {
	if b.IsFinished() {
		return ErrGameOver
	}
	if !c.In(b.n) {
		return ErrOutOfBounds
	}
	if !b.Play(c) {
		return ErrOccupied
	}
	return nil
}

// encode computes the base-3 id, digit i weighted by 3^i.
func encode(cells []Cell) uint64 {
	var id, place uint64 = 0, 1
	for _, c := range cells {
		id += uint64(c) * place
		place *= 3
	}
	return id
}

// DecodeID expands an id back into n*n row-major cells.
func DecodeID(id uint64, n int) []Cell {
	cells := make([]Cell, n*n)
	for i := range cells {
		cells[i] = Cell(id % 3)
		id /= 3
	}
	return cells
}

func (b Board) String() string {
	var sb strings.Builder
	for r := 0; r < b.n; r++ {
		for c := 0; c < b.n; c++ {
			sb.WriteString(b.cells[r*b.n+c].String())
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// abs64 widens before negating so math.MinInt has a positive magnitude.
func abs64(v int) int64 {
	w := int64(v)
	if w < 0 {
		if w == math.MinInt64 {
			return math.MaxInt64
		}
		return -w
	}
	return w
}
