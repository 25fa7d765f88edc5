package domain

// WeightPolicy scales each player's summed cell weights in the heuristic score.
type WeightPolicy interface {
	Factor(p Cell) int
}

// SymmetricPolicy weighs both players with factor 1.
type SymmetricPolicy struct{}

func (SymmetricPolicy) Factor(Cell) int { return 1 }

// FactorPolicy uses a fixed factor per player.
type FactorPolicy struct {
	X int
	O int
}

func (p FactorPolicy) Factor(c Cell) int {
	switch c {
	case X:
		return p.X
	case O:
		return p.O
	default:
		return 0
	}
}
