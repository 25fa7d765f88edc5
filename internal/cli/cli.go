// Package cli runs a game against the engine in a terminal.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jaminalder/codex-kinarow/internal/domain"
	"github.com/jaminalder/codex-kinarow/internal/search"
	"github.com/muesli/termenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Options configures a terminal game.
type Options struct {
	Board   domain.Board
	AI      domain.Cell // Empty for two humans
	Depth   int
	Prune   bool
	Memoize bool
	Table   *search.Table
	Output  *termenv.Output // nil writes plain text
}

// Run reads moves from in until the game ends, the input is exhausted or
// the user quits.
func Run(ctx context.Context, in io.Reader, out io.Writer, opts Options) error {
	o := opts.Output
	if o == nil {
		o = termenv.NewOutput(out, termenv.WithProfile(termenv.Ascii))
	}
	if opts.Table == nil {
		opts.Table = search.NewTable(0)
	}
	b := opts.Board
	sc := bufio.NewScanner(in)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(out, Render(o, b))
		if b.IsFinished() {
			fmt.Fprintln(out, result(b))
			return nil
		}
		if b.Turn() == opts.AI {
			m := best(b, opts)
			if !m.Legal || !b.Play(m.Coord) {
				return errors.New("engine found no move")
			}
			fmt.Fprintf(out, "engine plays %d %d (score %d)\n", m.Coord.Row, m.Coord.Col, m.Score)
			continue
		}

		fmt.Fprintf(out, "%s> ", b.Turn())
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return errors.Wrap(err, "read move")
			}
			return nil
		}
		line := strings.TrimSpace(sc.Text())
		switch line {
		case "":
			continue
		case "quit", "q":
			return nil
		case "hint", "h":
			m := best(b, opts)
			if m.Legal {
				fmt.Fprintf(out, "hint: %d %d (score %d)\n", m.Coord.Row, m.Coord.Col, m.Score)
			}
			continue
		}
		c, err := parseCoord(line)
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}
		if err := b.TryPlay(c); err != nil {
			fmt.Fprintln(out, err)
		}
	}
}

func best(b domain.Board, opts Options) search.Move {
	var stats search.Stats
	m := search.NewTree(b).Search(opts.Depth, -search.Infinity, search.Infinity, search.Options{
		Prune:   opts.Prune,
		Memoize: opts.Memoize,
		Table:   opts.Table,
		Stats:   &stats,
	})
	log.Debug().Int("depth", opts.Depth).Int("score", m.Score).Int("nodes", stats.Nodes).Int("cutoffs", stats.Cutoffs).Msg("search-done")
	return m
}

func parseCoord(s string) (domain.Coord, error) {
	f := strings.Fields(s)
	if len(f) != 2 {
		return domain.Coord{}, errors.Errorf("want \"row col\", got %q", s)
	}
	r, err := strconv.Atoi(f[0])
	if err != nil {
		return domain.Coord{}, errors.Wrap(err, "row")
	}
	c, err := strconv.Atoi(f[1])
	if err != nil {
		return domain.Coord{}, errors.Wrap(err, "col")
	}
	return domain.Coord{Row: r, Col: c}, nil
}

func result(b domain.Board) string {
	if w := b.Winner(); w != domain.Empty {
		return w.String() + " wins"
	}
	return "draw"
}

// Render draws the board with row and column indices.
func Render(o *termenv.Output, b domain.Board) string {
	n := b.Size()
	var sb strings.Builder
	sb.WriteString("  ")
	for c := 0; c < n; c++ {
		sb.WriteString(" " + strconv.Itoa(c))
	}
	sb.WriteByte('\n')
	for r := 0; r < n; r++ {
		sb.WriteString(strconv.Itoa(r) + " ")
		for c := 0; c < n; c++ {
			sb.WriteByte(' ')
			sb.WriteString(styled(o, b.At(domain.Coord{Row: r, Col: c})))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func styled(o *termenv.Output, c domain.Cell) string {
	s := o.String(c.String())
	switch c {
	case domain.X:
		s = s.Foreground(o.Color("1")).Bold()
	case domain.O:
		s = s.Foreground(o.Color("4")).Bold()
	default:
		s = s.Faint()
	}
	return s.String()
}
