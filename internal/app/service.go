package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jaminalder/codex-kinarow/internal/config"
	"github.com/jaminalder/codex-kinarow/internal/domain"
	"github.com/jaminalder/codex-kinarow/internal/search"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Errors exposed by the service layer.
var (
	ErrNotFound    = errors.New("game not found")
	ErrNotYourTurn = errors.New("not your turn")
	ErrNotAPlayer  = errors.New("not a player")
	ErrNoLegalMove = errors.New("no legal move")
)

// AIPlayer is the seat id taken by the engine.
const AIPlayer = "ai"

// GameState is the in-memory state tracked per game.
type GameState struct {
	ID      string
	Board   domain.Board
	X       string
	O       string
	AI      domain.Cell
	Depth   int
	Prune   bool
	LastAI  *search.Move
	Stats   search.TableStats
	Created time.Time
	Updated time.Time
}

// Over reports whether the game has finished.
func (gs GameState) Over() bool { return gs.Board.IsFinished() }

// Winner returns the winning side, Empty for a draw or an open game.
func (gs GameState) Winner() domain.Cell { return gs.Board.Winner() }

// GameOptions configures a new game. Zero values fall back to the config.
type GameOptions struct {
	AI    domain.Cell
	Depth int
	Prune *bool
}

type session struct {
	state   GameState
	start   domain.Board
	table   *search.Table
	memoize bool
}

type subscriber struct {
	ch        chan GameState
	closeOnce sync.Once
}

func (s *subscriber) close() { s.closeOnce.Do(func() { close(s.ch) }) }

// Service manages games, their engines and subscribers.
type Service struct {
	mu    sync.Mutex
	cfg   *config.Store
	games map[string]*session
	subs  map[string]map[*subscriber]struct{}
}

// NewService creates a service; a nil store uses config.Default().
func NewService(cfg *config.Store) *Service {
	if cfg == nil {
		cfg = config.NewStore(config.Default())
	}
	return &Service{
		cfg:   cfg,
		games: make(map[string]*session),
		subs:  make(map[string]map[*subscriber]struct{}),
	}
}

// CreateGame creates and registers a new game. When the engine plays X it
// moves immediately.
func (s *Service) CreateGame(opts GameOptions) (*GameState, error) {
	cfg := s.cfg.Get()
	b, err := cfg.NewBoard()
	if err != nil {
		return nil, errors.Wrap(err, "create game")
	}
	depth := cfg.AiDepth
	if opts.Depth > 0 {
		depth = opts.Depth
	}
	prune := cfg.AiPrune
	if opts.Prune != nil {
		prune = *opts.Prune
	}
	now := time.Now()
	sess := &session{
		state: GameState{
			ID:      uuid.NewString(),
			Board:   b,
			AI:      opts.AI,
			Depth:   depth,
			Prune:   prune,
			Created: now,
			Updated: now,
		},
		start:   b,
		table:   search.NewTable(cfg.TableSize),
		memoize: cfg.AiMemoize,
	}
	switch opts.AI {
	case domain.X:
		sess.state.X = AIPlayer
	case domain.O:
		sess.state.O = AIPlayer
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[sess.state.ID] = sess
	if opts.AI == domain.X {
		s.replyLocked(sess)
	}
	log.Info().Str("game", sess.state.ID).Int("size", b.Size()).Stringer("ai", opts.AI).Int("depth", depth).Msg("game-created")
	cp := sess.state
	return &cp, nil
}

// Get returns a copy of the game state if present.
func (s *Service) Get(id string) (*GameState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.games[id]
	if !ok {
		return nil, false
	}
	cp := sess.state
	return &cp, true
}

// Join assigns a seat to the player if available; returns Empty for spectators.
func (s *Service) Join(id, playerID string) (domain.Cell, *GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.games[id]
	if !ok {
		return domain.Empty, nil, ErrNotFound
	}
	gs := &sess.state
	side := domain.Empty
	switch {
	case playerID == AIPlayer:
	case gs.X == "" || gs.X == playerID:
		gs.X = playerID
		side = domain.X
	case gs.O == "" || gs.O == playerID:
		gs.O = playerID
		side = domain.O
	}
	gs.Updated = time.Now()
	cp := *gs
	return side, &cp, nil
}

// Play validates seat and turn, applies a move, lets the engine reply and
// broadcasts the result.
func (s *Service) Play(id, playerID string, r, c int) (*GameState, error) {
	s.mu.Lock()
	sess, ok := s.games[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	gs := &sess.state
	// Validate player is seated
	seat := domain.Empty
	switch {
	case playerID == AIPlayer:
	case gs.X == playerID:
		seat = domain.X
	case gs.O == playerID:
		seat = domain.O
	}
	if seat == domain.Empty {
		s.mu.Unlock()
		return nil, ErrNotAPlayer
	}
	if seat != gs.Board.Turn() {
		s.mu.Unlock()
		return nil, ErrNotYourTurn
	}
	if err := gs.Board.TryPlay(domain.Coord{Row: r, Col: c}); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	gs.Updated = time.Now()
	log.Debug().Str("game", id).Int("row", r).Int("col", c).Stringer("side", seat).Msg("move-played")
	s.replyLocked(sess)
	cp := *gs
	s.broadcastLocked(id, cp)
	s.mu.Unlock()
	return &cp, nil
}

// Suggest computes the optimal move for the side to move without playing it.
// depth <= 0 uses the game's depth; deeper requests are capped at it since
// the search holds the service lock.
func (s *Service) Suggest(id string, depth int, prune bool) (search.Move, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.games[id]
	if !ok {
		return search.NoMove, ErrNotFound
	}
	if sess.state.Board.IsFinished() {
		return search.NoMove, ErrNoLegalMove
	}
	if depth <= 0 || depth > sess.state.Depth {
		depth = sess.state.Depth
	}
	m := s.searchLocked(sess, depth, prune)
	sess.state.Stats = sess.table.Stats()
	if !m.Legal {
		return search.NoMove, ErrNoLegalMove
	}
	return m, nil
}

// Reset restarts the game from an empty board and clears its table.
func (s *Service) Reset(id string) (*GameState, error) {
	s.mu.Lock()
	sess, ok := s.games[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	sess.state.Board = sess.start
	sess.state.LastAI = nil
	sess.table.Clear()
	sess.state.Stats = sess.table.Stats()
	sess.state.Updated = time.Now()
	if sess.state.AI == domain.X {
		s.replyLocked(sess)
	}
	log.Info().Str("game", id).Msg("game-reset")
	cp := sess.state
	s.broadcastLocked(id, cp)
	s.mu.Unlock()
	return &cp, nil
}

// replyLocked plays the engine's move when it is the engine's turn.
func (s *Service) replyLocked(sess *session) {
	gs := &sess.state
	if gs.AI == domain.Empty || gs.Board.Turn() != gs.AI || gs.Board.IsFinished() {
		return
	}
	m := s.searchLocked(sess, gs.Depth, gs.Prune)
	if !m.Legal || !gs.Board.Play(m.Coord) {
		log.Warn().Str("game", gs.ID).Msg("engine-found-no-move")
		return
	}
	gs.LastAI = &m
	gs.Stats = sess.table.Stats()
	gs.Updated = time.Now()
}

func (s *Service) searchLocked(sess *session, depth int, prune bool) search.Move {
	var stats search.Stats
	opt := search.Options{
		Prune:   prune,
		Memoize: sess.memoize,
		Table:   sess.table,
		Stats:   &stats,
	}
	start := time.Now()
	m := search.NewTree(sess.state.Board).Search(depth, -search.Infinity, search.Infinity, opt)
	log.Debug().
		Str("game", sess.state.ID).
		Int("depth", depth).
		Bool("prune", prune).
		Int("score", m.Score).
		Int("row", m.Coord.Row).
		Int("col", m.Coord.Col).
		Int("nodes", stats.Nodes).
		Int("cutoffs", stats.Cutoffs).
		Int("table-hits", stats.TableHits).
		Dur("took", time.Since(start)).
		Msg("search-done")
	return m
}

// Subscribe registers a subscriber for a game. Returns a channel and an unsubscribe func.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan GameState, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.subs[id]
	if set == nil {
		set = make(map[*subscriber]struct{})
		s.subs[id] = set
	}
	sub := &subscriber{ch: make(chan GameState, 1)}
	set[sub] = struct{}{}

	done := make(chan struct{})
	unsubOnce := &sync.Once{}
	unsub := func() {
		unsubOnce.Do(func() {
			close(done)
			s.mu.Lock()
			defer s.mu.Unlock()
			if set, ok := s.subs[id]; ok {
				delete(set, sub)
			}
			sub.close()
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			unsub()
		case <-done:
		}
	}()
	return sub.ch, unsub
}

// broadcastLocked fans out without blocking; slow subscribers are closed
// and dropped.
func (s *Service) broadcastLocked(id string, gs GameState) {
	for sub := range s.subs[id] {
		select {
		case sub.ch <- gs:
		default:
			sub.close()
			delete(s.subs[id], sub)
		}
	}
}
