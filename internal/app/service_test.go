package app

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/jaminalder/codex-kinarow/internal/config"
	"github.com/jaminalder/codex-kinarow/internal/domain"
	"github.com/jaminalder/codex-kinarow/internal/search"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(config.NewStore(config.Default()))
}

func TestCreateAndGet(t *testing.T) {
	s := newTestService(t)
	gs, err := s.CreateGame(GameOptions{})
	if err != nil {
		t.Fatalf("CreateGame error: %v", err)
	}
	if gs.ID == "" {
		t.Fatalf("expected non-empty game ID")
	}
	if gs.Board.Turn() != domain.X {
		t.Fatalf("expected initial turn X")
	}
	if gs.Depth != 9 {
		t.Fatalf("expected default depth 9, got %d", gs.Depth)
	}
	if gs.Created.IsZero() || gs.Updated.IsZero() {
		t.Fatalf("expected timestamps to be set")
	}
	got, ok := s.Get(gs.ID)
	if !ok || got.ID != gs.ID {
		t.Fatalf("Get should find created game")
	}
}

func TestJoinSeatsAndRejoin(t *testing.T) {
	s := newTestService(t)
	gs, _ := s.CreateGame(GameOptions{})
	p1, p2, p3 := "p1", "p2", "p3"

	side, _, err := s.Join(gs.ID, p1)
	if err != nil || side != domain.X {
		t.Fatalf("p1 should claim X, got %v, err=%v", side, err)
	}
	side, _, err = s.Join(gs.ID, p2)
	if err != nil || side != domain.O {
		t.Fatalf("p2 should claim O, got %v, err=%v", side, err)
	}
	side, _, err = s.Join(gs.ID, p1)
	if err != nil || side != domain.X {
		t.Fatalf("p1 rejoin should keep X, got %v, err=%v", side, err)
	}
	side, _, err = s.Join(gs.ID, p3)
	if err != nil || side != domain.Empty {
		t.Fatalf("p3 should spectate (Empty), got %v, err=%v", side, err)
	}
	if _, _, err := s.Join("nope", p1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAISeatIsReserved(t *testing.T) {
	s := newTestService(t)
	gs, _ := s.CreateGame(GameOptions{AI: domain.O})
	if gs.O != AIPlayer {
		t.Fatalf("expected engine on O, got %q", gs.O)
	}
	side, _, _ := s.Join(gs.ID, AIPlayer)
	if side != domain.Empty {
		t.Fatalf("nobody may join as the engine, got %v", side)
	}
	side, _, _ = s.Join(gs.ID, "p1")
	if side != domain.X {
		t.Fatalf("p1 should take the free X seat, got %v", side)
	}
	side, _, _ = s.Join(gs.ID, "p2")
	if side != domain.Empty {
		t.Fatalf("p2 should spectate, got %v", side)
	}
}

func TestPlayEnforcesTurnAndSpectatorBlocked(t *testing.T) {
	s := newTestService(t)
	gs, _ := s.CreateGame(GameOptions{})
	p1, p2, p3 := "p1", "p2", "p3"
	s.Join(gs.ID, p1) // X
	s.Join(gs.ID, p2) // O
	s.Join(gs.ID, p3) // spectator

	// O cannot play first
	if _, err := s.Play(gs.ID, p2, 0, 0); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("expected ErrNotYourTurn, got %v", err)
	}
	// spectator cannot play
	if _, err := s.Play(gs.ID, p3, 0, 0); !errors.Is(err, ErrNotAPlayer) {
		t.Fatalf("expected ErrNotAPlayer, got %v", err)
	}
	// X plays
	st, err := s.Play(gs.ID, p1, 0, 0)
	if err != nil {
		t.Fatalf("X play failed: %v", err)
	}
	if st.Board.At(domain.Coord{}) != domain.X || st.Board.Turn() != domain.O || st.Board.Moves() != 1 {
		t.Fatalf("unexpected state after X move: turn=%v moves=%d", st.Board.Turn(), st.Board.Moves())
	}
	// X cannot play again
	if _, err := s.Play(gs.ID, p1, 1, 1); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("expected ErrNotYourTurn for X again, got %v", err)
	}
	if _, err := s.Play(gs.ID, p2, 0, 0); !errors.Is(err, domain.ErrOccupied) {
		t.Fatalf("expected ErrOccupied, got %v", err)
	}
	if _, err := s.Play(gs.ID, p2, 3, 0); !errors.Is(err, domain.ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
}

func TestEngineRepliesAfterHumanMove(t *testing.T) {
	s := newTestService(t)
	gs, _ := s.CreateGame(GameOptions{AI: domain.O})
	s.Join(gs.ID, "p1")

	st, err := s.Play(gs.ID, "p1", 1, 1)
	if err != nil {
		t.Fatalf("play failed: %v", err)
	}
	if st.Board.Moves() != 2 || st.Board.Turn() != domain.X {
		t.Fatalf("expected engine reply, moves=%d turn=%v", st.Board.Moves(), st.Board.Turn())
	}
	if st.LastAI == nil || !st.LastAI.Legal {
		t.Fatalf("expected engine move recorded")
	}
	if st.Board.At(st.LastAI.Coord) != domain.O {
		t.Fatalf("engine move %v not on board", st.LastAI.Coord)
	}
	if st.Stats.Entries == 0 {
		t.Fatalf("expected table entries after engine search")
	}
}

func TestEngineOpensAsX(t *testing.T) {
	s := newTestService(t)
	gs, _ := s.CreateGame(GameOptions{AI: domain.X, Depth: 2})
	if gs.Board.Moves() != 1 || gs.Board.Turn() != domain.O {
		t.Fatalf("expected engine to open, moves=%d", gs.Board.Moves())
	}
}

func TestEngineNeverLosesFromCenter(t *testing.T) {
	s := newTestService(t)
	gs, _ := s.CreateGame(GameOptions{AI: domain.O})
	s.Join(gs.ID, "p1")
	st, _ := s.Play(gs.ID, "p1", 1, 1)
	// the human keeps taking the first free cell
	for !st.Over() {
		var next domain.Coord
		for i, c := range st.Board.Cells() {
			if c == domain.Empty {
				next = domain.Coord{Row: i / 3, Col: i % 3}
				break
			}
		}
		var err error
		st, err = s.Play(gs.ID, "p1", next.Row, next.Col)
		if err != nil {
			t.Fatalf("play %v failed: %v", next, err)
		}
	}
	if st.Winner() == domain.X {
		t.Fatalf("engine lost:\n%s", st.Board)
	}
}

func TestSuggestMatchesAcrossPruning(t *testing.T) {
	s := newTestService(t)
	gs, _ := s.CreateGame(GameOptions{})
	s.Join(gs.ID, "p1")
	s.Join(gs.ID, "p2")
	s.Play(gs.ID, "p1", 1, 1)

	memo, err := s.Suggest(gs.ID, 9, false)
	if err != nil {
		t.Fatalf("suggest failed: %v", err)
	}
	pruned, err := s.Suggest(gs.ID, 9, true)
	if err != nil {
		t.Fatalf("suggest failed: %v", err)
	}
	if memo.Score != 0 || pruned.Score != 0 {
		t.Fatalf("expected draw scores, got %d and %d", memo.Score, pruned.Score)
	}
	latest, _ := s.Get(gs.ID)
	if latest.Board.Moves() != 1 {
		t.Fatalf("suggest must not play, moves=%d", latest.Board.Moves())
	}
}

func TestSuggestDepthCappedAtGameDepth(t *testing.T) {
	s := newTestService(t)
	gs, _ := s.CreateGame(GameOptions{Depth: 1})

	// A full-depth search would find the draw (0); one ply sees only the
	// first cell's weight.
	m, err := s.Suggest(gs.ID, 9, false)
	if err != nil {
		t.Fatalf("suggest failed: %v", err)
	}
	want := search.Move{Score: 1, Coord: domain.Coord{}, Legal: true}
	if m != want {
		t.Fatalf("expected depth-1 move %+v, got %+v", want, m)
	}
}

func TestSuggestOnFinishedGame(t *testing.T) {
	s := newTestService(t)
	gs, _ := s.CreateGame(GameOptions{})
	s.Join(gs.ID, "p1")
	s.Join(gs.ID, "p2")
	for i, m := range [][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}, {0, 2}} {
		p := "p1"
		if i%2 == 1 {
			p = "p2"
		}
		if _, err := s.Play(gs.ID, p, m[0], m[1]); err != nil {
			t.Fatalf("move %d: %v", i, err)
		}
	}
	if _, err := s.Suggest(gs.ID, 0, false); !errors.Is(err, ErrNoLegalMove) {
		t.Fatalf("expected ErrNoLegalMove, got %v", err)
	}
	if _, err := s.Play(gs.ID, "p2", 2, 2); !errors.Is(err, domain.ErrGameOver) {
		t.Fatalf("expected ErrGameOver, got %v", err)
	}
	if _, err := s.Suggest("nope", 0, false); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResetClearsBoardAndTable(t *testing.T) {
	s := newTestService(t)
	gs, _ := s.CreateGame(GameOptions{AI: domain.O})
	s.Join(gs.ID, "p1")
	if _, err := s.Play(gs.ID, "p1", 0, 0); err != nil {
		t.Fatalf("play failed: %v", err)
	}
	st, err := s.Reset(gs.ID)
	if err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if st.Board.Moves() != 0 || st.LastAI != nil {
		t.Fatalf("expected empty board after reset")
	}
	if st.Stats != (search.TableStats{}) {
		t.Fatalf("expected cleared table, got %+v", st.Stats)
	}
	if st.X != "p1" {
		t.Fatalf("reset should keep seats")
	}
}

func TestSubscribeAndBroadcast(t *testing.T) {
	s := newTestService(t)
	gs, _ := s.CreateGame(GameOptions{})
	p1, p2 := "p1", "p2"
	s.Join(gs.ID, p1)
	s.Join(gs.ID, p2)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*2)
	defer cancel()
	ch, unsub := s.Subscribe(ctx, gs.ID)
	defer unsub()

	// Trigger an update: X plays
	if _, err := s.Play(gs.ID, p1, 0, 0); err != nil {
		t.Fatalf("play failed: %v", err)
	}

	select {
	case st, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed unexpectedly")
		}
		if st.Board.Moves() != 1 {
			t.Fatalf("unexpected broadcast state: moves=%d", st.Board.Moves())
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for broadcast")
	}
}

func TestDropSlowSubscriber(t *testing.T) {
	s := newTestService(t)
	gs, _ := s.CreateGame(GameOptions{})
	p1, p2 := "p1", "p2"
	s.Join(gs.ID, p1)
	s.Join(gs.ID, p2)

	// Slow subscriber: never read
	ctxSlow, cancelSlow := context.WithCancel(context.Background())
	defer cancelSlow()
	slowCh, _ := s.Subscribe(ctxSlow, gs.ID)

	if _, err := s.Play(gs.ID, p1, 0, 0); err != nil {
		t.Fatalf("play1: %v", err)
	}
	if _, err := s.Play(gs.ID, p2, 1, 1); err != nil {
		t.Fatalf("play2: %v", err)
	}

	// the first state is buffered, then the channel is closed
	if _, ok := <-slowCh; !ok {
		t.Fatalf("expected buffered state before close")
	}
	if _, ok := <-slowCh; ok {
		t.Fatalf("expected slow subscriber to be dropped")
	}
}

func TestUnsubscribeReleasesWatcher(t *testing.T) {
	s := newTestService(t)
	gs, _ := s.CreateGame(GameOptions{})

	base := runtime.NumGoroutine()
	for i := 0; i < 100; i++ {
		_, unsub := s.Subscribe(context.Background(), gs.ID)
		unsub()
	}
	deadline := time.Now().Add(2 * time.Second)
	for runtime.NumGoroutine() > base+5 {
		if time.Now().After(deadline) {
			t.Fatalf("watchers still running: %d goroutines, started with %d", runtime.NumGoroutine(), base)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
