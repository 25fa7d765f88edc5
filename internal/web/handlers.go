package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jaminalder/codex-kinarow/internal/app"
	"github.com/jaminalder/codex-kinarow/internal/domain"
)

type handlers struct {
	svc *app.Service
	tpl *templates
}

func (h *handlers) renderBoard(gs app.GameState, errMsg string) []byte {
	return renderTemplate(h.tpl.board, "", newBoardData(gs, errMsg))
}

func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(renderTemplate(h.tpl.index, "", nil))
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	opts, err := gameOptions(r.Form.Get("ai"), r.Form.Get("depth"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	gs, err := h.svc.CreateGame(opts)
	if err != nil {
		http.Error(w, "failed to create", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/game/"+gs.ID, http.StatusSeeOther)
}

func gameOptions(ai, depth string) (app.GameOptions, error) {
	var opts app.GameOptions
	switch strings.ToUpper(ai) {
	case "":
	case "X":
		opts.AI = domain.X
	case "O":
		opts.AI = domain.O
	default:
		return opts, fmt.Errorf("unknown ai side %q", ai)
	}
	if depth != "" {
		d, err := strconv.Atoi(depth)
		if err != nil || d < 1 {
			return opts, fmt.Errorf("bad depth %q", depth)
		}
		opts.Depth = d
	}
	return opts, nil
}

func (h *handlers) view(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	// ensure cookie and auto-claim seat
	pid := ensurePlayerCookie(w, r)
	_, _, _ = h.svc.Join(id, pid)

	gs, ok := h.svc.Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	// Render page with embedded board container
	_, _ = w.Write(renderTemplate(h.tpl.game, "", newBoardData(*gs, "")))
}

func (h *handlers) join(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pid := ensurePlayerCookie(w, r)
	_, gs, err := h.svc.Join(id, pid)
	if err != nil || gs == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(h.renderBoard(*gs, ""))
}

func (h *handlers) play(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pid := ensurePlayerCookie(w, r)
	_ = r.ParseForm()
	ri, errR := strconv.Atoi(r.Form.Get("r"))
	ci, errC := strconv.Atoi(r.Form.Get("c"))
	var gs *app.GameState
	err := errors.Join(errR, errC)
	if err == nil {
		gs, err = h.svc.Play(id, pid, ri, ci)
	}
	var errMsg string
	if err != nil {
		if gs == nil {
			if g, ok := h.svc.Get(id); ok {
				gs = g
			}
		}
		errMsg = moveErrorText(err)
	}
	if gs == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(h.renderBoard(*gs, errMsg))
}

func moveErrorText(err error) string {
	switch {
	case errors.Is(err, app.ErrNotYourTurn):
		return "Not your turn"
	case errors.Is(err, app.ErrNotAPlayer):
		return "You are a spectator"
	case errors.Is(err, domain.ErrOccupied):
		return "Cell is occupied"
	case errors.Is(err, domain.ErrOutOfBounds):
		return "Out of bounds"
	case errors.Is(err, domain.ErrGameOver):
		return "Game is over"
	default:
		return "Invalid move"
	}
}

var heartbeatInterval = 15 * time.Second

func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.svc.Get(id); !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	// In tests or non-EventSource requests, just acknowledge headers and return
	if r.Header.Get("Accept") != "text/event-stream" {
		w.WriteHeader(http.StatusOK)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}
	ctx := r.Context()
	ch, unsub := h.svc.Subscribe(ctx, id)
	defer unsub()
	// heartbeat ticker
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	// Initial flush of headers
	flusher.Flush()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = io.WriteString(w, ": ping\n\n")
			flusher.Flush()
		case gs, ok := <-ch:
			if !ok {
				return
			}
			writeEvent(w, "board", h.renderBoard(gs, ""))
			flusher.Flush()
		}
	}
}

// writeEvent emits one SSE event; every payload line gets its own data field.
func writeEvent(w io.Writer, name string, payload []byte) {
	_, _ = fmt.Fprintf(w, "event: %s\n", name)
	for _, line := range strings.Split(strings.TrimSpace(string(payload)), "\n") {
		_, _ = fmt.Fprintf(w, "data: %s\n", line)
	}
	_, _ = io.WriteString(w, "\n")
}
