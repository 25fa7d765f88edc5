package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jaminalder/codex-kinarow/internal/app"
	"github.com/jaminalder/codex-kinarow/internal/domain"
	"github.com/jaminalder/codex-kinarow/internal/search"
	"github.com/rs/zerolog/hlog"
)

type stateDTO struct {
	ID      string            `json:"id"`
	Size    int               `json:"size"`
	Board   [][]string        `json:"board"`
	Weights [][]int           `json:"weights"`
	Turn    string            `json:"turn"`
	Winner  string            `json:"winner,omitempty"`
	Over    bool              `json:"over"`
	Score   int               `json:"score"`
	BoardID uint64            `json:"board_id"`
	X       string            `json:"x,omitempty"`
	O       string            `json:"o,omitempty"`
	AI      string            `json:"ai,omitempty"`
	Depth   int               `json:"depth"`
	LastAI  *search.Move      `json:"last_ai,omitempty"`
	Table   search.TableStats `json:"table"`
}

func side(c domain.Cell) string {
	if c == domain.Empty {
		return ""
	}
	return c.String()
}

func toDTO(gs app.GameState) stateDTO {
	n := gs.Board.Size()
	cells := gs.Board.Cells()
	rows := make([][]string, n)
	for r := range rows {
		rows[r] = make([]string, n)
		for c := range rows[r] {
			rows[r][c] = side(cells[r*n+c])
		}
	}
	return stateDTO{
		ID:      gs.ID,
		Size:    n,
		Board:   rows,
		Weights: gs.Board.Weights(),
		Turn:    side(gs.Board.Turn()),
		Winner:  side(gs.Winner()),
		Over:    gs.Over(),
		Score:   gs.Board.Score(),
		BoardID: gs.Board.ID(),
		X:       gs.X,
		O:       gs.O,
		AI:      side(gs.AI),
		Depth:   gs.Depth,
		LastAI:  gs.LastAI,
		Table:   gs.Stats,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, app.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, app.ErrNoLegalMove):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *handlers) apiGet(w http.ResponseWriter, r *http.Request) {
	gs, ok := h.svc.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, app.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toDTO(*gs))
}

func (h *handlers) apiSuggest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	q := r.URL.Query()
	depth := 0
	if v := q.Get("depth"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil || d < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid depth"})
			return
		}
		depth = d
	}
	prune := q.Get("prune") == "1" || q.Get("prune") == "true"
	m, err := h.svc.Suggest(id, depth, prune)
	if err != nil {
		hlog.FromRequest(r).Debug().Err(err).Str("game", id).Msg("suggest-failed")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *handlers) apiReset(w http.ResponseWriter, r *http.Request) {
	gs, err := h.svc.Reset(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDTO(*gs))
}
