package web

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/google/uuid"
	"github.com/jaminalder/codex-kinarow/internal/app"
	"github.com/jaminalder/codex-kinarow/internal/domain"
)

type templates struct {
	base  *template.Template
	game  *template.Template
	board *template.Template
	index *template.Template
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"cellSymbol": func(c domain.Cell) string {
			if c == domain.Empty {
				return ""
			}
			return c.String()
		},
	}
}

func loadTemplates() *templates {
	base := template.Must(template.New("base").Funcs(funcs()).Parse(`<!doctype html><html><head>
<meta charset="utf-8"/>
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
<script src="https://unpkg.com/htmx.org/dist/ext/sse.js"></script>
</head><body>{{template "content" .}}</body></html>`))
	// Define the board template within the same set so game can include it
	template.Must(base.New("board").Funcs(funcs()).Parse(boardTemplate))
	index := template.Must(template.Must(base.Clone()).New("content").Parse(indexTemplate))
	game := template.Must(template.Must(base.Clone()).New("content").Parse(`
<div hx-ext="sse" hx-sse="connect:/game/{{.ID}}/events">
  <div id="board" hx-sse="swap:board">{{template "board" .}}</div>
</div>`))
	// Standalone board template used for fragment rendering
	board := template.Must(template.New("board_only").Funcs(funcs()).Parse(boardTemplate))
	return &templates{base: base, game: game, board: board, index: index}
}

func renderTemplate(t *template.Template, name string, data any) []byte {
	var buf bytes.Buffer
	if name == "" {
		_ = t.Execute(&buf, data)
	} else {
		_ = t.ExecuteTemplate(&buf, name, data)
	}
	return buf.Bytes()
}

const indexTemplate = `<h1>K in a row</h1>
<form action="/game" method="post">
  <select name="ai">
    <option value="">Two players</option>
    <option value="O">Engine plays O</option>
    <option value="X">Engine plays X</option>
  </select>
  <input type="number" name="depth" min="1" placeholder="depth">
  <button>Create</button>
</form>`

const boardTemplate = `
<div id="board">
  {{if .Error}}
  <div class="alert">{{.Error}}</div>
  {{end}}
  <div class="status">{{.Status}}</div>
  {{range $r, $row := .Rows}}
  <div class="row">
    {{range $c, $cell := $row}}
      <form hx-post="/game/{{$.ID}}/play" hx-target="#board" hx-swap="outerHTML" method="post">
        <input type="hidden" name="r" value="{{$r}}">
        <input type="hidden" name="c" value="{{$c}}">
        <button type="submit">{{cellSymbol $cell}}</button>
      </form>
    {{end}}
  </div>
  {{end}}
</div>
`

type boardData struct {
	ID     string
	Rows   [][]domain.Cell
	Status string
	Error  string
}

func newBoardData(gs app.GameState, errMsg string) boardData {
	n := gs.Board.Size()
	cells := gs.Board.Cells()
	rows := make([][]domain.Cell, n)
	for r := range rows {
		rows[r] = cells[r*n : (r+1)*n]
	}
	return boardData{ID: gs.ID, Rows: rows, Status: statusText(gs), Error: errMsg}
}

func statusText(gs app.GameState) string {
	switch {
	case gs.Winner() != domain.Empty:
		return gs.Winner().String() + " wins"
	case gs.Over():
		return "Draw"
	default:
		return gs.Board.Turn().String() + " to move"
	}
}

// Helper to set cookie
func ensurePlayerCookie(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie("player_id"); err == nil && c.Value != "" {
		return c.Value
	}
	// Generate UUIDv4 for player ID
	v := uuid.NewString()
	http.SetCookie(w, &http.Cookie{Name: "player_id", Value: v, Path: "/"})
	return v
}
