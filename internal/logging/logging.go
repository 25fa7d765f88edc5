// Package logging configures the global zerolog logger for the binaries.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup points the global logger at w, human readable when w is a terminal.
func Setup(w io.Writer, level zerolog.Level) zerolog.Logger {
	zerolog.SetGlobalLevel(level)
	out := w
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return log.Logger
}
