package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"

	"github.com/jaminalder/codex-kinarow/internal/cli"
	"github.com/jaminalder/codex-kinarow/internal/config"
	"github.com/jaminalder/codex-kinarow/internal/domain"
	"github.com/jaminalder/codex-kinarow/internal/logging"
	"github.com/jaminalder/codex-kinarow/internal/search"
	"github.com/muesli/termenv"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON config file")
	ai := flag.String("ai", "O", "engine side: X, O or none")
	depth := flag.Int("depth", 0, "search depth, overrides the config")
	prune := flag.Bool("prune", false, "use alpha-beta pruning")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Setup(os.Stderr, config.Default().Level())
		log.Fatal().Err(err).Msg("load-config")
	}
	logging.Setup(os.Stderr, cfg.Level())

	b, err := cfg.NewBoard()
	if err != nil {
		log.Fatal().Err(err).Msg("board")
	}
	opts := cli.Options{
		Board:   b,
		Depth:   cfg.AiDepth,
		Prune:   cfg.AiPrune,
		Memoize: cfg.AiMemoize,
		Table:   search.NewTable(cfg.TableSize),
		Output:  termenv.NewOutput(os.Stdout),
	}
	applyFlags(flag.CommandLine, &opts, *depth, *prune)
	switch strings.ToUpper(*ai) {
	case "X":
		opts.AI = domain.X
	case "O":
		opts.AI = domain.O
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := cli.Run(ctx, os.Stdin, os.Stdout, opts); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("game")
	}
}

// applyFlags lets explicitly set flags win over the config, including -prune=false.
func applyFlags(fs *flag.FlagSet, opts *cli.Options, depth int, prune bool) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "depth":
			opts.Depth = depth
		case "prune":
			opts.Prune = prune
		}
	})
}
