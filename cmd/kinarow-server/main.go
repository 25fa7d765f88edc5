package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jaminalder/codex-kinarow/internal/app"
	"github.com/jaminalder/codex-kinarow/internal/config"
	"github.com/jaminalder/codex-kinarow/internal/logging"
	"github.com/jaminalder/codex-kinarow/internal/web"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON config file")
	addr := flag.String("addr", "", "listen address, overrides the config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Setup(os.Stderr, config.Default().Level())
		log.Fatal().Err(err).Msg("load-config")
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	logger := logging.Setup(os.Stderr, cfg.Level())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := config.NewStore(cfg)
	svc := app.NewService(store)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           web.NewServerWithLogger(svc, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.Addr).Int("size", len(cfg.Weights)).Int("depth", cfg.AiDepth).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	// SIGHUP reloads the config file; running games keep their settings.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-hup:
				next, err := store.Reload(*configPath)
				if err != nil {
					log.Error().Err(err).Msg("config-reload-failed")
					continue
				}
				zerolog.SetGlobalLevel(next.Level())
				log.Info().Int("size", len(next.Weights)).Int("depth", next.AiDepth).Msg("config-reloaded")
			}
		}
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server")
	}
	log.Info().Msg("stopped")
}
