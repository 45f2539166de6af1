package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/dkeye/voipcore/internal/adapters/banstore"
	router "github.com/dkeye/voipcore/internal/adapters/http"
	"github.com/dkeye/voipcore/internal/adapters/ratelimit"
	"github.com/dkeye/voipcore/internal/adapters/tcp"
	"github.com/dkeye/voipcore/internal/adapters/udp"
	"github.com/dkeye/voipcore/internal/app"
	"github.com/dkeye/voipcore/internal/app/orch"
	"github.com/dkeye/voipcore/internal/ban"
	"github.com/dkeye/voipcore/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && lvl != zerolog.NoLevel {
		zerolog.SetGlobalLevel(lvl)
	}

	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("Server exited gracefully")
}

func run(ctx context.Context, cfg *config.Config) error {
	var bans ban.Store = ban.NewMemoryStore()
	if cfg.BanDBPath != "" {
		store, err := banstore.Open(cfg.BanDBPath)
		if err != nil {
			return err
		}
		defer store.Close()
		bans = store
	}

	tree, def, err := app.BuildChannelTree(cfg.Channels, cfg.ChannelLinks, cfg.DefaultChannel)
	if err != nil {
		return fmt.Errorf("channel tree: %w", err)
	}
	o := orch.New(cfg, tree, def, bans)

	tlsCfg, err := tcp.LoadTLS(cfg.TLS)
	if err != nil {
		return err
	}
	voiceAddr := net.JoinHostPort(cfg.Bind, strconv.Itoa(cfg.Port))
	sock, err := udp.Listen(voiceAddr)
	if err != nil {
		return fmt.Errorf("voice socket: %w", err)
	}
	o.UDP = sock

	limiter := ratelimit.New(cfg.ConnectRate, cfg.ConnectWindow)
	control := &tcp.Server{Handler: o, TLS: tlsCfg, Limiter: limiter}

	srv := &http.Server{
		Addr:    net.JoinHostPort(cfg.Bind, strconv.Itoa(cfg.HTTPPort)),
		Handler: router.SetupRouter(ctx, cfg, o),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return control.ListenAndServe(ctx, voiceAddr) })
	g.Go(func() error { return sock.Serve(ctx, o) })
	g.Go(func() error { return o.RunJanitor(ctx) })
	if cfg.ConnectWindow > 0 {
		g.Go(func() error {
			t := time.NewTicker(cfg.ConnectWindow)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-t.C:
					limiter.Sweep()
				}
			}
		})
	}
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("admin api started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("admin api: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		return nil
	})

	log.Info().Str("addr", voiceAddr).Int("max_clients", cfg.MaxClients).Msg("Voice server started")
	return g.Wait()
}
