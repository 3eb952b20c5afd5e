// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/geek-md/media-downloader/internal/api"
	"github.com/geek-md/media-downloader/internal/bus"
	"github.com/geek-md/media-downloader/internal/config"
	"github.com/geek-md/media-downloader/internal/ffmpeg"
	"github.com/geek-md/media-downloader/internal/jobs"
	mdlog "github.com/geek-md/media-downloader/internal/log"
	"github.com/geek-md/media-downloader/internal/status"
)

var (
	version   = "v1.0.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	mdlog.Configure(mdlog.Config{
		Level:   config.ParseString("MEDIADL_LOG_LEVEL", "info"),
		Service: "media-downloader",
	})
	logger := mdlog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.invalid").
			Msg("invalid configuration")
	}

	logger.Info().
		Str("event", "startup").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Str("addr", cfg.Listen).
		Msg("starting media-downloader")
	logger.Info().Msgf("→ Data dir: %s", cfg.DataDir)
	logger.Info().Msgf("→ Overwrite default: %v", cfg.Overwrite)
	logger.Info().Msgf("→ Tools: %s / %s", cfg.FFmpegBin, cfg.FFprobeBin)
	logger.Info().Msgf("→ Resize default: %dx%d", cfg.ResizeWidth, cfg.ResizeHeight)

	b := bus.NewMemoryBus()
	tracker := status.NewTracker()
	prober := ffmpeg.NewProber(cfg.FFprobeBin, cfg.FFmpegBin, cfg.ProbeTimeout)
	runner := ffmpeg.NewRunner(cfg.FFmpegBin, cfg.TransformTimeout)
	chain := jobs.NewChain(prober, runner, b, tracker)
	engine := jobs.NewEngine(cfg, b, tracker, chain)
	deleter := jobs.NewDeleter(cfg.DataDir, b, tracker)

	srv := api.New(cfg, engine, deleter, tracker)
	httpSrv := srv.HTTPServer()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := status.Listen(ctx, b, tracker); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		logger.Info().
			Str("event", "http.listen").
			Str("addr", cfg.Listen).
			Msg("HTTP server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "daemon.failed").
			Msg("daemon failed")
	}

	logger.Info().Msg("server exiting")
}
