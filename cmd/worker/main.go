package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"retailsync/internal/app"
	"retailsync/internal/pkg/logger"
	"retailsync/internal/platform/config"
	"retailsync/internal/workers"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	once := flag.Bool("once", false, "Run a single sync and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(cfg.Logging, "retailsync-worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start")
	}
	defer a.Close()

	interval := cfg.Sync.ScheduleInterval
	if *once {
		interval = 0
	}

	syncCfg := workers.ScheduledSyncConfig(cfg.Sync)
	log.Info().Str("method", string(syncCfg.Method)).Dur("interval", interval).Msg("starting sync worker")
	workers.RunScheduledSync(ctx, a.Orchestrator, syncCfg, interval)
}
