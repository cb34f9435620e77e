package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/rs/zerolog/log"
	"retailsync/internal/pkg/logger"
	"retailsync/internal/platform/config"
	"retailsync/internal/platform/database"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up, down or status")
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(cfg.Logging, "retailsync-migrate")

	if cfg.Database.Driver != "" && cfg.Database.Driver != "sqlite" {
		log.Fatal().Str("driver", cfg.Database.Driver).Msg("migrations only apply to the sqlite store")
	}

	db, err := database.OpenSQLite(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Database.Path).Msg("failed to open database")
	}
	defer db.Close()

	ctx := context.Background()
	switch *direction {
	case "up":
		err = database.Migrate(ctx, db)
	case "down":
		err = database.Rollback(ctx, db)
	case "status":
	default:
		log.Fatal().Str("direction", *direction).Msg("invalid direction: must be up, down or status")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	version, err := database.Version(ctx, db)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read schema version")
	}
	fmt.Printf("schema version %d\n", version)
}
