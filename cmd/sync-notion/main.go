package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/dvloznov/finance-dashboard/internal/config"
	"github.com/dvloznov/finance-dashboard/internal/kv"
	"github.com/dvloznov/finance-dashboard/internal/logger"
	"github.com/dvloznov/finance-dashboard/internal/notionsync"
	"github.com/dvloznov/finance-dashboard/internal/profiles"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("").Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize structured logger
	log := logger.New(cfg.LogLevel)

	// Parse CLI flags
	profileName := flag.String("profile", "", "Profile whose goals are mirrored (defaults to the active profile)")
	notionToken := flag.String("notion-token", cfg.NotionToken, "Notion API token (or set NOTION_TOKEN)")
	notionDBID := flag.String("notion-db-id", cfg.NotionGoalsDB, "Notion goals database ID (or set NOTION_GOALS_DB)")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	flag.Parse()

	// Validate required flags
	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token is required")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: --notion-db-id is required")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	store, err := kv.Open(ctx, cfg.StoreOptions())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer store.Close()
	repo := profiles.NewRepository(store)

	name, err := repo.Resolve(ctx, *profileName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve profile")
	}
	data, err := repo.Load(ctx, name)
	if err != nil {
		log.Fatal().Err(err).Str("profile", name).Msg("Failed to load profile")
	}

	log.Info().
		Str("profile", name).
		Int("goals", len(data.Goals)).
		Bool("dry_run", *dryRun).
		Msg("Starting Notion sync")

	notionClient := notionsync.NewGoalsClient(*notionToken)

	result, err := notionsync.SyncGoals(ctx, notionClient, *notionDBID, name, data, *dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Printf("Sync completed: %s\n", result)
}
