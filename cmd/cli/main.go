package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-dashboard/internal/config"
	"github.com/dvloznov/finance-dashboard/internal/kv"
	"github.com/dvloznov/finance-dashboard/internal/logger"
	"github.com/dvloznov/finance-dashboard/internal/profiles"
)

// app is the state shared by every subcommand.
type app struct {
	cfg   *config.Config
	log   zerolog.Logger
	repo  *profiles.Repository
	out   io.Writer
	today func() civil.Date
}

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = []command{
	{"profiles", "List, create, delete or switch profiles", runProfiles},
	{"balance", "Show the daily balance of a month", runBalance},
	{"cashflow", "Show monthly income and outgoings", runCashflow},
	{"debt", "Show the installment payoff schedule", runDebt},
	{"goals", "Show savings goals and when they are reached", runGoals},
	{"upcoming", "List the payments due in a month", runUpcoming},
	{"export", "Write every profile to a JSON bundle", runExport},
	{"import", "Replace every profile from a JSON bundle", runImport},
	{"backup", "Upload a bundle to Cloud Storage", runBackup},
	{"restore", "Import a bundle from Cloud Storage", runRestore},
	{"report", "Write an XLSX report of a profile", runReport},
	{"warehouse", "Export cashflow and transactions to BigQuery", runWarehouse},
	{"insight", "Ask the AI service for a summary of a profile", runInsight},
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	name := os.Args[1]
	if name == "help" || name == "-h" || name == "--help" {
		printUsage()
		return
	}

	var cmd *command
	for i := range commands {
		if commands[i].name == name {
			cmd = &commands[i]
			break
		}
	}
	if cmd == nil {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load(envFile())
	if err != nil {
		logger.New("").Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.New(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	store, err := kv.Open(ctx, cfg.StoreOptions())
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("Failed to open store")
	}
	defer store.Close()

	a := &app{
		cfg:   cfg,
		log:   log,
		repo:  profiles.NewRepository(store),
		out:   os.Stdout,
		today: func() civil.Date { return civil.DateOf(time.Now()) },
	}

	if err := cmd.run(ctx, a, os.Args[2:]); err != nil {
		log.Error().Err(err).Str("command", name).Msg("Command failed")
		store.Close()
		os.Exit(1)
	}
}

// envFile is FINANCE_ENV_FILE or ".env".
func envFile() string {
	if f := os.Getenv("FINANCE_ENV_FILE"); f != "" {
		return f
	}
	return ".env"
}

func printUsage() {
	fmt.Println("Finance Dashboard CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	for _, c := range commands {
		fmt.Printf("  %-10s %s\n", c.name, c.summary)
	}
	fmt.Printf("  %-10s %s\n", "help", "Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}
