package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"heatscore/cmd"
	"heatscore/database"
)

func main() {
	log.SetFormatter(&log.JSONFormatter{})
	if level, err := log.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(level)
	}

	// Check for migration subcommands
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := handleMigrationCommand(); err != nil {
			log.WithError(err).Fatal("migration failed")
		}
		return
	}

	// Check for one-off backfill
	var backfillAsOf time.Time
	if len(os.Args) > 1 && os.Args[1] == "backfill" {
		asOf, err := parseBackfillArgs()
		if err != nil {
			log.WithError(err).Fatal("invalid backfill arguments")
		}
		backfillAsOf = asOf
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("received shutdown signal, shutting down gracefully")
		cancel()
	}()

	if err := cmd.Run(ctx, backfillAsOf); err != nil {
		log.WithError(err).Fatal("worker exited with error")
	}
}

func handleMigrationCommand() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: heatscore migrate [up|down|status] [args...]")
	}

	command := os.Args[2]
	switch command {
	case "up":
		return database.MigrateUp()
	case "down":
		steps := "1"
		if len(os.Args) > 3 {
			steps = os.Args[3]
		}
		return database.MigrateDown(steps)
	case "status":
		return database.MigrateStatus()
	default:
		return fmt.Errorf("unknown migration command: %s", command)
	}
}

// parseBackfillArgs reads the as-of time for a manual run. Accepts RFC3339 or
// a bare date, which scores as of that UTC midnight.
func parseBackfillArgs() (time.Time, error) {
	if len(os.Args) < 3 {
		return time.Time{}, fmt.Errorf("usage: heatscore backfill <RFC3339 | YYYY-MM-DD>")
	}

	arg := os.Args[2]
	if asOf, err := time.Parse(time.RFC3339, arg); err == nil {
		return asOf.UTC(), nil
	}
	asOf, err := time.Parse("2006-01-02", arg)
	if err != nil {
		return time.Time{}, fmt.Errorf("cannot parse %q as RFC3339 or YYYY-MM-DD", arg)
	}
	return asOf.UTC(), nil
}
