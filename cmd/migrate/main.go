// Package main provides the migration CLI.
// Usage: migrate up | down | status
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"facturier/internal/infrastructure/storage/postgres"
	"facturier/pkg/logger"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	switch command {
	case postgres.MigrateUp, postgres.MigrateDown, postgres.MigrateStatus:
	case "help", "--help", "-h":
		printUsage()
		return
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		fmt.Println("Error: DATABASE_URL environment variable is required")
		os.Exit(1)
	}

	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	log, err := logger.New(logger.Config{Level: level, Development: true})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithLogger(ctx, log)

	if err := postgres.Migrate(ctx, dsn, command); err != nil {
		log.Errorw("migration failed", "command", command, "error", err)
		os.Exit(1)
	}
	log.Infow("migration finished", "command", command)
}

func printUsage() {
	fmt.Println(`Facturier migration CLI

Usage:
  migrate <command>

Commands:
  up        Apply all pending migrations
  down      Roll back the last migration
  status    Print applied and pending migrations
  help      Show this help

Environment Variables:
  DATABASE_URL   PostgreSQL connection string (required)
  LOG_LEVEL      debug, info, warn, error (default info)`)
}
