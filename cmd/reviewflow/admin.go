package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/opsdeck/reviewflow/internal/adapter/postgres"
	"github.com/opsdeck/reviewflow/internal/config"
)

// runAdmin dispatches admin subcommands (migrate-up, migrate-down, migrate-status).
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "migrate-up":
		return runAdminMigrateUp(args[1:])
	case "migrate-down":
		return runAdminMigrateDown(args[1:])
	case "migrate-status":
		return runAdminMigrateStatus(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: reviewflow admin <command> [options]

Commands:
  migrate-up       Apply all pending database migrations
  migrate-down     Roll back database migrations
  migrate-status   Print the current migration version
  help             Show this help message

Examples:
  reviewflow admin migrate-up
  reviewflow admin migrate-down --steps 1
  reviewflow admin migrate-status
`)
}

func adminDSN() (string, error) {
	cfg, err := config.Load()
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}
	return cfg.Postgres.DSN, nil
}

func runAdminMigrateUp(args []string) error {
	fs := flag.NewFlagSet("migrate-up", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	dsn, err := adminDSN()
	if err != nil {
		return err
	}
	if err := postgres.RunMigrations(context.Background(), dsn); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	fmt.Fprintln(os.Stderr, "migrations applied")
	return nil
}

func runAdminMigrateDown(args []string) error {
	fs := flag.NewFlagSet("migrate-down", flag.ContinueOnError)
	steps := fs.Int("steps", 1, "number of migrations to roll back")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *steps < 1 {
		return fmt.Errorf("--steps must be at least 1")
	}

	dsn, err := adminDSN()
	if err != nil {
		return err
	}
	if err := postgres.RollbackMigrations(context.Background(), dsn, *steps); err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	fmt.Fprintf(os.Stderr, "rolled back %d migration(s)\n", *steps)
	return nil
}

func runAdminMigrateStatus(args []string) error {
	fs := flag.NewFlagSet("migrate-status", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	dsn, err := adminDSN()
	if err != nil {
		return err
	}
	version, err := postgres.MigrationVersion(context.Background(), dsn)
	if err != nil {
		return fmt.Errorf("migrate status: %w", err)
	}
	fmt.Printf("current migration version: %d\n", version)
	return nil
}
