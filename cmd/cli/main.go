package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/miniquinox/billsync/config"
	"github.com/miniquinox/billsync/internal/log"
	"github.com/miniquinox/billsync/pkg/migrations"
	"github.com/miniquinox/billsync/pkg/utils"
	"gorm.io/gorm"
)

func main() {
	logger := log.NewLoggerWithJSONOutput()

	config.InitializeEnvFile(logger) // Load envs early for CLI consistency

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "migrate":
		os.Exit(runMigrate(logger, args[1:]))

	case "join":
		os.Exit(runJoin(args[1:], os.Stdout, os.Stderr))

	case "consume":
		os.Exit(runConsume(logger))

	case "help", "-h", "--help":
		printUsage()
		return

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

const (
	migrateTargetApp    = "app"
	migrateTargetNotify = "notify"
)

func runMigrate(logger *log.Logger, args []string) int {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	steps := fs.Int("steps", 0, "apply (positive) or roll back (negative) this many migrations; 0 migrates up")
	target := fs.String("target", migrateTargetApp, "database to migrate: app (APP_DATABASE_URL/POSTGRES_*) or notify (NOTIFY_STORE_URL)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	db, err := openMigrationTarget(logger, *target)
	if err != nil {
		logger.Error("Failed to connect to database for migration", "target", *target, "error", err.Error())
		return 1
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("Failed to get SQL DB instance for migration", "error", err.Error())
		return 1
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			logger.Warn("Failed to close SQL DB after migration", "error", err.Error())
		}
	}()

	cfg := migrations.Config{
		Dir:    utils.GetEnvTrimmedOrDefault("MIGRATIONS_DIR", migrations.DefaultDir),
		Logger: logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if *steps != 0 {
		err = migrations.Steps(ctx, sqlDB, cfg, *steps)
	} else {
		err = migrations.Up(ctx, sqlDB, cfg)
	}
	if err != nil {
		logger.Error("Database migration failed", "target", *target, "error", err.Error())
		return 1
	}

	logger.Info("Database migrations completed", "target", *target)
	return 0
}

func openMigrationTarget(logger *log.Logger, target string) (*gorm.DB, error) {
	switch target {
	case migrateTargetApp:
		return config.NewDatabase(logger, &config.DBConfig{})
	case migrateTargetNotify:
		notificationConfig := config.NewNotificationConfig()
		dsn, err := config.StoreDSN(notificationConfig.StoreURL, notificationConfig.StoreKey)
		if err != nil {
			return nil, err
		}
		return config.OpenDatabase(logger, dsn, &config.DBConfig{MaxOpenConns: 1})
	default:
		return nil, fmt.Errorf("unknown migration target %q", target)
	}
}

func printUsage() {
	fmt.Println("Usage: cli <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  migrate  Run database migrations and exit (--steps N, --target app|notify)")
	fmt.Println("  join     Submit a waitlist signup through the API (--name, --email, --company, --api)")
	fmt.Println("  consume  Drain the Redis row-inserted queue into the notification dispatcher")
}
