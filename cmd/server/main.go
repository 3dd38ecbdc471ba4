package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/miniquinox/billsync/config"
	"github.com/miniquinox/billsync/domain"
	"github.com/miniquinox/billsync/internal/log"
)

func main() {
	logger := log.NewLoggerWithJSONOutput()

	logger.Info("BillSync waitlist server starting")

	autoMigrate := false

	for _, arg := range os.Args[1:] {
		if strings.ToLower(arg) == "--auto-migrate" || strings.ToLower(arg) == "-m" {
			autoMigrate = true
			break
		}
	}

	appConfig, err := config.LoadApplicationConfiguration(logger, autoMigrate)
	if err != nil {
		logger.Error("Failed to load application configuration", "error", err.Error())
		os.Exit(1)
	}

	core, err := domain.SetupCoreDomain(appConfig)
	if err != nil {
		logger.Error("Failed to set up domain", "error", err.Error())
		appConfig.Cleanup()
		os.Exit(1)
	}

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()

	var consumers sync.WaitGroup
	if core.Consumer != nil {
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			if err := core.Consumer.Run(consumerCtx); err != nil {
				logger.Error("Trigger consumer stopped with error", "error", err)
			}
		}()
	}

	shutdown := func() {
		stopConsumer()
		consumers.Wait()
		core.Close(logger)
		appConfig.Cleanup()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server...")
		if err := appConfig.RouterService.RunHTTPServer(); err != nil {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		logger.Error("Server error", "error", err)
		shutdown()
		os.Exit(1)
	case <-quit:
		logger.Info("Shutdown signal received, shutting down gracefully...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := appConfig.RouterService.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "error", err)
		} else {
			logger.Info("HTTP server shut down gracefully")
		}
		shutdown()

		logger.Info("Graceful shutdown completed")
	}
}
