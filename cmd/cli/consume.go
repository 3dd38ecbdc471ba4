package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/miniquinox/billsync/config"
	"github.com/miniquinox/billsync/domain"
	"github.com/miniquinox/billsync/domain/notification"
	"github.com/miniquinox/billsync/internal/log"
	"github.com/miniquinox/billsync/internal/trigger"
)

// runConsume drains the trigger queue outside the API process, for
// deployments that run TRIGGER_MODE=redis with a separate worker.
func runConsume(logger *log.Logger) int {
	notificationConfig := config.NewNotificationConfig()

	cache, err := config.NewCacheConfig().NewCache(logger)
	if err != nil {
		logger.Error("Failed to connect to Redis for trigger consumer", "error", err.Error())
		return 1
	}
	defer func() {
		if err := config.CloseCache(cache, logger); err != nil {
			logger.Warn("Failed to close Redis", "error", err.Error())
		}
	}()

	client := config.GetRedisClient(cache)
	if client == nil {
		logger.Error("Trigger consumer requires a Redis cache (REDIS_HOST)")
		return 1
	}

	if !notificationConfig.RecipientValid() {
		logger.Warn("NOTIFICATION_RECIPIENT is missing or invalid; every event will fail", "recipient", notificationConfig.Recipient)
	}

	store := domain.NewNotificationStore(notificationConfig, logger)
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("Failed to close notification store", "error", err.Error())
		}
	}()

	service := notification.NewNotificationServiceFactory(store, notificationConfig.Recipient, logger).CreateService()
	consumer := trigger.NewRedisConsumer(client, notificationConfig.TriggerListKey, notification.TriggerHandler(service), logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := consumer.Run(ctx); err != nil {
		logger.Error("Trigger consumer stopped with error", "error", err.Error())
		return 1
	}
	return 0
}
