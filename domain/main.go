package domain

import (
	"fmt"

	"github.com/miniquinox/billsync/config"
	"github.com/miniquinox/billsync/domain/monitoring"
	"github.com/miniquinox/billsync/domain/notification"
	"github.com/miniquinox/billsync/domain/waitlist"
	"github.com/miniquinox/billsync/internal/log"
	"github.com/miniquinox/billsync/internal/trigger"
)

// CoreDomain holds the pieces the server keeps running beside the router.
type CoreDomain struct {
	Notifications notification.NotificationServiceFactory
	Store         *notification.LazyStore
	Publisher     trigger.Publisher
	// Consumer is non-nil in redis trigger mode.
	Consumer *trigger.RedisConsumer
}

// Close waits for in-flight publications and releases the notification store.
func (d *CoreDomain) Close(logger *log.Logger) {
	if async, ok := d.Publisher.(*trigger.AsyncPublisher); ok {
		async.Wait()
	}
	if err := d.Store.Close(); err != nil {
		logger.Warn("Failed to close notification store", "error", err)
	}
}

// NewNotificationStore connects lazily to NOTIFY_STORE_URL.
func NewNotificationStore(cfg *config.NotificationConfig, logger *log.Logger) *notification.LazyStore {
	return notification.NewLazyStore(cfg.StoreURL, cfg.StoreKey, notification.PostgresOpener(logger), logger)
}

// NewTriggerPublisher picks the channel that carries new waitlist rows to the
// dispatcher. Anything but "none" is wrapped so inserts never wait on it.
func NewTriggerPublisher(cfg *config.NotificationConfig, cache config.Cache, logger *log.Logger) (trigger.Publisher, error) {
	var publisher trigger.Publisher

	switch cfg.TriggerMode {
	case config.TriggerModeNone:
		logger.Warn("Row insert trigger disabled; new signups will not be notified")
		return trigger.NoopPublisher{}, nil

	case config.TriggerModeWebhook:
		if cfg.WebhookURL == "" {
			return nil, fmt.Errorf("TRIGGER_MODE=%s requires NOTIFY_WEBHOOK_URL", cfg.TriggerMode)
		}
		publisher = trigger.NewWebhookPublisher(trigger.WebhookConfig{
			URL:     cfg.WebhookURL,
			APIKey:  cfg.WebhookKey,
			Timeout: cfg.PublishTimeout,
			Logger:  logger,
		})

	case config.TriggerModeRedis:
		client := config.GetRedisClient(cache)
		if client == nil {
			return nil, fmt.Errorf("TRIGGER_MODE=%s requires a reachable Redis (REDIS_HOST)", cfg.TriggerMode)
		}
		publisher = trigger.NewRedisPublisher(client, cfg.TriggerListKey)

	default:
		return nil, fmt.Errorf("unknown TRIGGER_MODE %q", cfg.TriggerMode)
	}

	logger.Info("Row insert trigger enabled", "mode", cfg.TriggerMode)
	return trigger.NewAsyncPublisher(publisher, cfg.PublishTimeout, logger), nil
}

func SetupCoreDomain(appConfig *config.ApplicationConfig) (*CoreDomain, error) {
	return SetupCoreDomainWithStore(appConfig, NewNotificationStore(appConfig.Notification, appConfig.Logger))
}

// SetupCoreDomainWithStore mounts every controller, writing emails through store.
func SetupCoreDomainWithStore(appConfig *config.ApplicationConfig, store *notification.LazyStore) (*CoreDomain, error) {
	logger := appConfig.Logger
	notificationConfig := appConfig.Notification

	publisher, err := NewTriggerPublisher(notificationConfig, appConfig.Cache, logger)
	if err != nil {
		return nil, err
	}

	notifications := notification.NewNotificationServiceFactory(store, notificationConfig.Recipient, logger)

	waitlistFactory := waitlist.NewWaitlistServiceFactory(appConfig.DB, logger, publisher, waitlist.ControllerConfig{
		CreateRequestsPerMinute: appConfig.Config.WaitlistRateLimitRequests,
		AllowedOrigins:          appConfig.Config.CORSAllowedOrigins,
	})

	var cache monitoring.Pinger
	if appConfig.Cache != nil {
		cache = appConfig.Cache
	}

	rs := appConfig.RouterService
	rs.MountController(monitoring.NewMonitoringControllerFactory(appConfig.DB, logger, cache, store).CreateController())
	rs.MountController(waitlistFactory.CreateController())
	rs.MountController(notifications.CreateController())

	core := &CoreDomain{
		Notifications: notifications,
		Store:         store,
		Publisher:     publisher,
	}

	if notificationConfig.TriggerMode == config.TriggerModeRedis {
		core.Consumer = trigger.NewRedisConsumer(
			config.GetRedisClient(appConfig.Cache),
			notificationConfig.TriggerListKey,
			notification.TriggerHandler(notifications.CreateService()),
			logger,
		)
	}

	return core, nil
}
