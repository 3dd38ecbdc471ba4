package config

import (
	"context"
	"strings"
	"time"

	"github.com/miniquinox/billsync/config/router"
	"github.com/miniquinox/billsync/internal/log"
	"github.com/miniquinox/billsync/internal/models"
	"github.com/miniquinox/billsync/pkg/constants"
	"github.com/miniquinox/billsync/pkg/utils"
	"gorm.io/gorm"
)

type ApplicationConfig struct {
	DB              *gorm.DB
	RouterService   *router.RouterService
	Logger          *log.Logger
	Cache           Cache
	Config          *AppConfig
	Notification    *NotificationConfig
	TracingShutdown func(context.Context) error
}

type AppConfig struct {
	RateLimitRequests         int
	RateLimitWindow           time.Duration
	RequestTimeout            time.Duration
	WaitlistRateLimitRequests int
	// CORSAllowedOrigins lists the browser origins allowed to post the waitlist form.
	CORSAllowedOrigins []string
}

func NewAppConfig() *AppConfig {
	return &AppConfig{
		RateLimitRequests:         utils.GetEnvPositiveInt("RATE_LIMIT_REQUESTS", constants.DefaultRateLimitRequests),
		RateLimitWindow:           utils.GetEnvPositiveDuration("RATE_LIMIT_WINDOW", constants.DefaultRateLimitWindow()),
		RequestTimeout:            utils.GetEnvPositiveDuration("REQUEST_TIMEOUT", router.DefaultTimeoutDuration),
		WaitlistRateLimitRequests: utils.GetEnvPositiveInt("WAITLIST_RATE_LIMIT_REQUESTS", constants.WaitlistRateLimitRequests),
		CORSAllowedOrigins:        parseOrigins(utils.GetEnvTrimmed("CORS_ALLOWED_ORIGIN")),
	}
}

func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}

	var origins []string
	for _, o := range strings.Split(raw, ",") {
		o = strings.TrimSuffix(strings.TrimSpace(o), "/")
		if o != "" {
			origins = append(origins, o)
		}
	}

	return origins
}

func (ac *ApplicationConfig) Cleanup() {
	if ac.TracingShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ac.TracingShutdown(ctx); err != nil {
			ac.Logger.Error("Failed to shutdown tracer provider", "error", err)
		}
	}

	if ac.DB != nil {
		CloseDatabase(ac.DB, ac.Logger)
	}

	if ac.RouterService != nil {
		ac.RouterService.Cleanup()
	}

	if ac.Cache != nil {
		_ = CloseCache(ac.Cache, ac.Logger)
	}

	ac.Logger.Info("Application cleanup completed")
}

func LoadApplicationConfiguration(logger *log.Logger, autoMigrate bool) (*ApplicationConfig, error) {
	InitializeEnvFile(logger)

	if autoMigrate {
		appEnv := GetAppEnv()
		if err := ValidateAutoMigrateAllowed(appEnv); err != nil {
			return nil, err
		}
		if appEnv == "" {
			logger.Warn("APP_ENV not set; allowing --auto-migrate as development")
		}
	}

	tracingShutdown, err := SetupTracing(logger)
	if err != nil {
		return nil, err
	}

	db, err := NewDatabase(logger, nil)
	if err != nil {
		return nil, err
	}

	if autoMigrate {
		if err := AutoMigrate(logger, db, models.ModelRegistry...); err != nil {
			return nil, err
		}
	}

	appConfig := NewAppConfig()
	notification := NewNotificationConfig()
	if !notification.RecipientValid() {
		logger.Warn("NOTIFICATION_RECIPIENT is missing or invalid; notify-waitlist will reject invocations")
	}

	cache := NewCacheConfig().NewCacheOrNil(logger)

	routerService := router.CreateRouterService(logger, cache, &router.RouterConfig{
		RateLimitRequests: appConfig.RateLimitRequests,
		RateLimitWindow:   appConfig.RateLimitWindow,
		RequestTimeout:    appConfig.RequestTimeout,
	})

	logger.Info("Application configuration loaded successfully",
		"trigger_mode", notification.TriggerMode,
	)

	return &ApplicationConfig{
		DB:              db,
		RouterService:   routerService,
		Logger:          logger,
		Cache:           cache,
		Config:          appConfig,
		Notification:    notification,
		TracingShutdown: tracingShutdown,
	}, nil
}
