package config

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/miniquinox/billsync/pkg/constants"
	"github.com/miniquinox/billsync/pkg/utils"
)

// Trigger modes decide how a new waitlist row reaches the dispatcher.
const (
	TriggerModeNone    = "none"
	TriggerModeWebhook = "webhook"
	TriggerModeRedis   = "redis"
)

type NotificationConfig struct {
	// Recipient receives every new-signup alert.
	Recipient string
	// StoreURL and StoreKey locate the store holding the emails table.
	StoreURL string
	StoreKey string

	// WebhookKey is sent as the bearer token and apikey; defaults to StoreKey.
	WebhookURL     string
	WebhookKey     string
	TriggerMode    string
	TriggerListKey string
	PublishTimeout time.Duration
}

func NewNotificationConfig() *NotificationConfig {
	cfg := &NotificationConfig{
		Recipient:      sanitizeEnv(utils.GetEnvTrimmed("NOTIFICATION_RECIPIENT")),
		StoreURL:       sanitizeEnv(utils.GetEnvTrimmed("NOTIFY_STORE_URL")),
		StoreKey:       sanitizeEnv(utils.GetEnvTrimmed("NOTIFY_STORE_KEY")),
		WebhookURL:     sanitizeEnv(utils.GetEnvTrimmed("NOTIFY_WEBHOOK_URL")),
		WebhookKey:     sanitizeEnv(utils.GetEnvTrimmed("NOTIFY_WEBHOOK_KEY")),
		TriggerMode:    strings.ToLower(utils.GetEnvTrimmed("TRIGGER_MODE")),
		TriggerListKey: utils.GetEnvTrimmedOrDefault("TRIGGER_LIST_KEY", constants.DefaultTriggerListKey),
		PublishTimeout: utils.GetEnvPositiveDuration("TRIGGER_PUBLISH_TIMEOUT", 10*time.Second),
	}

	if cfg.WebhookKey == "" {
		cfg.WebhookKey = cfg.StoreKey
	}

	if cfg.TriggerMode == "" {
		if cfg.WebhookURL != "" {
			cfg.TriggerMode = TriggerModeWebhook
		} else {
			cfg.TriggerMode = TriggerModeNone
		}
	}

	return cfg
}

var validate = validator.New()

// RecipientValid reports whether Recipient is a single plain address.
func (c *NotificationConfig) RecipientValid() bool {
	return validate.Var(c.Recipient, "required,email") == nil
}
