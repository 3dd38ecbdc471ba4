package notification

import (
	"github.com/miniquinox/billsync/config/router"
	"github.com/miniquinox/billsync/internal/log"
)

type NotificationServiceFactory interface {
	CreateService() NotificationService
	CreateController() *router.RESTController
}

type DefaultNotificationServiceFactory struct {
	store     StoreConnector
	recipient string
	logger    *log.Logger
	metrics   *Metrics
	service   NotificationService
}

// NewNotificationServiceFactory shares one service, and so one store
// connection and one metrics set, between the HTTP function and any
// in-process trigger consumer.
func NewNotificationServiceFactory(store StoreConnector, recipient string, logger *log.Logger) NotificationServiceFactory {
	return &DefaultNotificationServiceFactory{
		store:     store,
		recipient: recipient,
		logger:    logger,
		metrics:   NewMetrics(),
	}
}

func (f *DefaultNotificationServiceFactory) CreateService() NotificationService {
	if f.service == nil {
		f.service = NewNotificationService(f.logger, NewNotificationRepository(f.store), f.recipient, f.metrics)
	}
	return f.service
}

func (f *DefaultNotificationServiceFactory) CreateController() *router.RESTController {
	return NewNotificationController(f.CreateService(), f.metrics)
}
