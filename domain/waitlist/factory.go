package waitlist

import (
	"github.com/miniquinox/billsync/config/router"
	"github.com/miniquinox/billsync/internal/log"
	"github.com/miniquinox/billsync/internal/trigger"
	"gorm.io/gorm"
)

type WaitlistServiceFactory interface {
	CreateService() WaitlistService
	CreateController() *router.RESTController
}

type DefaultWaitlistServiceFactory struct {
	db        *gorm.DB
	logger    *log.Logger
	publisher trigger.Publisher
	config    ControllerConfig
}

func NewWaitlistServiceFactory(db *gorm.DB, logger *log.Logger, publisher trigger.Publisher, config ControllerConfig) WaitlistServiceFactory {
	return &DefaultWaitlistServiceFactory{
		db:        db,
		logger:    logger,
		publisher: publisher,
		config:    config,
	}
}

func (f *DefaultWaitlistServiceFactory) CreateService() WaitlistService {
	return NewWaitlistService(f.logger, NewWaitlistRepository(f.db), f.publisher)
}

func (f *DefaultWaitlistServiceFactory) CreateController() *router.RESTController {
	return NewWaitlistController(f.CreateService(), f.config)
}
