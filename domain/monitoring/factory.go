package monitoring

import (
	"github.com/miniquinox/billsync/config/router"
	"github.com/miniquinox/billsync/internal/log"
	"gorm.io/gorm"
)

type MonitoringControllerFactory interface {
	CreateController() *router.RESTController
}

type DefaultMonitoringControllerFactory struct {
	db     *gorm.DB
	logger *log.Logger
	cache  Pinger
	store  Pinger
}

func NewMonitoringControllerFactory(db *gorm.DB, logger *log.Logger, cache Pinger, store Pinger) MonitoringControllerFactory {
	return &DefaultMonitoringControllerFactory{
		db:     db,
		logger: logger,
		cache:  cache,
		store:  store,
	}
}

func (f *DefaultMonitoringControllerFactory) CreateController() *router.RESTController {
	return NewMonitoringController(f.db, f.logger, f.cache, f.store)
}
