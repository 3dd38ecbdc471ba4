package monitoring

import (
	"context"
	"net/http"
	"time"

	"github.com/miniquinox/billsync/config/router"
	"github.com/miniquinox/billsync/internal/log"
	"github.com/miniquinox/billsync/pkg/constants"
	"gorm.io/gorm"
)

const healthCheckTimeout = 3 * time.Second

// Pinger is anything that can report its own reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthStatus struct {
	Database          int `json:"database"`           // 1 = healthy, 0 = unhealthy
	Cache             int `json:"cache"`              // 1 = healthy, 0 = unhealthy/not configured
	NotificationStore int `json:"notification_store"` // 1 = connected, 0 = not yet connected/unhealthy
	Uptime            int `json:"uptime"`             // seconds
}

type MonitoringController struct {
	db        *gorm.DB
	logger    *log.Logger
	cache     Pinger
	store     Pinger
	startTime time.Time
}

func NewMonitoringController(db *gorm.DB, logger *log.Logger, cache Pinger, store Pinger) *router.RESTController {
	ctrl := &MonitoringController{
		db:        db,
		logger:    logger,
		cache:     cache,
		store:     store,
		startTime: time.Now(),
	}

	return router.NewRESTController(
		"MonitoringController",
		"/",
		func(routerService *router.RouterService, controller *router.RESTController) {
			limiter := routerService.NewRateLimiter(constants.MonitoringRateLimitRequests, time.Minute)

			routerService.AddGetHandler(controller, limiter, "", func(c *router.RequestContext) *router.ServiceResult {
				return router.OKResult("BillSync waitlist service is operational.", "Monitoring successful")
			})

			routerService.AddGetHandler(controller, limiter, "health", func(c *router.RequestContext) *router.ServiceResult {
				return ctrl.healthCheck(routerService, c)
			})
		},
	)
}

func (ctrl *MonitoringController) healthCheck(
	routerService *router.RouterService,
	c *router.RequestContext,
) *router.ServiceResult {
	logger := routerService.GetLogger(c)
	logger.Info("Health check endpoint called")

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	healthStatus := ctrl.performHealthChecks(ctx, logger)

	return &router.ServiceResult{
		StatusCode: http.StatusOK,
		Data:       healthStatus,
		Message:    "BillSync health check completed",
	}
}

func (ctrl *MonitoringController) performHealthChecks(ctx context.Context, logger *log.Logger) HealthStatus {
	return HealthStatus{
		Database:          checkDatabase(ctx, ctrl.db, logger),
		Cache:             checkPinger(ctx, "cache", ctrl.cache, logger),
		NotificationStore: checkPinger(ctx, "notification_store", ctrl.store, logger),
		Uptime:            int(time.Since(ctrl.startTime).Seconds()),
	}
}

func checkDatabase(ctx context.Context, db *gorm.DB, logger *log.Logger) int {
	if db == nil {
		logger.Error("Database health check failed", "error", "not configured")
		return 0
	}

	sqlDB, err := db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		logger.Error("Database health check failed", "error", err)
		return 0
	}

	logger.Info("Database health check passed")
	return 1
}

func checkPinger(ctx context.Context, name string, p Pinger, logger *log.Logger) int {
	if p == nil {
		logger.Info("Dependency not configured, health check skipped", "dependency", name)
		return 0
	}

	if err := p.Ping(ctx); err != nil {
		logger.Warn("Dependency health check failed", "dependency", name, "error", err)
		return 0
	}

	logger.Info("Dependency health check passed", "dependency", name)
	return 1
}
