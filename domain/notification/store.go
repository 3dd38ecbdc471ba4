package notification

import (
	"context"
	"sync"

	"github.com/miniquinox/billsync/config"
	"github.com/miniquinox/billsync/internal/log"
	apperrors "github.com/miniquinox/billsync/pkg/errors"
	"gorm.io/gorm"
)

// StoreConnector hands out the connection to the store that holds emails.
type StoreConnector interface {
	Connect(ctx context.Context) (*gorm.DB, error)
	Ping(ctx context.Context) error
	Close() error
}

// OpenFunc opens a gorm connection for a postgres DSN.
type OpenFunc func(dsn string) (*gorm.DB, error)

// LazyStore connects on first use. Failures are not cached: the next call
// tries again.
type LazyStore struct {
	storeURL string
	storeKey string
	open     OpenFunc
	logger   *log.Logger

	mu sync.Mutex
	db *gorm.DB
}

func NewLazyStore(storeURL, storeKey string, open OpenFunc, logger *log.Logger) *LazyStore {
	return &LazyStore{
		storeURL: storeURL,
		storeKey: storeKey,
		open:     open,
		logger:   logger.WithComponent("notification.store"),
	}
}

// PostgresOpener opens the store with the application's pool settings.
func PostgresOpener(logger *log.Logger) OpenFunc {
	return func(dsn string) (*gorm.DB, error) {
		return config.OpenDatabase(logger, dsn, nil)
	}
}

// NewStaticStore wraps an already open connection.
func NewStaticStore(db *gorm.DB, logger *log.Logger) *LazyStore {
	store := NewLazyStore("", "", nil, logger)
	store.db = db
	return store
}

func (s *LazyStore) Connect(ctx context.Context) (*gorm.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return s.db.WithContext(ctx), nil
	}

	dsn, err := config.StoreDSN(s.storeURL, s.storeKey)
	if err != nil {
		return nil, apperrors.NewConfigurationError(err.Error(), err)
	}

	db, err := s.open(dsn)
	if err != nil {
		s.logger.WithCorrelationID(ctx).Error("Failed to connect to notification store", "error", err)
		return nil, apperrors.NewUpstreamError("unable to connect to notification store", err)
	}

	s.db = db
	s.logger.WithCorrelationID(ctx).Info("Connected to notification store")
	return s.db.WithContext(ctx), nil
}

func (s *LazyStore) connected() *gorm.DB {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db
}

// ErrStoreNotConnected is reported by Ping before the first successful Connect.
var ErrStoreNotConnected = apperrors.NewUpstreamError("notification store not connected yet", nil)

func (s *LazyStore) Ping(ctx context.Context) error {
	db := s.connected()
	if db == nil {
		return ErrStoreNotConnected
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *LazyStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	s.db = nil
	return sqlDB.Close()
}
