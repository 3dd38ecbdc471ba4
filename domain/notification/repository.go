package notification

import (
	"context"

	"github.com/miniquinox/billsync/internal/models"
	apperrors "github.com/miniquinox/billsync/pkg/errors"
)

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=notification

type NotificationRepository interface {
	CreateEmail(ctx context.Context, email *models.Email) error
}

type notificationRepository struct {
	store StoreConnector
}

func NewNotificationRepository(store StoreConnector) NotificationRepository {
	return &notificationRepository{store: store}
}

func (r *notificationRepository) CreateEmail(ctx context.Context, email *models.Email) error {
	db, err := r.store.Connect(ctx)
	if err != nil {
		return err
	}

	if err := db.Create(email).Error; err != nil {
		return apperrors.NewDatabaseError("unable to queue notification email", err)
	}
	return nil
}
