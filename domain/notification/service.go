package notification

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/miniquinox/billsync/internal/log"
	"github.com/miniquinox/billsync/internal/models"
	"github.com/miniquinox/billsync/pkg/constants"
	apperrors "github.com/miniquinox/billsync/pkg/errors"
)

//go:generate mockgen -source=service.go -destination=mock_service.go -package=notification

type NotificationService interface {
	Dispatch(ctx context.Context, record WaitlistRecord) (*models.Email, error)
}

var validate = validator.New()

type notificationService struct {
	repository  NotificationRepository
	recipient   string
	recipientOK bool
	logger      *log.Logger
	metrics     *Metrics
}

func NewNotificationService(
	logger *log.Logger,
	repository NotificationRepository,
	recipient string,
	metrics *Metrics,
) NotificationService {
	return &notificationService{
		repository:  repository,
		recipient:   recipient,
		recipientOK: validate.Var(recipient, "required,email") == nil,
		logger:      logger,
		metrics:     metrics,
	}
}

// Dispatch queues one alert email for a new waitlist row.
func (s *notificationService) Dispatch(ctx context.Context, record WaitlistRecord) (*models.Email, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if !s.recipientOK {
		s.metrics.observe(outcomeRejected)
		message := "notification recipient is not configured"
		if s.recipient != "" {
			message = "notification recipient is not a valid email address"
		}
		err := apperrors.NewConfigurationError(message, nil)
		logger.Error("Notification rejected", "error", err, "recipient", s.recipient)
		return nil, err
	}

	html, err := RenderSignupHTML(record)
	if err != nil {
		s.metrics.observe(outcomeFailed)
		logger.Error("Failed to render notification", "error", err)
		return nil, apperrors.NewInternalServerError("unable to render notification", err)
	}

	email := &models.Email{
		To:      s.recipient,
		Subject: constants.NotificationSubject,
		HTML:    html,
	}

	if err := s.repository.CreateEmail(ctx, email); err != nil {
		s.metrics.observe(outcomeFailed)
		logger.Error("Failed to queue notification email", "error", err)
		return nil, err
	}

	s.metrics.observe(outcomeQueued)
	logger.Info("Notification email queued", "email_id", email.ID)
	return email, nil
}
