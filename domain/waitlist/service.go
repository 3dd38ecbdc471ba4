package waitlist

import (
	"context"

	"github.com/miniquinox/billsync/internal/log"
	"github.com/miniquinox/billsync/internal/trigger"
)

type WaitlistService interface {
	CreateEntry(ctx context.Context, req *CreateWaitlistEntryRequest) (*WaitlistEntryResponse, error)
}

type waitlistService struct {
	repository WaitlistRepository
	publisher  trigger.Publisher
	logger     *log.Logger
}

// NewWaitlistService publishes a RowInserted event after every insert. A nil
// publisher disables the trigger.
func NewWaitlistService(logger *log.Logger, repository WaitlistRepository, publisher trigger.Publisher) WaitlistService {
	if publisher == nil {
		publisher = trigger.NoopPublisher{}
	}

	return &waitlistService{
		repository: repository,
		publisher:  publisher,
		logger:     logger,
	}
}

func (s *waitlistService) CreateEntry(ctx context.Context, req *CreateWaitlistEntryRequest) (*WaitlistEntryResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	entry, err := s.repository.CreateEntry(ctx, ToWaitlistEntryModel(req))
	if err != nil {
		logger.Error("Failed to create waitlist entry", "error", err)
		return nil, err
	}

	logger.Info("Waitlist entry created", "entry_id", entry.ID)

	// The insert already succeeded; publication problems only get logged.
	if err := s.publisher.Publish(ctx, toRowInserted(entry)); err != nil {
		logger.Error("Failed to publish waitlist insert", "error", err, "entry_id", entry.ID)
	}

	response := ToWaitlistEntryResponse(entry)
	return &response, nil
}
