package notification

import (
	"context"

	"github.com/miniquinox/billsync/internal/trigger"
)

// TriggerHandler lets a trigger consumer call the dispatcher in-process.
func TriggerHandler(service NotificationService) trigger.Handler {
	return func(ctx context.Context, event trigger.RowInserted) error {
		_, err := service.Dispatch(ctx, WaitlistRecord{
			Name:    event.Record.Name,
			Email:   event.Record.Email,
			Company: event.Record.Company,
		})
		return err
	}
}
