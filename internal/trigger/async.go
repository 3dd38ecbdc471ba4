package trigger

import (
	"context"
	"sync"
	"time"

	"github.com/miniquinox/billsync/internal/log"
)

// AsyncPublisher hands events to the wrapped publisher in the background so
// the caller never waits on delivery. Errors are logged.
type AsyncPublisher struct {
	next    Publisher
	timeout time.Duration
	logger  *log.Logger
	wg      sync.WaitGroup
}

func NewAsyncPublisher(next Publisher, timeout time.Duration, logger *log.Logger) *AsyncPublisher {
	return &AsyncPublisher{
		next:    next,
		timeout: timeout,
		logger:  logger.WithComponent("trigger.async"),
	}
}

// Publish always returns nil. The event is published on a context detached
// from ctx so request cancellation does not abort it; the correlation ID is kept.
func (p *AsyncPublisher) Publish(ctx context.Context, event RowInserted) error {
	correlationID := log.GetOrGenerateCorrelationID(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		bg := log.WithCorrelationID(context.Background(), correlationID)
		bg, cancel := context.WithTimeout(bg, p.timeout)
		defer cancel()

		if err := p.next.Publish(bg, event); err != nil {
			p.logger.WithCorrelationID(bg).Error("Failed to publish row inserted event",
				"error", err,
				"table", event.Table,
				"record_id", event.Record.ID,
			)
			return
		}

		p.logger.WithCorrelationID(bg).Debug("Row inserted event published",
			"table", event.Table,
			"record_id", event.Record.ID,
		)
	}()

	return nil
}

// Wait blocks until in-flight publications finish.
func (p *AsyncPublisher) Wait() {
	p.wg.Wait()
}
