// Package trigger carries "row inserted" events from the waitlist insert path
// to the notification dispatcher.
package trigger

import (
	"context"
	"time"
)

// Record is the inserted waitlist row as the dispatcher sees it.
type Record struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Company   string    `json:"company"`
	CreatedAt time.Time `json:"created_at"`
}

type RowInserted struct {
	Table  string `json:"table"`
	Record Record `json:"record"`
}

type Publisher interface {
	Publish(ctx context.Context, event RowInserted) error
}

// Handler consumes one event. A returned error is logged, the event is not redelivered.
type Handler func(ctx context.Context, event RowInserted) error

// NoopPublisher drops every event. Used when no trigger is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, RowInserted) error { return nil }
