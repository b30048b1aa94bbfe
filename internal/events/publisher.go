package events

import (
	"context"
)

// Publisher is the outbound boundary to the display/notification layer.
// Engines publish typed payloads; what the display does with them is out of
// scope.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// NopPublisher drops all events; used in tests and when running without a
// bus.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, subject string, payload any) error { return nil }
