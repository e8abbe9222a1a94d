package events

import "context"

// NoopPublisher drops all events. Used when no NATS URL is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, topic string, event any) error { return nil }
func (NoopPublisher) Close() error                                               { return nil }
