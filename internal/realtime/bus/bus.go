package bus

import (
	"context"

	"github.com/atendoteam/atendo-backend/internal/realtime"
)

// Notifier delivers engine events to whoever is listening. Implementations
// must tolerate publish failures without affecting the triggering write.
type Notifier interface {
	Publish(ctx context.Context, evt realtime.Event) error
	Close() error
}

// NoopNotifier drops every event. Used in tests and when no bus is
// configured.
type NoopNotifier struct{}

func (NoopNotifier) Publish(ctx context.Context, evt realtime.Event) error { return nil }
func (NoopNotifier) Close() error                                          { return nil }
