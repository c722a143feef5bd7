package authn

import (
	"context"
	"time"

	"github.com/goliatone/go-print"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventRegisterSuccess  ActivityEventType = "auth.register.success"
	ActivityEventLoginSuccess     ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure     ActivityEventType = "auth.login.failure"
	ActivityEventRefreshSuccess   ActivityEventType = "auth.refresh.success"
	ActivityEventRefreshFailure   ActivityEventType = "auth.refresh.failure"
	ActivityEventLockoutTriggered ActivityEventType = "auth.lockout.triggered"
)

// ActorRef identifies who performed an action.
type ActorRef struct {
	ID   string
	Type string
}

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	UserID     string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
// Sinks are fire-and-forget from the caller's perspective, a failing sink
// never fails the auth operation.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

// LogActivitySink writes events to a Logger, useful as a default audit
// destination in development.
type LogActivitySink struct {
	logger Logger
}

func NewLogActivitySink(logger Logger) *LogActivitySink {
	if logger == nil {
		logger = defLogger{}
	}
	return &LogActivitySink{logger: logger}
}

// Record implements ActivitySink.
func (s *LogActivitySink) Record(_ context.Context, event ActivityEvent) error {
	s.logger.Info("activity %s actor=%s user=%s metadata=%s",
		string(event.EventType),
		event.Actor.ID,
		event.UserID,
		print.MaybePrettyJSON(event.Metadata),
	)
	return nil
}
