package shared

import (
	"context"
	"log/slog"
)

// StatsInvalidator is notified whenever a user's writing data changes.
type StatsInvalidator interface {
	Bump(ctx context.Context, userID int64) error
}

// ChangeRecorder fans a completed write out to the audit log and the stats
// cache. Failures are logged and never fail the write itself.
type ChangeRecorder struct {
	Audit  AuditRecorder
	Stats  StatsInvalidator
	Logger *slog.Logger
}

// Changed records entry and invalidates the actor's cached stats.
func (c ChangeRecorder) Changed(ctx context.Context, entry AuditLog) {
	if c.Audit != nil {
		if err := c.Audit.Record(ctx, entry); err != nil {
			c.warn("audit record failed", entry, err)
		}
	}
	if c.Stats != nil && entry.ActorID > 0 {
		if err := c.Stats.Bump(ctx, entry.ActorID); err != nil {
			c.warn("stats invalidate failed", entry, err)
		}
	}
}

func (c ChangeRecorder) warn(msg string, entry AuditLog, err error) {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn(msg,
		slog.String("entity", entry.Entity),
		slog.Int64("entity_id", entry.EntityID),
		slog.String("action", entry.Action),
		slog.Any("error", err))
}
