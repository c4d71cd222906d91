package sitetree

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// NoopEventSink is a no-operation implementation of EventSink.
// Useful when no event handling is needed or for testing.
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

// SiteCreated does nothing and returns nil
func (n *NoopEventSink) SiteCreated(ctx context.Context, site *Site) error { return nil }

// SiteDeleted does nothing and returns nil
func (n *NoopEventSink) SiteDeleted(ctx context.Context, siteID uuid.UUID) error { return nil }

// NodeAdded does nothing and returns nil
func (n *NoopEventSink) NodeAdded(ctx context.Context, siteID uuid.UUID, node Component) error {
	return nil
}

// NodeRemoved does nothing and returns nil
func (n *NoopEventSink) NodeRemoved(ctx context.Context, siteID, nodeID uuid.UUID) error {
	return nil
}

// AttachmentUploaded does nothing and returns nil
func (n *NoopEventSink) AttachmentUploaded(ctx context.Context, siteID uuid.UUID, objectKey string) error {
	return nil
}

// SessionCreated does nothing and returns nil
func (n *NoopEventSink) SessionCreated(ctx context.Context, session *Session) error { return nil }

// ValidationPassed does nothing and returns nil
func (n *NoopEventSink) ValidationPassed(check string) error { return nil }

// ValidationRejected does nothing and returns nil
func (n *NoopEventSink) ValidationRejected(check string, err error) error { return nil }

// LoggingEventSink logs every event through slog and takes no other action.
type LoggingEventSink struct {
	logger *slog.Logger
}

// NewLoggingEventSink creates an event sink that writes structured log lines
// for each event. A nil logger falls back to slog.Default().
func NewLoggingEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingEventSink{logger: logger}
}

// SiteCreated logs the site creation event
func (l *LoggingEventSink) SiteCreated(ctx context.Context, site *Site) error {
	l.logger.InfoContext(ctx, "site created", "site_id", site.ID, "name", site.Name)
	return nil
}

// SiteDeleted logs the site deletion event
func (l *LoggingEventSink) SiteDeleted(ctx context.Context, siteID uuid.UUID) error {
	l.logger.InfoContext(ctx, "site deleted", "site_id", siteID)
	return nil
}

// NodeAdded logs the node attachment event
func (l *LoggingEventSink) NodeAdded(ctx context.Context, siteID uuid.UUID, node Component) error {
	l.logger.InfoContext(ctx, "node added", "site_id", siteID, "node_id", node.ID(), "kind", node.Type(), "name", node.Name())
	return nil
}

// NodeRemoved logs the node removal event
func (l *LoggingEventSink) NodeRemoved(ctx context.Context, siteID, nodeID uuid.UUID) error {
	l.logger.InfoContext(ctx, "node removed", "site_id", siteID, "node_id", nodeID)
	return nil
}

// AttachmentUploaded logs the attachment upload event
func (l *LoggingEventSink) AttachmentUploaded(ctx context.Context, siteID uuid.UUID, objectKey string) error {
	l.logger.InfoContext(ctx, "attachment uploaded", "site_id", siteID, "object_key", objectKey)
	return nil
}

// SessionCreated logs the session issue event. The token itself is never
// logged.
func (l *LoggingEventSink) SessionCreated(ctx context.Context, session *Session) error {
	l.logger.InfoContext(ctx, "session created", "principal_id", session.PrincipalID)
	return nil
}

// ValidationPassed logs a passing gate check
func (l *LoggingEventSink) ValidationPassed(check string) error {
	l.logger.Debug("validation passed", "check", check)
	return nil
}

// ValidationRejected logs a failing gate check
func (l *LoggingEventSink) ValidationRejected(check string, err error) error {
	l.logger.Warn("validation rejected", "check", check, "error", err)
	return nil
}
