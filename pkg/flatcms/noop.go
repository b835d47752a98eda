package flatcms

import (
	"context"
	"log/slog"
)

// NoopEventSink is an EventSink that does nothing.
type NoopEventSink struct{}

// NewNoopEventSink creates a no-op event sink.
func NewNoopEventSink() *NoopEventSink {
	return &NoopEventSink{}
}

func (s *NoopEventSink) ItemCreated(ctx context.Context, contentType string, item *ContentItem) error {
	return nil
}

func (s *NoopEventSink) ItemUpdated(ctx context.Context, contentType string, item *ContentItem) error {
	return nil
}

func (s *NoopEventSink) ItemDeleted(ctx context.Context, contentType, id string) error {
	return nil
}

func (s *NoopEventSink) VersionCreated(ctx context.Context, contentType, id, versionID string) error {
	return nil
}

func (s *NoopEventSink) QueryExecuted(ctx context.Context, contentType string, total int) error {
	return nil
}

// LoggingEventSink logs every lifecycle event through slog.
type LoggingEventSink struct {
	logger *slog.Logger
}

// NewLoggingEventSink creates an event sink that logs events. A nil logger
// falls back to slog.Default().
func NewLoggingEventSink(logger *slog.Logger) *LoggingEventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingEventSink{logger: logger}
}

func (s *LoggingEventSink) ItemCreated(ctx context.Context, contentType string, item *ContentItem) error {
	s.logger.Info("item created", "content_type", contentType, "id", item.ID, "status", item.Status)
	return nil
}

func (s *LoggingEventSink) ItemUpdated(ctx context.Context, contentType string, item *ContentItem) error {
	s.logger.Info("item updated", "content_type", contentType, "id", item.ID, "status", item.Status)
	return nil
}

func (s *LoggingEventSink) ItemDeleted(ctx context.Context, contentType, id string) error {
	s.logger.Info("item deleted", "content_type", contentType, "id", id)
	return nil
}

func (s *LoggingEventSink) VersionCreated(ctx context.Context, contentType, id, versionID string) error {
	s.logger.Info("version created", "content_type", contentType, "id", id, "version_id", versionID)
	return nil
}

func (s *LoggingEventSink) QueryExecuted(ctx context.Context, contentType string, total int) error {
	s.logger.Debug("query executed", "content_type", contentType, "total", total)
	return nil
}

// MultiEventSink fans events out to several sinks. Delivery continues past
// failures; the first error is returned.
type MultiEventSink struct {
	sinks []EventSink
}

// NewMultiEventSink composes several sinks into one.
func NewMultiEventSink(sinks ...EventSink) *MultiEventSink {
	return &MultiEventSink{sinks: sinks}
}

func (s *MultiEventSink) each(deliver func(EventSink) error) error {
	var first error
	for _, sink := range s.sinks {
		if err := deliver(sink); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (s *MultiEventSink) ItemCreated(ctx context.Context, contentType string, item *ContentItem) error {
	return s.each(func(sink EventSink) error { return sink.ItemCreated(ctx, contentType, item) })
}

func (s *MultiEventSink) ItemUpdated(ctx context.Context, contentType string, item *ContentItem) error {
	return s.each(func(sink EventSink) error { return sink.ItemUpdated(ctx, contentType, item) })
}

func (s *MultiEventSink) ItemDeleted(ctx context.Context, contentType, id string) error {
	return s.each(func(sink EventSink) error { return sink.ItemDeleted(ctx, contentType, id) })
}

func (s *MultiEventSink) VersionCreated(ctx context.Context, contentType, id, versionID string) error {
	return s.each(func(sink EventSink) error { return sink.VersionCreated(ctx, contentType, id, versionID) })
}

func (s *MultiEventSink) QueryExecuted(ctx context.Context, contentType string, total int) error {
	return s.each(func(sink EventSink) error { return sink.QueryExecuted(ctx, contentType, total) })
}
