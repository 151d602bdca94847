package goSession

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/goSession/internal/audit"
)

// AuditEvent is one session lifecycle record. Token values are never included.
type AuditEvent = audit.Event

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink = audit.Sink

// NoOpSink drops audit events.
type NoOpSink = audit.NoOpSink

// ChannelSink buffers audit events in a channel.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = audit.JSONWriterSink

// MultiSink forwards each event to every sink it holds.
type MultiSink = audit.MultiSink

// AuditSinkFunc adapts a function to AuditSink.
type AuditSinkFunc = audit.SinkFunc

// NewChannelSink returns a ChannelSink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a JSONWriterSink writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// Audit event types.
const (
	AuditEventBootstrap           = "bootstrap"
	AuditEventLogin               = "login"
	AuditEventRegister            = "register"
	AuditEventProviderLogin       = "provider_login"
	AuditEventRefresh             = "refresh"
	AuditEventLogout              = "logout"
	AuditEventBackgroundExpiry    = "background_expiry"
	AuditEventGatewayForcedLogout = "gateway_forced_logout"
)

// SlogSink writes audit events as structured log records.
type SlogSink struct {
	logger *slog.Logger
	level  slog.Level
}

// NewSlogSink returns a sink logging at level through logger (slog.Default when nil).
func NewSlogSink(logger *slog.Logger, level slog.Level) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger, level: level}
}

func (s *SlogSink) Emit(ctx context.Context, event AuditEvent) {
	attrs := make([]slog.Attr, 0, 5+len(event.Metadata))
	attrs = append(attrs,
		slog.String("id", event.ID),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
	)
	if event.UserID != 0 {
		attrs = append(attrs, slog.Int64("user_id", event.UserID))
	}
	if event.Error != "" {
		attrs = append(attrs, slog.String("error", event.Error))
	}
	for k, v := range event.Metadata {
		attrs = append(attrs, slog.String(k, v))
	}
	s.logger.LogAttrs(ctx, s.level, "goSession: audit", attrs...)
}

func (c *Controller) emitAudit(ctx context.Context, eventType string, success bool, userID int64, err error, metadata map[string]string) {
	if c.audit == nil {
		return
	}

	event := AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: c.clock.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		Success:   success,
		Metadata:  metadata,
	}
	if err != nil {
		event.Error = err.Error()
	}

	c.audit.Emit(ctx, event)
}

// AuditDropped returns the number of events dropped by a full dispatcher buffer.
func (c *Controller) AuditDropped() uint64 {
	if c == nil {
		return 0
	}
	return c.audit.Dropped()
}

func durationMetadata(key string, d time.Duration) map[string]string {
	return map[string]string{key: strconv.FormatInt(d.Milliseconds(), 10)}
}
