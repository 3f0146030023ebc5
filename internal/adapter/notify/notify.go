// Package notify delivers raised alerts out of band: a structured-log
// sink that is always safe, and an HTTP webhook sink for wiring real
// escalation channels. Dispatch subscribes a sink to the event bus so
// delivery never blocks the response path.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"caregate/internal/domain"
)

// LogSink writes alerts to the structured log. It never fails.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a log-only sink.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Name implements domain.NotificationSink.
func (s *LogSink) Name() string { return "log" }

// Publish implements domain.NotificationSink.
func (s *LogSink) Publish(_ context.Context, alert domain.Alert) error {
	s.logger.Warn("health alert raised",
		"alert_id", alert.ID,
		"type", alert.Type,
		"urgency", alert.Urgency,
		"reason", alert.Reason,
		"notify_targets", alert.NotifyTargets,
	)
	return nil
}

// WebhookSink POSTs alerts as JSON to a configured endpoint.
type WebhookSink struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewWebhookSink creates a webhook sink. timeout bounds each delivery.
func NewWebhookSink(url string, timeout time.Duration, logger *slog.Logger) *WebhookSink {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookSink{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Name implements domain.NotificationSink.
func (s *WebhookSink) Name() string { return "webhook" }

// Publish implements domain.NotificationSink.
func (s *WebhookSink) Publish(ctx context.Context, alert domain.Alert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert %s: %w", alert.ID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: create request: %v", domain.ErrNotifyFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNotifyFailed, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: webhook returned %d", domain.ErrNotifyFailed, resp.StatusCode)
	}
	return nil
}

// Dispatch subscribes sinks to alert events. Every sink receives every
// alert; a failing sink is logged and skipped. Returns the unsubscribe
// function.
//
// Delivery is detached from the publisher's context: the publish usually
// happens on an HTTP request context that is cancelled as soon as the
// response is written, which would abort in-flight webhook POSTs. Each
// sink bounds its own delivery time instead.
func Dispatch(bus domain.EventBus, logger *slog.Logger, sinks ...domain.NotificationSink) func() {
	return bus.Subscribe(domain.EventAlertRaised, func(ctx context.Context, event domain.Event) {
		var alert domain.Alert
		if err := json.Unmarshal(event.Payload, &alert); err != nil {
			logger.Error("malformed alert event payload",
				"session_id", event.SessionID, "error", err)
			return
		}
		ctx = context.WithoutCancel(ctx)
		for _, sink := range sinks {
			if err := sink.Publish(ctx, alert); err != nil {
				logger.Error("alert delivery failed",
					"sink", sink.Name(),
					"alert_id", alert.ID,
					"error", err,
				)
			}
		}
	})
}

var (
	_ domain.NotificationSink = (*LogSink)(nil)
	_ domain.NotificationSink = (*WebhookSink)(nil)
)
