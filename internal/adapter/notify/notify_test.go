package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caregate/internal/domain"
	"caregate/internal/infra/logger"
	"caregate/internal/usecase/eventbus"
)

func testAlert() domain.Alert {
	return domain.Alert{
		ID:            "a1",
		Type:          "emergency",
		Urgency:       domain.UrgencyCritical,
		Reason:        "critical keywords detected",
		NotifyTargets: []domain.NotifyTarget{domain.NotifyEmergencyServices},
		CreatedAt:     time.Now().UTC(),
	}
}

func TestLogSinkNeverFails(t *testing.T) {
	s := NewLogSink(logger.Discard())
	assert.NoError(t, s.Publish(context.Background(), testAlert()))
	assert.Equal(t, "log", s.Name())
}

func TestWebhookSinkDelivers(t *testing.T) {
	var got domain.Alert
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	s := NewWebhookSink(srv.URL, time.Second, logger.Discard())
	require.NoError(t, s.Publish(context.Background(), testAlert()))
	assert.Equal(t, "a1", got.ID)
	assert.Equal(t, domain.UrgencyCritical, got.Urgency)
}

func TestWebhookSinkNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewWebhookSink(srv.URL, time.Second, logger.Discard())
	err := s.Publish(context.Background(), testAlert())
	assert.ErrorIs(t, err, domain.ErrNotifyFailed)
}

func TestDispatchDeliversToAllSinks(t *testing.T) {
	bus := eventbus.New(logger.Discard())
	defer bus.Close()

	delivered := make(chan domain.Alert, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var alert domain.Alert
		if json.NewDecoder(r.Body).Decode(&alert) == nil {
			delivered <- alert
		}
	}))
	defer srv.Close()

	unsubscribe := Dispatch(bus, logger.Discard(),
		NewLogSink(logger.Discard()),
		NewWebhookSink(srv.URL, time.Second, logger.Discard()),
	)
	defer unsubscribe()

	payload, err := json.Marshal(testAlert())
	require.NoError(t, err)
	bus.Publish(context.Background(), domain.Event{
		Type:      domain.EventAlertRaised,
		UserID:    "u1",
		SessionID: "s1",
		Payload:   payload,
	})

	select {
	case alert := <-delivered:
		assert.Equal(t, "a1", alert.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("webhook never received the alert")
	}
}

func TestDispatchOutlivesPublisherContext(t *testing.T) {
	bus := eventbus.New(logger.Discard())
	defer bus.Close()

	// Slow endpoint plus a publish context cancelled mid-delivery, the way
	// an HTTP request context dies once the response is written. The alert
	// must still arrive.
	delivered := make(chan domain.Alert, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(150 * time.Millisecond)
		var alert domain.Alert
		if json.NewDecoder(r.Body).Decode(&alert) == nil {
			delivered <- alert
		}
	}))
	defer srv.Close()

	unsubscribe := Dispatch(bus, logger.Discard(),
		NewWebhookSink(srv.URL, time.Second, logger.Discard()),
	)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	payload, err := json.Marshal(testAlert())
	require.NoError(t, err)
	bus.Publish(ctx, domain.Event{
		Type:      domain.EventAlertRaised,
		UserID:    "u1",
		SessionID: "s1",
		Payload:   payload,
	})
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case alert := <-delivered:
		assert.Equal(t, "a1", alert.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("alert dropped after publisher context cancellation")
	}
}

func TestDispatchSurvivesFailingSink(t *testing.T) {
	bus := eventbus.New(logger.Discard())
	defer bus.Close()

	delivered := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		delivered <- struct{}{}
	}))
	defer srv.Close()

	// First sink points nowhere; the second must still get the alert.
	unsubscribe := Dispatch(bus, logger.Discard(),
		NewWebhookSink("http://127.0.0.1:1/unreachable", 100*time.Millisecond, logger.Discard()),
		NewWebhookSink(srv.URL, time.Second, logger.Discard()),
	)
	defer unsubscribe()

	payload, _ := json.Marshal(testAlert())
	bus.Publish(context.Background(), domain.Event{Type: domain.EventAlertRaised, Payload: payload})

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("second sink starved by failing first sink")
	}
}
