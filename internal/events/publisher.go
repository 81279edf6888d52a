// Package events publishes marketplace domain events to NATS JetStream.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"
)

// StreamName is the JetStream stream holding every marketplace event
const StreamName = "MARKETPLACE_EVENTS"

// Subjects
const (
	SubjectOrderPlaced        = "order.placed"
	SubjectOrderStatusChanged = "order.status_changed"
	SubjectOrderCancelled     = "order.cancelled"
	SubjectPaymentCaptured    = "payment.captured"
	SubjectPaymentFailed      = "payment.failed"
	SubjectPaymentRefunded    = "payment.refunded"
	SubjectMessageSent        = "message.sent"
	SubjectMessageRead        = "message.read"
	SubjectProductCreated     = "product.created"
	SubjectProductUpdated     = "product.updated"
	SubjectProductDeleted     = "product.deleted"
)

var streamSubjects = []string{"order.>", "payment.>", "message.>", "product.>"}

// Envelope wraps every published payload
type Envelope struct {
	ID        string          `json:"id"`
	Type      string          `json:"eventType"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Publisher publishes events. A nil *Publisher or one built without a NATS URL
// is valid and drops events.
type Publisher struct {
	nc  *nats.Conn
	js  jetstream.JetStream
	log *logrus.Entry
}

// NewPublisher connects to NATS and ensures the stream exists. An empty url
// returns a disabled publisher.
func NewPublisher(ctx context.Context, url string, log *logrus.Logger) (*Publisher, error) {
	entry := log.WithField("component", "events")
	if url == "" {
		entry.Info("NATS_URL not configured, event publishing disabled")
		return &Publisher{log: entry}, nil
	}

	nc, err := nats.Connect(url,
		nats.Name("artisan-marketplace"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			entry.Infof("Reconnected to %s", nc.ConnectedUrl())
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			entry.WithError(err).Warn("Disconnected from NATS")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			entry.Info("NATS connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      StreamName,
		Subjects:  streamSubjects,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Storage:   jetstream.FileStorage,
		Replicas:  1,
	})
	if err != nil {
		entry.WithError(err).Warnf("Could not create %s stream", StreamName)
	}

	entry.Info("✓ Connected to NATS JetStream")
	return &Publisher{nc: nc, js: js, log: entry}, nil
}

// Enabled reports whether events actually leave the process
func (p *Publisher) Enabled() bool {
	return p != nil && p.js != nil
}

// JetStream exposes the stream context for subscribers
func (p *Publisher) JetStream() jetstream.JetStream {
	if p == nil {
		return nil
	}
	return p.js
}

// Publish sends data on subject. Failures are logged and returned; callers
// treat events as best-effort.
func (p *Publisher) Publish(ctx context.Context, subject string, data interface{}) error {
	if !p.Enabled() {
		return nil
	}

	payload, err := encode(subject, data)
	if err != nil {
		return err
	}

	if _, err := p.js.Publish(ctx, subject, payload); err != nil {
		p.log.WithError(err).WithField("subject", subject).Warn("Failed to publish event")
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}
	return nil
}

func encode(subject string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event data: %w", err)
	}
	payload, err := json.Marshal(Envelope{
		ID:        uuid.NewString(),
		Type:      subject,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return payload, nil
}

// Close drains the connection
func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	_ = p.nc.Drain()
}
