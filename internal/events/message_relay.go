package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"
)

// UserNotifier pushes an event to a user's live connections
type UserNotifier interface {
	SendToUser(userID uuid.UUID, eventType string, data interface{})
}

// RelayedMessage is the subset of a message.* payload needed for routing
type RelayedMessage struct {
	ReceiverID uuid.UUID `json:"receiverId"`
	SenderID   uuid.UUID `json:"senderId"`
}

// MessageRelay consumes message.* events and pushes them to the WebSocket
// connections held by this instance, so replicas deliver chat in real time
// regardless of which one accepted the send.
type MessageRelay struct {
	js       jetstream.JetStream
	notifier UserNotifier
	log      *logrus.Entry
}

func NewMessageRelay(js jetstream.JetStream, notifier UserNotifier, log *logrus.Logger) *MessageRelay {
	return &MessageRelay{js: js, notifier: notifier, log: log.WithField("component", "message_relay")}
}

// Start consumes until ctx is done. Every instance uses its own ephemeral
// consumer starting at new messages.
func (r *MessageRelay) Start(ctx context.Context) error {
	hostname, _ := os.Hostname()
	consumer, err := r.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Name:              fmt.Sprintf("message-relay-%s-%s", hostname, uuid.NewString()[:8]),
		FilterSubject:     "message.>",
		AckPolicy:         jetstream.AckExplicitPolicy,
		DeliverPolicy:     jetstream.DeliverNewPolicy,
		InactiveThreshold: 5 * time.Minute,
	})
	if err != nil {
		return fmt.Errorf("failed to create message relay consumer: %w", err)
	}

	msgs, err := consumer.Messages()
	if err != nil {
		return fmt.Errorf("failed to get message iterator: %w", err)
	}

	go func() {
		<-ctx.Done()
		msgs.Stop()
	}()

	go func() {
		for {
			msg, err := msgs.Next()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				r.log.WithError(err).Warn("Error getting next relay message")
				time.Sleep(time.Second)
				continue
			}
			if err := r.Handle(msg.Subject(), msg.Data()); err != nil {
				r.log.WithError(err).Warn("Dropping malformed relay message")
			}
			_ = msg.Ack()
		}
	}()

	r.log.Info("Message relay started")
	return nil
}

// Handle routes one raw event to the receiver
func (r *MessageRelay) Handle(subject string, data []byte) error {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	var routed RelayedMessage
	if err := json.Unmarshal(env.Data, &routed); err != nil {
		return fmt.Errorf("failed to unmarshal message event: %w", err)
	}
	if routed.ReceiverID == uuid.Nil {
		return errors.New("message event without receiver")
	}

	var payload interface{}
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return fmt.Errorf("failed to decode message payload: %w", err)
	}
	r.notifier.SendToUser(routed.ReceiverID, subject, payload)
	return nil
}
