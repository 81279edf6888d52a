package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound           = errors.New("resource not found")
	ErrForbidden          = errors.New("not allowed to access this resource")
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrArtisanNotVerified = errors.New("artisan account is not verified yet")
	ErrProductUnavailable = errors.New("product is not available")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrConflict           = errors.New("resource was modified concurrently")
	ErrPaymentsDisabled   = errors.New("payments are not configured")
	ErrAlreadyPaid        = errors.New("order is already paid")
	ErrNotRefundable      = errors.New("no captured payment to refund")
	ErrInvalidSignature   = errors.New("payment signature verification failed")
	ErrAIUnavailable      = errors.New("AI generation is not configured")
	ErrAIResponse         = errors.New("AI returned an unreadable response")
	ErrMediaUnavailable   = errors.New("media storage is not configured")
)

// EventPublisher is satisfied by *events.Publisher
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Enabled() bool
}

// Notifier pushes realtime events to a connected user
type Notifier interface {
	SendToUser(userID uuid.UUID, eventType string, data interface{})
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, interface{}) error { return nil }
func (noopPublisher) Enabled() bool                                      { return false }

type noopNotifier struct{}

func (noopNotifier) SendToUser(uuid.UUID, string, interface{}) {}

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}
