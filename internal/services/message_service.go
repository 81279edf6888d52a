package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"artisan-marketplace/internal/events"
	"artisan-marketplace/internal/models"
	"artisan-marketplace/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ReadReceipt tells a sender that the counterpart has read their messages.
// ReceiverID is the user being notified.
type ReadReceipt struct {
	ReceiverID uuid.UUID `json:"receiverId"`
	ReaderID   uuid.UUID `json:"readerId"`
	Count      int64     `json:"count"`
	ReadAt     time.Time `json:"readAt"`
}

// MessageService handles the admin/artisan support chat
type MessageService struct {
	messages  repository.MessageRepository
	users     repository.UserRepository
	publisher EventPublisher
	notifier  Notifier
	relayed   bool
	now       func() time.Time
	log       *logrus.Entry
}

// NewMessageService creates a new MessageService. Live delivery calls the
// notifier directly until SetRelayed reports a running NATS relay.
func NewMessageService(messages repository.MessageRepository, users repository.UserRepository, publisher EventPublisher, notifier Notifier, log *logrus.Logger) *MessageService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &MessageService{
		messages:  messages,
		users:     users,
		publisher: publisherOrNoop(publisher),
		notifier:  notifier,
		now:       time.Now,
		log:       log.WithField("component", "message_service"),
	}
}

// counterpartRole is the only role a user of the given role may talk to
func counterpartRole(role models.Role) (models.Role, bool) {
	switch role {
	case models.RoleAdmin:
		return models.RoleArtisan, true
	case models.RoleArtisan:
		return models.RoleAdmin, true
	}
	return "", false
}

func (s *MessageService) counterpart(ctx context.Context, role models.Role, counterpartID uuid.UUID) (*models.User, error) {
	want, ok := counterpartRole(role)
	if !ok {
		return nil, ErrForbidden
	}
	user, err := s.users.GetByID(ctx, counterpartID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if user.Role != want {
		return nil, ErrForbidden
	}
	return user, nil
}

// Send stores a message from an admin to an artisan or the other way round
func (s *MessageService) Send(ctx context.Context, senderID uuid.UUID, senderRole models.Role, req models.SendMessageRequest) (*models.AdminMessage, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, validationError("message content is required")
	}
	if utf8.RuneCountInString(content) > models.MaxMessageLength {
		return nil, validationError("message must be at most %d characters", models.MaxMessageLength)
	}
	receiverID, err := uuid.Parse(req.ReceiverID)
	if err != nil {
		return nil, validationError("invalid receiver id")
	}
	if receiverID == senderID {
		return nil, validationError("cannot message yourself")
	}
	if _, err := s.counterpart(ctx, senderRole, receiverID); err != nil {
		return nil, err
	}

	msg := &models.AdminMessage{
		SenderID:   senderID,
		ReceiverID: receiverID,
		SenderRole: senderRole,
		Content:    content,
		CreatedAt:  s.now(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	s.deliver(ctx, msg.ReceiverID, events.SubjectMessageSent, msg)
	s.log.WithFields(logrus.Fields{"message_id": msg.ID, "sender_id": senderID, "receiver_id": receiverID}).Debug("Message sent")
	return msg, nil
}

// SetRelayed records whether a relay consuming message events is running.
// Only then does a successful publish replace the local push.
func (s *MessageService) SetRelayed(relayed bool) {
	s.relayed = relayed
}

func (s *MessageService) deliver(ctx context.Context, to uuid.UUID, subject string, data interface{}) {
	if s.publisher.Enabled() {
		err := s.publisher.Publish(ctx, subject, data)
		if err == nil && s.relayed {
			return
		}
		if err != nil {
			s.log.WithError(err).WithField("subject", subject).Warn("Failed to publish message event, pushing locally")
		}
	}
	s.notifier.SendToUser(to, subject, data)
}

// Conversation returns the thread between the caller and a counterpart,
// oldest first. With markRead the caller's unread incoming messages are
// marked read before the page is loaded.
func (s *MessageService) Conversation(ctx context.Context, userID uuid.UUID, role models.Role, counterpartID uuid.UUID, page, limit int, markRead bool) ([]models.AdminMessage, int64, error) {
	if _, err := s.counterpart(ctx, role, counterpartID); err != nil {
		return nil, 0, err
	}
	if markRead {
		if _, err := s.MarkRead(ctx, userID, counterpartID); err != nil {
			return nil, 0, err
		}
	}
	return s.messages.Conversation(ctx, userID, counterpartID, page, limit)
}

// Conversations is the caller's inbox, newest first
func (s *MessageService) Conversations(ctx context.Context, userID uuid.UUID, role models.Role) ([]models.ConversationSummary, error) {
	if _, ok := counterpartRole(role); !ok {
		return nil, ErrForbidden
	}
	return s.messages.Conversations(ctx, userID)
}

// MarkRead marks everything the counterpart sent to the reader as read and
// notifies the counterpart when anything changed.
func (s *MessageService) MarkRead(ctx context.Context, readerID, counterpartID uuid.UUID) (int64, error) {
	at := s.now()
	count, err := s.messages.MarkRead(ctx, readerID, counterpartID, at)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.deliver(ctx, counterpartID, events.SubjectMessageRead, ReadReceipt{
			ReceiverID: counterpartID,
			ReaderID:   readerID,
			Count:      count,
			ReadAt:     at,
		})
	}
	return count, nil
}

// UnreadCount is the number of unread messages addressed to the user
func (s *MessageService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.messages.UnreadCount(ctx, userID)
}

// Contacts lists the users the caller may start a conversation with
func (s *MessageService) Contacts(ctx context.Context, role models.Role, search string, page, limit int) ([]models.User, int64, error) {
	want, ok := counterpartRole(role)
	if !ok {
		return nil, 0, ErrForbidden
	}
	return s.users.List(ctx, repository.UserFilters{Role: &want, Search: search, Page: page, Limit: limit})
}
