package models

import (
	"time"

	"github.com/google/uuid"
)

// MaxMessageLength bounds a single chat message
const MaxMessageLength = 5000

// AdminMessage is one row of the flat two-party conversation table between
// platform admins and artisans.
type AdminMessage struct {
	ID         uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	SenderID   uuid.UUID  `json:"senderId" gorm:"type:uuid;not null;index:idx_admin_messages_pair"`
	ReceiverID uuid.UUID  `json:"receiverId" gorm:"type:uuid;not null;index:idx_admin_messages_pair;index:idx_admin_messages_unread"`
	SenderRole Role       `json:"senderRole" gorm:"type:varchar(20);not null"`
	Content    string     `json:"content" gorm:"type:text;not null"`
	IsRead     bool       `json:"isRead" gorm:"not null;default:false;index:idx_admin_messages_unread"`
	ReadAt     *time.Time `json:"readAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt" gorm:"index"`
}

// TableName returns the table name for the AdminMessage model
func (AdminMessage) TableName() string {
	return "admin_messages"
}

// SendMessageRequest represents a new chat message
type SendMessageRequest struct {
	ReceiverID string `json:"receiverId" binding:"required"`
	Content    string `json:"content" binding:"required"`
}

// ConversationSummary is one row of a user's inbox
type ConversationSummary struct {
	CounterpartID   uuid.UUID `json:"counterpartId"`
	CounterpartName string    `json:"counterpartName"`
	CounterpartRole Role      `json:"counterpartRole"`
	ShopName        string    `json:"shopName,omitempty"`
	LastMessage     string    `json:"lastMessage"`
	LastSenderID    uuid.UUID `json:"lastSenderId"`
	LastMessageAt   time.Time `json:"lastMessageAt"`
	UnreadCount     int64     `json:"unreadCount"`
}
