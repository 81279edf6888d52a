package repository

import (
	"context"
	"fmt"
	"time"

	"artisan-marketplace/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageRepository defines the interface for admin/artisan chat storage
type MessageRepository interface {
	Create(ctx context.Context, msg *models.AdminMessage) error
	Conversation(ctx context.Context, userID, counterpartID uuid.UUID, page, limit int) ([]models.AdminMessage, int64, error)
	Conversations(ctx context.Context, userID uuid.UUID) ([]models.ConversationSummary, error)
	MarkRead(ctx context.Context, readerID, senderID uuid.UUID, at time.Time) (int64, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *models.AdminMessage) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// Conversation returns the messages exchanged by the pair, oldest first
func (r *messageRepository) Conversation(ctx context.Context, userID, counterpartID uuid.UUID, page, limit int) ([]models.AdminMessage, int64, error) {
	var messages []models.AdminMessage
	var total int64

	query := r.db.WithContext(ctx).Model(&models.AdminMessage{}).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userID, counterpartID, counterpartID, userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}

	query = paginate(query, page, limit)
	if err := query.Order("created_at ASC, id ASC").Find(&messages).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, total, nil
}

const conversationsSQL = `
WITH ranked AS (
	SELECT
		CASE WHEN sender_id = @me THEN receiver_id ELSE sender_id END AS counterpart_id,
		content,
		sender_id,
		created_at,
		ROW_NUMBER() OVER (
			PARTITION BY CASE WHEN sender_id = @me THEN receiver_id ELSE sender_id END
			ORDER BY created_at DESC, id DESC
		) AS rn
	FROM admin_messages
	WHERE sender_id = @me OR receiver_id = @me
),
unread AS (
	SELECT sender_id AS counterpart_id, COUNT(*) AS unread_count
	FROM admin_messages
	WHERE receiver_id = @me AND is_read = FALSE
	GROUP BY sender_id
)
SELECT
	ranked.counterpart_id,
	users.name AS counterpart_name,
	users.role AS counterpart_role,
	users.shop_name,
	ranked.content AS last_message,
	ranked.sender_id AS last_sender_id,
	ranked.created_at AS last_message_at,
	COALESCE(unread.unread_count, 0) AS unread_count
FROM ranked
JOIN users ON users.id = ranked.counterpart_id
LEFT JOIN unread ON unread.counterpart_id = ranked.counterpart_id
WHERE ranked.rn = 1
ORDER BY ranked.created_at DESC`

// Conversations returns one summary per counterpart, most recent first
func (r *messageRepository) Conversations(ctx context.Context, userID uuid.UUID) ([]models.ConversationSummary, error) {
	var summaries []models.ConversationSummary
	err := r.db.WithContext(ctx).
		Raw(conversationsSQL, map[string]interface{}{"me": userID}).
		Scan(&summaries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return summaries, nil
}

// MarkRead flags every unread message from senderID to readerID as read
func (r *messageRepository) MarkRead(ctx context.Context, readerID, senderID uuid.UUID, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.AdminMessage{}).
		Where("receiver_id = ? AND sender_id = ? AND is_read = ?", readerID, senderID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *messageRepository) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.AdminMessage{}).
		Where("receiver_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}
