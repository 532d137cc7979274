package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationFollow  NotificationType = "FOLLOW"
	NotificationLike    NotificationType = "LIKE"
	NotificationReply   NotificationType = "REPLY"
	NotificationMention NotificationType = "MENTION"
	NotificationRepost  NotificationType = "REPOST"
)

// Notification has exactly one recipient and one actor. EntityID points at
// the post involved, when there is one.
type Notification struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	RecipientID uuid.UUID        `gorm:"type:uuid;not null;index:idx_notifications_recipient,priority:1" json:"recipient_id"`
	ActorID     uuid.UUID        `gorm:"type:uuid;not null" json:"actor_id"`
	Type        NotificationType `gorm:"size:16;not null" json:"type"`
	EntityID    *uuid.UUID       `gorm:"type:uuid;index" json:"entity_id,omitempty"`
	IsRead      bool             `gorm:"not null;default:false" json:"is_read"`
	CreatedAt   time.Time        `gorm:"index:idx_notifications_recipient,priority:2" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	ensureID(&n.ID)
	ensureTime(&n.CreatedAt)
	return nil
}
