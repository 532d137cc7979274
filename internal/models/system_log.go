package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SystemLog is an ERROR-level log record persisted for later querying.
type SystemLog struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Timestamp time.Time      `gorm:"not null;index" json:"timestamp"`
	Level     string         `gorm:"size:10;not null;index" json:"level"`
	Message   string         `gorm:"type:text" json:"message"`
	RequestID string         `gorm:"size:64;index" json:"request_id"`
	UserID    *string        `gorm:"size:36;index" json:"user_id"`
	Action    string         `gorm:"size:100" json:"action"`
	Error     string         `gorm:"type:text" json:"error"`
	Extra     datatypes.JSON `json:"extra"`
	CreatedAt time.Time      `json:"created_at"`
}

func (l *SystemLog) BeforeCreate(tx *gorm.DB) error {
	ensureID(&l.ID)
	ensureTime(&l.CreatedAt)
	return nil
}

// All returns every model migrated at startup.
func All() []interface{} {
	return []interface{}{
		&User{},
		&RefreshToken{},
		&PasswordResetToken{},
		&Follow{},
		&Block{},
		&Post{},
		&PostHashtag{},
		&PostMention{},
		&Like{},
		&Bookmark{},
		&Repost{},
		&Notification{},
		&SystemLog{},
	}
}
