package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Like, Bookmark and Repost are (user, post) edges, unique per pair.

type Like struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_likes_pair,priority:1" json:"user_id"`
	PostID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_likes_pair,priority:2;index" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (l *Like) BeforeCreate(tx *gorm.DB) error {
	ensureID(&l.ID)
	ensureTime(&l.CreatedAt)
	return nil
}

type Bookmark struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_bookmarks_pair,priority:1" json:"user_id"`
	PostID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_bookmarks_pair,priority:2;index" json:"post_id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (b *Bookmark) BeforeCreate(tx *gorm.DB) error {
	ensureID(&b.ID)
	ensureTime(&b.CreatedAt)
	return nil
}

type Repost struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reposts_pair,priority:1" json:"user_id"`
	PostID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reposts_pair,priority:2;index" json:"post_id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (r *Repost) BeforeCreate(tx *gorm.DB) error {
	ensureID(&r.ID)
	ensureTime(&r.CreatedAt)
	return nil
}
