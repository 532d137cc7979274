package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Visibility string

const (
	VisibilityPublic    Visibility = "PUBLIC"
	VisibilityFollowers Visibility = "FOLLOWERS"
	VisibilityPrivate   Visibility = "PRIVATE"
)

func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityFollowers, VisibilityPrivate:
		return true
	}
	return false
}

// Post is a top-level post or, with ParentID set, a reply. The counters are
// only changed inside the transaction that writes the matching edge.
type Post struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AuthorID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"author_id"`
	ParentID    *uuid.UUID     `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	Content     string         `gorm:"type:text;not null" json:"content"`
	Visibility  Visibility     `gorm:"size:16;not null;default:'PUBLIC';index" json:"visibility"`
	MediaURLs   datatypes.JSON `json:"media_urls"`
	LikeCount   int64          `gorm:"not null;default:0" json:"like_count"`
	ReplyCount  int64          `gorm:"not null;default:0" json:"reply_count"`
	RepostCount int64          `gorm:"not null;default:0" json:"repost_count"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	ensureTime(&p.CreatedAt)
	if p.Visibility == "" {
		p.Visibility = VisibilityPublic
	}
	return nil
}

// PostHashtag is one normalized hashtag extracted from a post at write time.
type PostHashtag struct {
	PostID uuid.UUID `gorm:"type:uuid;primaryKey" json:"post_id"`
	Tag    string    `gorm:"size:100;primaryKey;index" json:"tag"`
}

// PostMention links a post to a user mentioned in its content.
type PostMention struct {
	PostID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"post_id"`
	UserID   uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"user_id"`
	Username string    `gorm:"size:40;not null" json:"username"`
}
