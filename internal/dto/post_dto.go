package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreatePostRequest struct {
	Content    string   `json:"content" validate:"required,max=500"`
	Visibility string   `json:"visibility" validate:"omitempty,oneof=PUBLIC FOLLOWERS PRIVATE"`
	MediaURLs  []string `json:"media_urls" validate:"omitempty,max=4,dive,url,max=500"`
}

// UpdatePostRequest leaves nil fields unchanged.
type UpdatePostRequest struct {
	Content    *string `json:"content" validate:"omitempty,max=500"`
	Visibility *string `json:"visibility" validate:"omitempty,oneof=PUBLIC FOLLOWERS PRIVATE"`
}

// PostNode is a post as returned to a particular viewer.
type PostNode struct {
	ID           uuid.UUID   `json:"id"`
	Author       UserSummary `json:"author"`
	ParentID     *uuid.UUID  `json:"parent_id,omitempty"`
	Content      string      `json:"content"`
	Visibility   string      `json:"visibility"`
	MediaURLs    []string    `json:"media_urls"`
	Hashtags     []string    `json:"hashtags"`
	Mentions     []string    `json:"mentions"`
	LikesCount   int64       `json:"likes_count"`
	RepliesCount int64       `json:"replies_count"`
	RepostsCount int64       `json:"reposts_count"`
	IsLiked      bool        `json:"is_liked"`
	IsBookmarked bool        `json:"is_bookmarked"`
	IsReposted   bool        `json:"is_reposted"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

type NotificationNode struct {
	ID        uuid.UUID   `json:"id"`
	Type      string      `json:"type"`
	Actor     UserSummary `json:"actor"`
	EntityID  *uuid.UUID  `json:"entity_id,omitempty"`
	IsRead    bool        `json:"is_read"`
	CreatedAt time.Time   `json:"created_at"`
}

type UnreadCountResponse struct {
	Count int64 `json:"count"`
}
