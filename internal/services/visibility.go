package services

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/social-backend/internal/models"
)

type postScope = func(db *gorm.DB) *gorm.DB

// visibleTo restricts a query over posts to the rows viewer may read. Guests
// (nil) see PUBLIC posts only. A signed-in viewer also sees their own posts
// and FOLLOWERS posts of users they follow, and never sees posts of a user
// on either side of a block with them.
func visibleTo(viewer *uuid.UUID) postScope {
	return func(db *gorm.DB) *gorm.DB {
		if viewer == nil {
			return db.Where("posts.visibility = ?", models.VisibilityPublic)
		}
		v := *viewer
		db = db.Where("(posts.visibility = ? OR posts.author_id = ? OR (posts.visibility = ? AND EXISTS (SELECT 1 FROM follows vf WHERE vf.follower_id = ? AND vf.followee_id = posts.author_id)))",
			models.VisibilityPublic, v, models.VisibilityFollowers, v)
		return notBlockedWith(v)(db)
	}
}

// publicTo restricts to PUBLIC posts, minus authors on either side of a
// block with a signed-in viewer.
func publicTo(viewer *uuid.UUID) postScope {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("posts.visibility = ?", models.VisibilityPublic)
		if viewer == nil {
			return db
		}
		return notBlockedWith(*viewer)(db)
	}
}

func notBlockedWith(v uuid.UUID) postScope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("NOT EXISTS (SELECT 1 FROM blocks vb WHERE (vb.blocker_id = ? AND vb.blocked_id = posts.author_id) OR (vb.blocker_id = posts.author_id AND vb.blocked_id = ?))",
			v, v)
	}
}
