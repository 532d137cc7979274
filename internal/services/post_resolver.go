package services

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/social-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/models"
)

// PostResolver fills the computed fields of a page of posts with one query
// per field rather than one per post.
type PostResolver struct {
	db    *gorm.DB
	users *UserService
}

func NewPostResolver(db *gorm.DB, users *UserService) *PostResolver {
	return &PostResolver{db: db, users: users}
}

// Resolve returns the nodes keyed by post id. viewer may be nil, in which
// case every is* flag is false.
func (r *PostResolver) Resolve(ctx context.Context, viewer *uuid.UUID, posts []models.Post) (map[uuid.UUID]dto.PostNode, error) {
	out := make(map[uuid.UUID]dto.PostNode, len(posts))
	if len(posts) == 0 {
		return out, nil
	}

	ids := make([]uuid.UUID, len(posts))
	authorIDs := make([]uuid.UUID, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
		authorIDs[i] = p.AuthorID
	}

	authors, err := r.users.Summaries(ctx, authorIDs)
	if err != nil {
		return nil, err
	}

	db := r.db.WithContext(ctx)
	var tags []models.PostHashtag
	if err := db.Where("post_id IN ?", ids).Find(&tags).Error; err != nil {
		return nil, apperr.FromStore(err, "hashtags")
	}
	var mentions []models.PostMention
	if err := db.Where("post_id IN ?", ids).Find(&mentions).Error; err != nil {
		return nil, apperr.FromStore(err, "mentions")
	}

	tagsOf := map[uuid.UUID][]string{}
	for _, t := range tags {
		tagsOf[t.PostID] = append(tagsOf[t.PostID], t.Tag)
	}
	mentionsOf := map[uuid.UUID][]string{}
	for _, m := range mentions {
		mentionsOf[m.PostID] = append(mentionsOf[m.PostID], m.Username)
	}

	var liked, bookmarked, reposted map[uuid.UUID]bool
	if viewer != nil {
		if liked, err = r.viewerEdges(ctx, &models.Like{}, *viewer, ids); err != nil {
			return nil, err
		}
		if bookmarked, err = r.viewerEdges(ctx, &models.Bookmark{}, *viewer, ids); err != nil {
			return nil, err
		}
		if reposted, err = r.viewerEdges(ctx, &models.Repost{}, *viewer, ids); err != nil {
			return nil, err
		}
	}

	for _, p := range posts {
		node := dto.PostNode{
			ID:           p.ID,
			Author:       authors[p.AuthorID],
			ParentID:     p.ParentID,
			Content:      p.Content,
			Visibility:   string(p.Visibility),
			MediaURLs:    mediaURLs(p.MediaURLs),
			Hashtags:     sortedOrEmpty(tagsOf[p.ID]),
			Mentions:     sortedOrEmpty(mentionsOf[p.ID]),
			LikesCount:   p.LikeCount,
			RepliesCount: p.ReplyCount,
			RepostsCount: p.RepostCount,
			IsLiked:      liked[p.ID],
			IsBookmarked: bookmarked[p.ID],
			IsReposted:   reposted[p.ID],
			CreatedAt:    p.CreatedAt,
			UpdatedAt:    p.UpdatedAt,
		}
		out[p.ID] = node
	}
	return out, nil
}

func (r *PostResolver) viewerEdges(ctx context.Context, model interface{}, viewer uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	var postIDs []uuid.UUID
	err := r.db.WithContext(ctx).Model(model).
		Where("user_id = ? AND post_id IN ?", viewer, ids).
		Pluck("post_id", &postIDs).Error
	if err != nil {
		return nil, apperr.FromStore(err, "engagement")
	}
	set := make(map[uuid.UUID]bool, len(postIDs))
	for _, id := range postIDs {
		set[id] = true
	}
	return set, nil
}

func mediaURLs(raw []byte) []string {
	urls := []string{}
	if len(raw) == 0 {
		return urls
	}
	_ = json.Unmarshal(raw, &urls)
	if urls == nil {
		urls = []string{}
	}
	return urls
}

func sortedOrEmpty(v []string) []string {
	if v == nil {
		return []string{}
	}
	sort.Strings(v)
	return v
}
