package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/social-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/models"
)

// PostService handles post writes and engagement edges. Counters on posts
// change only inside the transaction that writes the matching edge.
type PostService struct {
	db       *gorm.DB
	resolver *PostResolver
	notifier *NotificationService
}

func NewPostService(db *gorm.DB, resolver *PostResolver, notifier *NotificationService) *PostService {
	return &PostService{db: db, resolver: resolver, notifier: notifier}
}

func (s *PostService) CreatePost(ctx context.Context, authorID uuid.UUID, req *dto.CreatePostRequest) (*dto.PostNode, error) {
	return s.create(ctx, authorID, nil, req)
}

// ReplyToPost creates a reply to a post the author can see.
func (s *PostService) ReplyToPost(ctx context.Context, authorID, parentID uuid.UUID, req *dto.CreatePostRequest) (*dto.PostNode, error) {
	parent, err := s.visiblePost(ctx, &authorID, parentID)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, authorID, parent, req)
}

func (s *PostService) create(ctx context.Context, authorID uuid.UUID, parent *models.Post, req *dto.CreatePostRequest) (*dto.PostNode, error) {
	content, err := cleanContent(req.Content)
	if err != nil {
		return nil, err
	}
	visibility := models.Visibility(strings.ToUpper(req.Visibility))
	if visibility == "" {
		visibility = models.VisibilityPublic
	}
	if !visibility.Valid() {
		return nil, apperr.BadRequest("visibility must be PUBLIC, FOLLOWERS or PRIVATE")
	}
	if len(req.MediaURLs) > maxMediaURLs {
		return nil, apperr.BadRequest("at most 4 media urls are allowed")
	}
	media, err := json.Marshal(nonNil(req.MediaURLs))
	if err != nil {
		return nil, apperr.BadRequest("invalid media urls")
	}

	mentioned, err := s.lookupMentions(ctx, content)
	if err != nil {
		return nil, err
	}

	post := models.Post{
		AuthorID:   authorID,
		Content:    content,
		Visibility: visibility,
		MediaURLs:  datatypes.JSON(media),
	}
	if parent != nil {
		post.ParentID = &parent.ID
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&post).Error; err != nil {
			return err
		}
		if err := writeExtracted(tx, post.ID, content, mentioned); err != nil {
			return err
		}
		if parent != nil {
			return tx.Model(&models.Post{}).Where("id = ?", parent.ID).
				UpdateColumn("reply_count", gorm.Expr("reply_count + 1")).Error
		}
		return nil
	})
	if err != nil {
		return nil, apperr.FromStore(err, "post")
	}

	if parent != nil {
		s.notifier.Emit(ctx, Event{
			Type:       models.NotificationReply,
			ActorID:    authorID,
			Recipients: []uuid.UUID{parent.AuthorID},
			EntityID:   &post.ID,
		})
	}
	s.emitMentions(ctx, authorID, post.ID, mentioned)

	return s.node(ctx, &authorID, post)
}

// UpdatePost is owner-only. Hashtags and mentions are re-extracted; only
// users not mentioned before are notified.
func (s *PostService) UpdatePost(ctx context.Context, userID, postID uuid.UUID, req *dto.UpdatePostRequest) (*dto.PostNode, error) {
	post, err := s.visiblePost(ctx, &userID, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != userID {
		return nil, apperr.Forbidden("you can only edit your own posts")
	}

	updates := map[string]interface{}{}
	content := post.Content
	if req.Content != nil {
		if content, err = cleanContent(*req.Content); err != nil {
			return nil, err
		}
		updates["content"] = content
	}
	if req.Visibility != nil {
		v := models.Visibility(strings.ToUpper(*req.Visibility))
		if !v.Valid() {
			return nil, apperr.BadRequest("visibility must be PUBLIC, FOLLOWERS or PRIVATE")
		}
		updates["visibility"] = v
	}
	if len(updates) == 0 {
		return s.node(ctx, &userID, *post)
	}

	var previous []uuid.UUID
	if err := s.db.WithContext(ctx).Model(&models.PostMention{}).
		Where("post_id = ?", postID).Pluck("user_id", &previous).Error; err != nil {
		return nil, apperr.FromStore(err, "mentions")
	}
	mentioned, err := s.lookupMentions(ctx, content)
	if err != nil {
		return nil, err
	}

	updates["updated_at"] = models.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Post{}).Where("id = ?", postID).Updates(updates).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.PostHashtag{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.PostMention{}).Error; err != nil {
			return err
		}
		return writeExtracted(tx, postID, content, mentioned)
	})
	if err != nil {
		return nil, apperr.FromStore(err, "post")
	}

	known := make(map[uuid.UUID]bool, len(previous))
	for _, id := range previous {
		known[id] = true
	}
	fresh := mentioned[:0:0]
	for _, u := range mentioned {
		if !known[u.ID] {
			fresh = append(fresh, u)
		}
	}
	s.emitMentions(ctx, userID, postID, fresh)

	updated, err := s.loadPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	return s.node(ctx, &userID, *updated)
}

// DeletePost is owner-only. It removes the post with its engagement edges,
// extracted rows and notifications, and decrements the parent's reply count.
// Replies to the post are kept and detached: their parent_id is cleared.
func (s *PostService) DeletePost(ctx context.Context, userID, postID uuid.UUID) error {
	post, err := s.visiblePost(ctx, &userID, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != userID {
		return apperr.Forbidden("you can only delete your own posts")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&models.Like{}, &models.Bookmark{}, &models.Repost{}, &models.PostHashtag{}, &models.PostMention{}} {
			if err := tx.Where("post_id = ?", postID).Delete(model).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("entity_id = ?", postID).Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Post{}).Where("parent_id = ?", postID).
			UpdateColumn("parent_id", nil).Error; err != nil {
			return err
		}
		if post.ParentID != nil {
			if err := tx.Model(&models.Post{}).Where("id = ? AND reply_count > 0", *post.ParentID).
				UpdateColumn("reply_count", gorm.Expr("reply_count - 1")).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Post{}, "id = ?", postID).Error
	})
	return apperr.FromStore(err, "post")
}

// GetPost returns the post if viewer may see it, NotFound otherwise.
func (s *PostService) GetPost(ctx context.Context, viewer *uuid.UUID, postID uuid.UUID) (*dto.PostNode, error) {
	post, err := s.visiblePost(ctx, viewer, postID)
	if err != nil {
		return nil, err
	}
	return s.node(ctx, viewer, *post)
}

func (s *PostService) LikePost(ctx context.Context, userID, postID uuid.UUID) error {
	return s.addEdge(ctx, userID, postID, &models.Like{UserID: userID, PostID: postID}, "like_count", models.NotificationLike, "post already liked")
}

func (s *PostService) UnlikePost(ctx context.Context, userID, postID uuid.UUID) (bool, error) {
	return s.removeEdge(ctx, userID, postID, &models.Like{}, "like_count")
}

func (s *PostService) BookmarkPost(ctx context.Context, userID, postID uuid.UUID) error {
	return s.addEdge(ctx, userID, postID, &models.Bookmark{UserID: userID, PostID: postID}, "", "", "post already bookmarked")
}

func (s *PostService) UnbookmarkPost(ctx context.Context, userID, postID uuid.UUID) (bool, error) {
	return s.removeEdge(ctx, userID, postID, &models.Bookmark{}, "")
}

func (s *PostService) RepostPost(ctx context.Context, userID, postID uuid.UUID) error {
	return s.addEdge(ctx, userID, postID, &models.Repost{UserID: userID, PostID: postID}, "repost_count", models.NotificationRepost, "post already reposted")
}

func (s *PostService) UnrepostPost(ctx context.Context, userID, postID uuid.UUID) (bool, error) {
	return s.removeEdge(ctx, userID, postID, &models.Repost{}, "repost_count")
}

// addEdge inserts a (user, post) edge and bumps counter in one transaction.
// A duplicate edge fails Conflict through the pair's unique index.
func (s *PostService) addEdge(ctx context.Context, userID, postID uuid.UUID, edge interface{}, counter string, notify models.NotificationType, conflict string) error {
	post, err := s.visiblePost(ctx, &userID, postID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(edge).Error; err != nil {
			return err
		}
		if counter == "" {
			return nil
		}
		return tx.Model(&models.Post{}).Where("id = ?", postID).
			UpdateColumn(counter, gorm.Expr(counter+" + 1")).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Conflict(conflict)
		}
		return apperr.FromStore(err, "post")
	}

	if notify != "" {
		s.notifier.Emit(ctx, Event{
			Type:       notify,
			ActorID:    userID,
			Recipients: []uuid.UUID{post.AuthorID},
			EntityID:   &post.ID,
		})
	}
	return nil
}

// removeEdge reports whether an edge was removed. A missing edge is not an
// error.
func (s *PostService) removeEdge(ctx context.Context, userID, postID uuid.UUID, model interface{}, counter string) (bool, error) {
	removed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND post_id = ?", userID, postID).Delete(model)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		removed = true
		if counter == "" {
			return nil
		}
		return tx.Model(&models.Post{}).Where("id = ? AND "+counter+" > 0", postID).
			UpdateColumn(counter, gorm.Expr(counter+" - 1")).Error
	})
	if err != nil {
		return false, apperr.FromStore(err, "post")
	}
	return removed, nil
}

func (s *PostService) visiblePost(ctx context.Context, viewer *uuid.UUID, postID uuid.UUID) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).Model(&models.Post{}).
		Scopes(visibleTo(viewer)).
		Where("posts.id = ?", postID).
		First(&post).Error
	if err != nil {
		return nil, apperr.FromStore(err, "post")
	}
	return &post, nil
}

func (s *PostService) loadPost(ctx context.Context, postID uuid.UUID) (*models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).First(&post, "id = ?", postID).Error; err != nil {
		return nil, apperr.FromStore(err, "post")
	}
	return &post, nil
}

func (s *PostService) node(ctx context.Context, viewer *uuid.UUID, post models.Post) (*dto.PostNode, error) {
	nodes, err := s.resolver.Resolve(ctx, viewer, []models.Post{post})
	if err != nil {
		return nil, err
	}
	n := nodes[post.ID]
	return &n, nil
}

// lookupMentions resolves @usernames in content to existing users.
func (s *PostService) lookupMentions(ctx context.Context, content string) ([]models.User, error) {
	names := ExtractMentions(content)
	if len(names) == 0 {
		return nil, nil
	}
	var users []models.User
	if err := s.db.WithContext(ctx).Where("username IN ?", names).Find(&users).Error; err != nil {
		return nil, apperr.FromStore(err, "users")
	}
	return users, nil
}

func (s *PostService) emitMentions(ctx context.Context, actorID, postID uuid.UUID, mentioned []models.User) {
	if len(mentioned) == 0 {
		return
	}
	recipients := make([]uuid.UUID, len(mentioned))
	for i, u := range mentioned {
		recipients[i] = u.ID
	}
	s.notifier.Emit(ctx, Event{
		Type:       models.NotificationMention,
		ActorID:    actorID,
		Recipients: recipients,
		EntityID:   &postID,
	})
}

func writeExtracted(tx *gorm.DB, postID uuid.UUID, content string, mentioned []models.User) error {
	if tags := ExtractHashtags(content); len(tags) > 0 {
		rows := make([]models.PostHashtag, len(tags))
		for i, t := range tags {
			rows[i] = models.PostHashtag{PostID: postID, Tag: t}
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
	}
	if len(mentioned) > 0 {
		rows := make([]models.PostMention, len(mentioned))
		for i, u := range mentioned {
			rows[i] = models.PostMention{PostID: postID, UserID: u.ID, Username: u.Username}
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
	}
	return nil
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
