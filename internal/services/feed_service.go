package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/social-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/cursor"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/models"
)

// trendingCandidates caps how many recent posts are scored per page.
const trendingCandidates = 500

type UserPostsFilter string

const (
	FilterThreads UserPostsFilter = "THREADS"
	FilterReplies UserPostsFilter = "REPLIES"
	FilterReposts UserPostsFilter = "REPOSTS"
)

func ParseUserPostsFilter(s string) (UserPostsFilter, error) {
	switch f := UserPostsFilter(strings.ToUpper(s)); f {
	case "":
		return FilterThreads, nil
	case FilterThreads, FilterReplies, FilterReposts:
		return f, nil
	}
	return "", apperr.BadRequest("filter must be THREADS, REPLIES or REPOSTS")
}

type PostConnection = cursor.Connection[dto.PostNode]

// FeedService assembles paginated post lists. Every query runs under the
// configured timeout; a timeout is reported as a retryable error, never as
// an empty page.
type FeedService struct {
	db       *gorm.DB
	cfg      *config.Config
	resolver *PostResolver
	users    *UserService
}

func NewFeedService(db *gorm.DB, cfg *config.Config, resolver *PostResolver, users *UserService) *FeedService {
	return &FeedService{db: db, cfg: cfg, resolver: resolver, users: users}
}

// HomeFeed lists posts by users the viewer follows.
func (s *FeedService) HomeFeed(ctx context.Context, viewer *uuid.UUID, page cursor.Page) (PostConnection, error) {
	if viewer == nil {
		return PostConnection{}, apperr.Unauthenticated("sign in to see your home feed")
	}
	v := *viewer
	return s.chronological(ctx, viewer, page, visibleTo(viewer), func(db *gorm.DB) *gorm.DB {
		return db.Where("posts.author_id IN (SELECT followee_id FROM follows WHERE follower_id = ?)", v)
	})
}

// PublicFeed lists every PUBLIC post newest first.
func (s *FeedService) PublicFeed(ctx context.Context, viewer *uuid.UUID, page cursor.Page) (PostConnection, error) {
	return s.chronological(ctx, viewer, page, publicTo(viewer))
}

// HashtagFeed lists PUBLIC posts carrying tag.
func (s *FeedService) HashtagFeed(ctx context.Context, tag string, viewer *uuid.UUID, page cursor.Page) (PostConnection, error) {
	tag = NormalizeTag(tag)
	if tag == "" {
		return PostConnection{}, apperr.BadRequest("hashtag is required")
	}
	return s.chronological(ctx, viewer, page, publicTo(viewer), func(db *gorm.DB) *gorm.DB {
		return db.Where("posts.id IN (SELECT post_id FROM post_hashtags WHERE tag = ?)", tag)
	})
}

// Replies lists direct replies to a post the viewer can see.
func (s *FeedService) Replies(ctx context.Context, postID uuid.UUID, viewer *uuid.UUID, page cursor.Page) (PostConnection, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Post{}).Scopes(visibleTo(viewer)).
		Where("posts.id = ?", postID).Count(&n).Error; err != nil {
		return PostConnection{}, apperr.FromStore(err, "post")
	}
	if n == 0 {
		return PostConnection{}, apperr.NotFound("post not found")
	}
	return s.chronological(ctx, viewer, page, visibleTo(viewer), func(db *gorm.DB) *gorm.DB {
		return db.Where("posts.parent_id = ?", postID)
	})
}

// UserPosts lists a user's threads, replies or reposts as seen by viewer.
func (s *FeedService) UserPosts(ctx context.Context, targetID uuid.UUID, viewer *uuid.UUID, page cursor.Page, filter UserPostsFilter) (PostConnection, error) {
	ok, err := s.users.exists(ctx, targetID)
	if err != nil {
		return PostConnection{}, err
	}
	if !ok {
		return PostConnection{}, apperr.NotFound("user not found")
	}

	switch filter {
	case FilterReplies:
		return s.chronological(ctx, viewer, page, visibleTo(viewer), func(db *gorm.DB) *gorm.DB {
			return db.Where("posts.author_id = ? AND posts.parent_id IS NOT NULL", targetID)
		})
	case FilterReposts:
		return s.byEdge(ctx, viewer, page, "reposts", targetID)
	default:
		return s.chronological(ctx, viewer, page, visibleTo(viewer), func(db *gorm.DB) *gorm.DB {
			return db.Where("posts.author_id = ? AND posts.parent_id IS NULL", targetID)
		})
	}
}

// Bookmarks lists the viewer's bookmarked posts by bookmark time.
func (s *FeedService) Bookmarks(ctx context.Context, viewer *uuid.UUID, page cursor.Page) (PostConnection, error) {
	if viewer == nil {
		return PostConnection{}, apperr.Unauthenticated("sign in to see your bookmarks")
	}
	return s.byEdge(ctx, viewer, page, "bookmarks", *viewer)
}

// chronological lists posts matching vis and scopes, newest first.
func (s *FeedService) chronological(ctx context.Context, viewer *uuid.UUID, page cursor.Page, vis postScope, scopes ...postScope) (PostConnection, error) {
	limit, after, err := page.Normalize(s.cfg.MaxPageSize)
	if err != nil {
		return PostConnection{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	var posts []models.Post
	err = s.db.WithContext(ctx).Model(&models.Post{}).
		Scopes(scopes...).
		Scopes(vis, cursor.After(after, "posts.created_at", "posts.id", limit)).
		Find(&posts).Error
	if err != nil {
		return PostConnection{}, queryErr(ctx, err, "posts")
	}

	conn := cursor.Build(posts, limit, postKey, identity[models.Post])
	return s.resolve(ctx, viewer, conn)
}

// edgePost is a post together with the creation time of the edge that put it
// in the list.
type edgePost struct {
	models.Post `gorm:"embedded"`
	EdgeAt      time.Time
}

// byEdge lists posts joined through a (user, post) edge table, ordered by the
// edge's creation time.
func (s *FeedService) byEdge(ctx context.Context, viewer *uuid.UUID, page cursor.Page, table string, userID uuid.UUID) (PostConnection, error) {
	limit, after, err := page.Normalize(s.cfg.MaxPageSize)
	if err != nil {
		return PostConnection{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	var rows []edgePost
	err = s.db.WithContext(ctx).Table("posts").
		Select("posts.*, e.created_at AS edge_at").
		Joins("JOIN "+table+" e ON e.post_id = posts.id").
		Where("e.user_id = ?", userID).
		Scopes(visibleTo(viewer), cursor.After(after, "e.created_at", "posts.id", limit)).
		Scan(&rows).Error
	if err != nil {
		return PostConnection{}, queryErr(ctx, err, "posts")
	}

	conn := cursor.Build(rows, limit,
		func(r edgePost) cursor.Key { return cursor.Key{T: r.EdgeAt, ID: r.ID} },
		func(r edgePost) models.Post { return r.Post },
	)
	return s.resolve(ctx, viewer, conn)
}

// Trending ranks recent PUBLIC posts by
//
//	(likes*2 + replies*3 + reposts*2.5) / (ageHours + 2)
//
// relative to an asOf instant fixed by the first page and carried in every
// cursor, so one traversal scores all pages against the same clock. Ties go
// to the newer post, then the larger id.
func (s *FeedService) Trending(ctx context.Context, viewer *uuid.UUID, page cursor.Page) (PostConnection, error) {
	limit, after, err := page.Normalize(s.cfg.MaxPageSize)
	if err != nil {
		return PostConnection{}, err
	}
	asOf := models.Now()
	if after != nil {
		if after.Score == nil || after.AsOf == nil {
			return PostConnection{}, apperr.BadRequest("cursor does not belong to the trending feed")
		}
		asOf = after.AsOf.UTC()
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	var posts []models.Post
	err = s.db.WithContext(ctx).Model(&models.Post{}).
		Scopes(publicTo(viewer)).
		Where("posts.created_at > ? AND posts.created_at <= ?", asOf.Add(-s.cfg.TrendingWindow), asOf).
		Order("posts.created_at DESC").Order("posts.id DESC").
		Limit(trendingCandidates).
		Find(&posts).Error
	if err != nil {
		return PostConnection{}, queryErr(ctx, err, "posts")
	}

	ranked := make([]scoredPost, 0, len(posts))
	for _, p := range posts {
		sp := scoredPost{Post: p, Score: TrendingScore(p, asOf)}
		if after == nil || sp.after(*after) {
			ranked = append(ranked, sp)
		}
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[j].after(ranked[i].key(asOf)) })
	if len(ranked) > limit+1 {
		ranked = ranked[:limit+1]
	}

	conn := cursor.Build(ranked, limit,
		func(sp scoredPost) cursor.Key { return sp.key(asOf) },
		func(sp scoredPost) models.Post { return sp.Post },
	)
	return s.resolve(ctx, viewer, conn)
}

type scoredPost struct {
	models.Post
	Score float64
}

func (sp scoredPost) key(asOf time.Time) cursor.Key {
	score := sp.Score
	return cursor.Key{T: sp.CreatedAt, ID: sp.ID, Score: &score, AsOf: &asOf}
}

// after reports whether sp sorts strictly after k in trending order.
func (sp scoredPost) after(k cursor.Key) bool {
	if sp.Score != *k.Score {
		return sp.Score < *k.Score
	}
	return cursor.Before(k, sp.CreatedAt, sp.ID)
}

// TrendingScore is deterministic for equal counters and asOf.
func TrendingScore(p models.Post, asOf time.Time) float64 {
	ageHours := asOf.Sub(p.CreatedAt).Hours()
	if ageHours < 0 {
		ageHours = 0
	}
	engagement := float64(p.LikeCount)*2 + float64(p.ReplyCount)*3 + float64(p.RepostCount)*2.5
	return engagement / (ageHours + 2)
}

func (s *FeedService) resolve(ctx context.Context, viewer *uuid.UUID, conn cursor.Connection[models.Post]) (PostConnection, error) {
	nodes, err := s.resolver.Resolve(ctx, viewer, conn.Nodes())
	if err != nil {
		return PostConnection{}, queryErr(ctx, err, "posts")
	}
	return cursor.Map(conn, func(p models.Post) dto.PostNode { return nodes[p.ID] }), nil
}

func postKey(p models.Post) cursor.Key { return cursor.Key{T: p.CreatedAt, ID: p.ID} }

func identity[T any](v T) T { return v }

// queryErr prefers the context error so a timeout surfaces as retryable even
// when the driver wraps it in its own error type.
func queryErr(ctx context.Context, err error, entity string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return apperr.FromStore(ctxErr, entity)
	}
	return apperr.FromStore(err, entity)
}
