package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ahmetcoskunkizilkaya/social-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/cursor"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/models"
)

// GraphService owns follow and block edges. A follow and a block between the
// same pair never coexist: both writes lock the pair's user rows first.
type GraphService struct {
	db       *gorm.DB
	cfg      *config.Config
	users    *UserService
	notifier *NotificationService
}

func NewGraphService(db *gorm.DB, cfg *config.Config, users *UserService, notifier *NotificationService) *GraphService {
	return &GraphService{db: db, cfg: cfg, users: users, notifier: notifier}
}

func (s *GraphService) Follow(ctx context.Context, followerID, followeeID uuid.UUID) error {
	if followerID == followeeID {
		return apperr.BadRequest("cannot follow yourself")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPair(tx, followerID, followeeID); err != nil {
			return err
		}

		var n int64
		if err := tx.Model(&models.Block{}).
			Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)",
				followerID, followeeID, followeeID, followerID).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return apperr.Forbidden("cannot follow this user")
		}

		if err := tx.Model(&models.Follow{}).
			Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflict("already following")
		}

		return tx.Create(&models.Follow{FollowerID: followerID, FolloweeID: followeeID}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Conflict("already following")
		}
		return apperr.FromStore(err, "follow")
	}

	s.notifier.Emit(ctx, Event{
		Type:       models.NotificationFollow,
		ActorID:    followerID,
		Recipients: []uuid.UUID{followeeID},
	})
	return nil
}

// Unfollow reports whether an edge was removed. A missing edge is not an
// error.
func (s *GraphService) Unfollow(ctx context.Context, followerID, followeeID uuid.UUID) (bool, error) {
	if followerID == followeeID {
		return false, apperr.BadRequest("cannot unfollow yourself")
	}
	res := s.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&models.Follow{})
	if res.Error != nil {
		return false, apperr.FromStore(res.Error, "follow")
	}
	return res.RowsAffected > 0, nil
}

// Block removes follow edges in both directions and creates the block in one
// transaction.
func (s *GraphService) Block(ctx context.Context, blockerID, blockedID uuid.UUID) error {
	if blockerID == blockedID {
		return apperr.BadRequest("cannot block yourself")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPair(tx, blockerID, blockedID); err != nil {
			return err
		}

		var n int64
		if err := tx.Model(&models.Block{}).
			Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflict("user already blocked")
		}

		if err := tx.Where("(follower_id = ? AND followee_id = ?) OR (follower_id = ? AND followee_id = ?)",
			blockerID, blockedID, blockedID, blockerID).
			Delete(&models.Follow{}).Error; err != nil {
			return err
		}
		return tx.Create(&models.Block{BlockerID: blockerID, BlockedID: blockedID}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Conflict("user already blocked")
		}
		return apperr.FromStore(err, "block")
	}

	slog.InfoContext(ctx, "user blocked", "blocker_id", blockerID.String(), "blocked_id", blockedID.String())
	return nil
}

// Unblock reports whether a block was removed. Follow edges removed by the
// block are not restored.
func (s *GraphService) Unblock(ctx context.Context, blockerID, blockedID uuid.UUID) (bool, error) {
	if blockerID == blockedID {
		return false, apperr.BadRequest("cannot unblock yourself")
	}
	res := s.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&models.Block{})
	if res.Error != nil {
		return false, apperr.FromStore(res.Error, "block")
	}
	return res.RowsAffected > 0, nil
}

func (s *GraphService) IsFollowing(ctx context.Context, followerID, followeeID uuid.UUID) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Count(&n).Error
	if err != nil {
		return false, apperr.FromStore(err, "follow")
	}
	return n > 0, nil
}

// edgeRow is a follow or block edge reduced to the user on the far side.
type edgeRow struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	CreatedAt time.Time
}

// ListFollowers pages the users following userID, most recent follow first.
func (s *GraphService) ListFollowers(ctx context.Context, userID uuid.UUID, page cursor.Page) (cursor.Connection[dto.UserSummary], error) {
	return s.listEdges(ctx, userID, page, "follows", "follower_id", "followee_id")
}

func (s *GraphService) ListFollowing(ctx context.Context, userID uuid.UUID, page cursor.Page) (cursor.Connection[dto.UserSummary], error) {
	return s.listEdges(ctx, userID, page, "follows", "followee_id", "follower_id")
}

func (s *GraphService) ListBlocked(ctx context.Context, blockerID uuid.UUID, page cursor.Page) (cursor.Connection[dto.UserSummary], error) {
	return s.listEdges(ctx, blockerID, page, "blocks", "blocked_id", "blocker_id")
}

func (s *GraphService) listEdges(ctx context.Context, userID uuid.UUID, page cursor.Page, table, farCol, nearCol string) (cursor.Connection[dto.UserSummary], error) {
	var empty cursor.Connection[dto.UserSummary]
	limit, after, err := page.Normalize(s.cfg.MaxPageSize)
	if err != nil {
		return empty, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	if err := s.requireUser(ctx, userID); err != nil {
		return empty, queryErr(ctx, err, "user")
	}

	var rows []edgeRow
	err = s.db.WithContext(ctx).Table(table).
		Select("id, "+farCol+" AS user_id, created_at").
		Where(nearCol+" = ?", userID).
		Scopes(cursor.After(after, "created_at", "id", limit)).
		Scan(&rows).Error
	if err != nil {
		return empty, queryErr(ctx, err, table)
	}

	conn := cursor.Build(rows, limit,
		func(r edgeRow) cursor.Key { return cursor.Key{T: r.CreatedAt, ID: r.ID} },
		func(r edgeRow) uuid.UUID { return r.UserID },
	)
	summaries, err := s.users.Summaries(ctx, conn.Nodes())
	if err != nil {
		return empty, queryErr(ctx, err, "users")
	}
	return cursor.Map(conn, func(id uuid.UUID) dto.UserSummary { return summaries[id] }), nil
}

// lockPair locks both user rows in id order so follow and block writes on
// the same pair run one after the other. Either user missing is NotFound.
func lockPair(tx *gorm.DB, a, b uuid.UUID) error {
	var users []models.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id IN ?", []uuid.UUID{a, b}).
		Order("id").
		Find(&users).Error; err != nil {
		return err
	}
	if len(users) != 2 {
		return apperr.NotFound("user not found")
	}
	return nil
}

func (s *GraphService) requireUser(ctx context.Context, id uuid.UUID) error {
	ok, err := s.users.exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("user not found")
	}
	return nil
}
