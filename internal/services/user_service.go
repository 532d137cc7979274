package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/social-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/cache"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/models"
)

// UserService is the user directory: lookups, profile reads with
// relationship counts, and profile updates.
type UserService struct {
	db    *gorm.DB
	cache *cache.UserCache
}

func NewUserService(db *gorm.DB, userCache *cache.UserCache) *UserService {
	return &UserService{db: db, cache: userCache}
}

func toSummary(u *models.User) dto.UserSummary {
	return dto.UserSummary{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, apperr.FromStore(err, "user")
	}
	return &user, nil
}

func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", strings.ToLower(strings.TrimSpace(username))).First(&user).Error
	if err != nil {
		return nil, apperr.FromStore(err, "user")
	}
	return &user, nil
}

// GetProfile returns a user's public profile as seen by viewer (nil for
// guests).
func (s *UserService) GetProfile(ctx context.Context, username string, viewer *uuid.UUID) (*dto.UserProfile, error) {
	user, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	profile := &dto.UserProfile{
		UserSummary: toSummary(user),
		Bio:         user.Bio,
		CreatedAt:   user.CreatedAt,
	}
	if err := db.Model(&models.Follow{}).Where("followee_id = ?", user.ID).Count(&profile.FollowersCount).Error; err != nil {
		return nil, apperr.FromStore(err, "followers")
	}
	if err := db.Model(&models.Follow{}).Where("follower_id = ?", user.ID).Count(&profile.FollowingCount).Error; err != nil {
		return nil, apperr.FromStore(err, "following")
	}

	if viewer != nil && *viewer != user.ID {
		var n int64
		if err := db.Model(&models.Follow{}).Where("follower_id = ? AND followee_id = ?", *viewer, user.ID).Count(&n).Error; err != nil {
			return nil, apperr.FromStore(err, "follow")
		}
		profile.IsFollowing = n > 0
		if err := db.Model(&models.Block{}).Where("blocker_id = ? AND blocked_id = ?", *viewer, user.ID).Count(&n).Error; err != nil {
			return nil, apperr.FromStore(err, "block")
		}
		profile.IsBlocked = n > 0
	}
	return profile, nil
}

// UpdateProfile applies the non-nil fields. The cached summary is dropped
// inside the write transaction, and again after commit so a concurrent
// read-through cannot leave the old snapshot behind.
func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, req *dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	updates := map[string]interface{}{}
	if req.DisplayName != nil {
		updates["display_name"] = strings.TrimSpace(*req.DisplayName)
	}
	if req.Bio != nil {
		updates["bio"] = strings.TrimSpace(*req.Bio)
	}
	if req.AvatarURL != nil {
		updates["avatar_url"] = strings.TrimSpace(*req.AvatarURL)
	}
	if req.Username != nil {
		username := strings.ToLower(strings.TrimSpace(*req.Username))
		if username == "" {
			return nil, apperr.BadRequest("username cannot be empty")
		}
		var n int64
		if err := s.db.WithContext(ctx).Model(&models.User{}).
			Where("username = ? AND id <> ?", username, userID).Count(&n).Error; err != nil {
			return nil, apperr.FromStore(err, "user")
		}
		if n > 0 {
			return nil, apperr.Conflict("username already taken")
		}
		updates["username"] = username
	}

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			return err
		}
		if len(updates) > 0 {
			updates["updated_at"] = models.Now()
			if err := tx.Model(&user).Updates(updates).Error; err != nil {
				return err
			}
		}
		return s.cache.Invalidate(ctx, userID)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("username already taken")
		}
		return nil, apperr.FromStore(err, "user")
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		slog.ErrorContext(ctx, "user cache invalidation failed", "user_id", userID.String(), "error", err)
	}
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, apperr.FromStore(err, "user")
	}

	return &dto.UserResponse{UserSummary: toSummary(&user), Email: user.Email}, nil
}

// Summaries loads user summaries for ids, reading through the cache. Unknown
// ids are absent from the result.
func (s *UserService) Summaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]dto.UserSummary, error) {
	ids = uniqueIDs(ids)
	found, missing := s.cache.GetMany(ctx, ids)
	if len(missing) == 0 {
		return found, nil
	}

	var users []models.User
	if err := s.db.WithContext(ctx).Where("id IN ?", missing).Find(&users).Error; err != nil {
		return nil, apperr.FromStore(err, "users")
	}
	loaded := make([]dto.UserSummary, 0, len(users))
	for i := range users {
		summary := toSummary(&users[i])
		found[summary.ID] = summary
		loaded = append(loaded, summary)
	}
	s.cache.SetMany(ctx, loaded)
	return found, nil
}

func (s *UserService) exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, apperr.FromStore(err, "user")
	}
	return n > 0, nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
