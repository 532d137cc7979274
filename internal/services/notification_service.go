package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/social-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/cursor"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/models"
)

// Event is one graph or engagement action. Mentions carry several
// recipients and produce one notification each.
type Event struct {
	Type       models.NotificationType
	ActorID    uuid.UUID
	Recipients []uuid.UUID
	EntityID   *uuid.UUID
}

type NotificationService struct {
	db    *gorm.DB
	cfg   *config.Config
	users *UserService
}

func NewNotificationService(db *gorm.DB, cfg *config.Config, users *UserService) *NotificationService {
	return &NotificationService{db: db, cfg: cfg, users: users}
}

// Emit writes the notifications for ev. It runs after the triggering edge has
// committed; failures are logged and never returned, so a lost notification
// can not undo the edge. Recipients who block the actor are skipped, as is
// the actor itself.
func (s *NotificationService) Emit(ctx context.Context, ev Event) {
	ctx = context.WithoutCancel(ctx)

	recipients := make([]uuid.UUID, 0, len(ev.Recipients))
	for _, id := range uniqueIDs(ev.Recipients) {
		if id != ev.ActorID {
			recipients = append(recipients, id)
		}
	}
	if len(recipients) == 0 {
		return
	}

	db := s.db.WithContext(ctx)
	var blockers []uuid.UUID
	if err := db.Model(&models.Block{}).
		Where("blocked_id = ? AND blocker_id IN ?", ev.ActorID, recipients).
		Pluck("blocker_id", &blockers).Error; err != nil {
		slog.ErrorContext(ctx, "notification block lookup failed", "type", string(ev.Type), "error", err)
		return
	}
	blocked := make(map[uuid.UUID]bool, len(blockers))
	for _, id := range blockers {
		blocked[id] = true
	}

	rows := make([]models.Notification, 0, len(recipients))
	for _, id := range recipients {
		if blocked[id] {
			continue
		}
		rows = append(rows, models.Notification{
			RecipientID: id,
			ActorID:     ev.ActorID,
			Type:        ev.Type,
			EntityID:    ev.EntityID,
		})
	}
	if len(rows) == 0 {
		return
	}
	if err := db.Create(&rows).Error; err != nil {
		slog.ErrorContext(ctx, "failed to emit notifications",
			"type", string(ev.Type),
			"actor_id", ev.ActorID.String(),
			"count", len(rows),
			"error", err,
		)
	}
}

// List returns the user's notifications newest first.
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, page cursor.Page, unreadOnly bool) (cursor.Connection[dto.NotificationNode], error) {
	var empty cursor.Connection[dto.NotificationNode]
	limit, after, err := page.Normalize(s.cfg.MaxPageSize)
	if err != nil {
		return empty, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	q := s.db.WithContext(ctx).Where("recipient_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	var rows []models.Notification
	if err := q.Scopes(cursor.After(after, "created_at", "id", limit)).Find(&rows).Error; err != nil {
		return empty, queryErr(ctx, err, "notifications")
	}

	conn := cursor.Build(rows, limit,
		func(n models.Notification) cursor.Key { return cursor.Key{T: n.CreatedAt, ID: n.ID} },
		func(n models.Notification) models.Notification { return n },
	)

	actorIDs := make([]uuid.UUID, 0, len(conn.Edges))
	for _, e := range conn.Edges {
		actorIDs = append(actorIDs, e.Node.ActorID)
	}
	actors, err := s.users.Summaries(ctx, actorIDs)
	if err != nil {
		return empty, queryErr(ctx, err, "users")
	}

	return cursor.Map(conn, func(n models.Notification) dto.NotificationNode {
		return dto.NotificationNode{
			ID:        n.ID,
			Type:      string(n.Type),
			Actor:     actors[n.ActorID],
			EntityID:  n.EntityID,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		}
	}), nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	if err != nil {
		return 0, apperr.FromStore(err, "notifications")
	}
	return n, nil
}

// MarkAsRead fails NotFound for notifications that are not the caller's.
func (s *NotificationService) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error {
	db := s.db.WithContext(ctx)
	var n models.Notification
	if err := db.Where("id = ? AND recipient_id = ?", id, userID).First(&n).Error; err != nil {
		return apperr.FromStore(err, "notification")
	}
	if n.IsRead {
		return nil
	}
	if err := db.Model(&n).Update("is_read", true).Error; err != nil {
		return apperr.FromStore(err, "notification")
	}
	return nil
}

// MarkAllAsRead returns how many notifications went from unread to read.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, apperr.FromStore(res.Error, "notifications")
	}
	return res.RowsAffected, nil
}
