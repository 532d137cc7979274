package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/social-backend/internal/cursor"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/services"
)

// UserHandler serves profiles and the follow/block graph.
type UserHandler struct {
	users *services.UserService
	graph *services.GraphService
}

func NewUserHandler(users *services.UserService, graph *services.GraphService) *UserHandler {
	return &UserHandler{users: users, graph: graph}
}

func (h *UserHandler) Me(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return RespondError(c, err)
	}
	user, err := h.users.GetUser(c.UserContext(), userID)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(dto.UserResponse{
		UserSummary: dto.UserSummary{
			ID:          user.ID,
			Username:    user.Username,
			DisplayName: user.DisplayName,
			AvatarURL:   user.AvatarURL,
		},
		Email: user.Email,
	})
}

func (h *UserHandler) UpdateMe(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return RespondError(c, err)
	}
	var req dto.UpdateProfileRequest
	if err := bindJSON(c, &req); err != nil {
		return RespondError(c, err)
	}

	resp, err := h.users.UpdateProfile(c.UserContext(), userID, &req)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(resp)
}

func (h *UserHandler) Profile(c *fiber.Ctx) error {
	profile, err := h.users.GetProfile(c.UserContext(), c.Params("username"), middleware.ViewerID(c))
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(profile)
}

func (h *UserHandler) Followers(c *fiber.Ctx) error {
	return h.list(c, h.graph.ListFollowers)
}

func (h *UserHandler) Following(c *fiber.Ctx) error {
	return h.list(c, h.graph.ListFollowing)
}

type listFunc func(ctx context.Context, id uuid.UUID, page cursor.Page) (cursor.Connection[dto.UserSummary], error)

func (h *UserHandler) list(c *fiber.Ctx, fn listFunc) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return RespondError(c, err)
	}
	page, err := pageFrom(c)
	if err != nil {
		return RespondError(c, err)
	}
	conn, err := fn(c.UserContext(), id, page)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(conn)
}

func (h *UserHandler) Blocks(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return RespondError(c, err)
	}
	page, err := pageFrom(c)
	if err != nil {
		return RespondError(c, err)
	}
	conn, err := h.graph.ListBlocked(c.UserContext(), userID, page)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(conn)
}

func (h *UserHandler) Follow(c *fiber.Ctx) error {
	return h.edge(c, func(ctx context.Context, actor, target uuid.UUID) (bool, error) {
		return true, h.graph.Follow(ctx, actor, target)
	})
}

func (h *UserHandler) Unfollow(c *fiber.Ctx) error {
	return h.edge(c, h.graph.Unfollow)
}

func (h *UserHandler) Block(c *fiber.Ctx) error {
	return h.edge(c, func(ctx context.Context, actor, target uuid.UUID) (bool, error) {
		return true, h.graph.Block(ctx, actor, target)
	})
}

func (h *UserHandler) Unblock(c *fiber.Ctx) error {
	return h.edge(c, h.graph.Unblock)
}

// edge runs a graph mutation from the caller to the :id user and reports
// whether anything changed.
func (h *UserHandler) edge(c *fiber.Ctx, fn func(ctx context.Context, actor, target uuid.UUID) (bool, error)) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return RespondError(c, err)
	}
	targetID, err := uuidParam(c, "id")
	if err != nil {
		return RespondError(c, err)
	}
	ok, err := fn(c.UserContext(), userID, targetID)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(dto.SuccessResponse{Success: ok})
}
