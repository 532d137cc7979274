package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/social-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/services"
)

type PostHandler struct {
	posts *services.PostService
}

func NewPostHandler(posts *services.PostService) *PostHandler {
	return &PostHandler{posts: posts}
}

func (h *PostHandler) Create(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return RespondError(c, err)
	}
	var req dto.CreatePostRequest
	if err := bindJSON(c, &req); err != nil {
		return RespondError(c, err)
	}

	node, err := h.posts.CreatePost(c.UserContext(), userID, &req)
	if err != nil {
		return RespondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(node)
}

func (h *PostHandler) Reply(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return RespondError(c, err)
	}
	parentID, err := uuidParam(c, "id")
	if err != nil {
		return RespondError(c, err)
	}
	var req dto.CreatePostRequest
	if err := bindJSON(c, &req); err != nil {
		return RespondError(c, err)
	}

	node, err := h.posts.ReplyToPost(c.UserContext(), userID, parentID, &req)
	if err != nil {
		return RespondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(node)
}

func (h *PostHandler) Get(c *fiber.Ctx) error {
	postID, err := uuidParam(c, "id")
	if err != nil {
		return RespondError(c, err)
	}
	node, err := h.posts.GetPost(c.UserContext(), middleware.ViewerID(c), postID)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(node)
}

func (h *PostHandler) Update(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return RespondError(c, err)
	}
	postID, err := uuidParam(c, "id")
	if err != nil {
		return RespondError(c, err)
	}
	var req dto.UpdatePostRequest
	if err := bindJSON(c, &req); err != nil {
		return RespondError(c, err)
	}

	node, err := h.posts.UpdatePost(c.UserContext(), userID, postID, &req)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(node)
}

func (h *PostHandler) Delete(c *fiber.Ctx) error {
	return h.engage(c, func(ctx context.Context, userID, postID uuid.UUID) (bool, error) {
		return true, h.posts.DeletePost(ctx, userID, postID)
	})
}

func (h *PostHandler) Like(c *fiber.Ctx) error {
	return h.engage(c, func(ctx context.Context, userID, postID uuid.UUID) (bool, error) {
		return true, h.posts.LikePost(ctx, userID, postID)
	})
}

func (h *PostHandler) Unlike(c *fiber.Ctx) error {
	return h.engage(c, h.posts.UnlikePost)
}

func (h *PostHandler) Bookmark(c *fiber.Ctx) error {
	return h.engage(c, func(ctx context.Context, userID, postID uuid.UUID) (bool, error) {
		return true, h.posts.BookmarkPost(ctx, userID, postID)
	})
}

func (h *PostHandler) Unbookmark(c *fiber.Ctx) error {
	return h.engage(c, h.posts.UnbookmarkPost)
}

func (h *PostHandler) Repost(c *fiber.Ctx) error {
	return h.engage(c, func(ctx context.Context, userID, postID uuid.UUID) (bool, error) {
		return true, h.posts.RepostPost(ctx, userID, postID)
	})
}

func (h *PostHandler) Unrepost(c *fiber.Ctx) error {
	return h.engage(c, h.posts.UnrepostPost)
}

func (h *PostHandler) engage(c *fiber.Ctx, fn func(ctx context.Context, userID, postID uuid.UUID) (bool, error)) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return RespondError(c, err)
	}
	postID, err := uuidParam(c, "id")
	if err != nil {
		return RespondError(c, err)
	}
	ok, err := fn(c.UserContext(), userID, postID)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(dto.SuccessResponse{Success: ok})
}
