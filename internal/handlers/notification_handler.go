package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/social-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/services"
)

type NotificationHandler struct {
	notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List serves /notifications?unread=true&first=&after=.
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return RespondError(c, err)
	}
	page, err := pageFrom(c)
	if err != nil {
		return RespondError(c, err)
	}

	conn, err := h.notifications.List(c.UserContext(), userID, page, c.QueryBool("unread", false))
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(conn)
}

func (h *NotificationHandler) UnreadCount(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return RespondError(c, err)
	}
	n, err := h.notifications.UnreadCount(c.UserContext(), userID)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(dto.UnreadCountResponse{Count: n})
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return RespondError(c, err)
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return RespondError(c, err)
	}
	if err := h.notifications.MarkAsRead(c.UserContext(), userID, id); err != nil {
		return RespondError(c, err)
	}
	return c.JSON(dto.SuccessResponse{Success: true})
}

func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return RespondError(c, err)
	}
	n, err := h.notifications.MarkAllAsRead(c.UserContext(), userID)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(fiber.Map{"updated": n})
}
