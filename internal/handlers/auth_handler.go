package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/social-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/services"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := bindJSON(c, &req); err != nil {
		return RespondError(c, err)
	}

	resp, err := h.authService.Register(c.UserContext(), &req)
	if err != nil {
		return RespondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bindJSON(c, &req); err != nil {
		return RespondError(c, err)
	}

	resp, err := h.authService.Login(c.UserContext(), &req)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(resp)
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := bindJSON(c, &req); err != nil {
		return RespondError(c, err)
	}

	resp, err := h.authService.Refresh(c.UserContext(), &req)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(resp)
}

// ForgotPassword answers the same way whether or not the email exists.
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := bindJSON(c, &req); err != nil {
		return RespondError(c, err)
	}

	if err := h.authService.ForgotPassword(c.UserContext(), &req); err != nil {
		return RespondError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(dto.MessageResponse{
		Message: "If that email is registered, a reset link is on its way",
	})
}

func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := bindJSON(c, &req); err != nil {
		return RespondError(c, err)
	}

	if err := h.authService.ResetPassword(c.UserContext(), &req); err != nil {
		return RespondError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Password updated, please sign in again"})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req dto.LogoutRequest
	if err := bindJSON(c, &req); err != nil {
		return RespondError(c, err)
	}

	removed, err := h.authService.Logout(c.UserContext(), &req)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(dto.SuccessResponse{Success: removed})
}

func (h *AuthHandler) LogoutAll(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return RespondError(c, err)
	}

	n, err := h.authService.LogoutAll(c.UserContext(), userID)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(fiber.Map{"revoked": n})
}
