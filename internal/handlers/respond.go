package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/social-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/cursor"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/dto"
)

var kindStatus = map[apperr.Kind]int{
	apperr.KindBadRequest:      fiber.StatusBadRequest,
	apperr.KindUnauthenticated: fiber.StatusUnauthorized,
	apperr.KindForbidden:       fiber.StatusForbidden,
	apperr.KindNotFound:        fiber.StatusNotFound,
	apperr.KindConflict:        fiber.StatusConflict,
	apperr.KindInvalidToken:    fiber.StatusUnauthorized,
	apperr.KindTokenExpired:    fiber.StatusUnauthorized,
	apperr.KindInternal:        fiber.StatusInternalServerError,
}

// StatusOf maps an error to its HTTP status.
func StatusOf(err error) int {
	if apperr.IsRetryable(err) {
		return fiber.StatusServiceUnavailable
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	if status, ok := kindStatus[apperr.KindOf(err)]; ok {
		return status
	}
	return fiber.StatusInternalServerError
}

// RespondError writes err as {error, code, message}. Server errors are logged
// and reported to Sentry; their details never reach the client.
func RespondError(c *fiber.Ctx, err error) error {
	status := StatusOf(err)
	code := string(apperr.KindOf(err))
	message := "Internal server error"

	var ae *apperr.Error
	var fe *fiber.Error
	switch {
	case errors.As(err, &ae):
		message = ae.Message
	case errors.As(err, &fe):
		message = fe.Message
		code = ""
	}

	if status == fiber.StatusServiceUnavailable {
		c.Set(fiber.HeaderRetryAfter, "1")
	}
	if status >= 500 {
		slog.ErrorContext(c.UserContext(), "request failed",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"error", err.Error(),
		)
		if hub := sentryfiber.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		} else {
			sentry.CaptureException(err)
		}
		if status == fiber.StatusInternalServerError {
			message = "Internal server error"
		}
	}

	return c.Status(status).JSON(dto.ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
	})
}

// bindJSON decodes the body strictly, rejecting unknown fields, then runs
// struct validation.
func bindJSON(c *fiber.Ctx, dst interface{}) error {
	body := c.Body()
	if len(bytes.TrimSpace(body)) == 0 {
		return apperr.BadRequest("request body is required")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.BadRequest("invalid request body: " + err.Error())
	}
	return dto.Validate(dst)
}

// pageFrom reads ?first=&after= query parameters.
func pageFrom(c *fiber.Ctx) (cursor.Page, error) {
	page := cursor.Page{After: c.Query("after")}
	if raw := c.Query("first"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return page, apperr.BadRequest("first must be an integer")
		}
		page.First = n
	}
	return page, nil
}

func uuidParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperr.BadRequest("invalid " + name)
	}
	return id, nil
}

// ErrorHandler is the fiber app error handler, for errors no handler wrote
// itself (unknown routes, body limits, panics recovered upstream).
func ErrorHandler(c *fiber.Ctx, err error) error {
	return RespondError(c, err)
}
