package middleware

import (
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/social-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/logging"
)

const userLocal = "user"

func jwtConfig(cfg *config.Config) jwtware.Config {
	return jwtware.Config{
		SigningKey: jwtware.SigningKey{JWTAlg: jwtware.HS256, Key: []byte(cfg.JWTSecret)},
		ContextKey: userLocal,
		SuccessHandler: func(c *fiber.Ctx) error {
			id, err := UserID(c)
			if err != nil {
				return unauthorized(c)
			}
			c.SetUserContext(logging.WithUserID(c.UserContext(), id.String()))
			return c.Next()
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return unauthorized(c)
		},
	}
}

// JWTProtected rejects requests without a valid access token.
func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtConfig(cfg))
}

// OptionalJWT lets guests through. A request that does send a token must
// send a valid one.
func OptionalJWT(cfg *config.Config) fiber.Handler {
	conf := jwtConfig(cfg)
	conf.Filter = func(c *fiber.Ctx) bool {
		return c.Get(fiber.HeaderAuthorization) == ""
	}
	return jwtware.New(conf)
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error:   true,
		Code:    string(apperr.KindUnauthenticated),
		Message: "Unauthorized: invalid or expired token",
	})
}

// UserID extracts the user UUID from the access token claims.
func UserID(c *fiber.Ctx) (uuid.UUID, error) {
	token, ok := c.Locals(userLocal).(*jwt.Token)
	if !ok {
		return uuid.Nil, apperr.Unauthenticated("missing token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, apperr.Unauthenticated("invalid claims")
	}
	if typ, _ := claims["typ"].(string); typ != "access" {
		return uuid.Nil, apperr.Unauthenticated("not an access token")
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, apperr.Unauthenticated("missing sub claim")
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, apperr.Unauthenticated("invalid sub claim")
	}
	return id, nil
}

// ViewerID returns the signed-in user, or nil for guests.
func ViewerID(c *fiber.Ctx) *uuid.UUID {
	id, err := UserID(c)
	if err != nil {
		return nil
	}
	return &id
}
