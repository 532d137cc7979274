package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/social-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/models"
)

const invalidCredentials = "invalid email or password"

// dummySalt is hashed against for unknown emails so a miss costs the same as
// a wrong password.
const dummySalt = "0000000000000000000000000000000000000000000000000000000000000000"

type AuthService struct {
	db        *gorm.DB
	cfg       *config.Config
	hash      HashParams
	mailer    Mailer
	usernames *UsernameAllocator
}

func NewAuthService(db *gorm.DB, cfg *config.Config, hash HashParams, mailer Mailer) *AuthService {
	s := &AuthService{db: db, cfg: cfg, hash: hash, mailer: mailer}
	s.usernames = NewUsernameAllocator(s.usernameTaken)
	return s
}

func (s *AuthService) usernameTaken(ctx context.Context, username string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error
	if err != nil {
		return false, apperr.FromStore(err, "user")
	}
	return count > 0, nil
}

func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" || len(req.Password) < 8 {
		return nil, apperr.BadRequest("email required and password must be at least 8 characters")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, apperr.FromStore(err, "user")
	}
	if count > 0 {
		return nil, apperr.Conflict("email already registered")
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	if username != "" {
		taken, err := s.usernameTaken(ctx, username)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperr.Conflict("username already taken")
		}
	} else {
		generated, err := s.usernames.Generate(ctx, req.FirstName, req.LastName)
		if err != nil {
			return nil, err
		}
		username = generated
	}

	salt, err := NewSalt()
	if err != nil {
		return nil, apperr.Internal("failed to hash password", err)
	}

	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: s.hash.HashPassword(req.Password, salt),
		PasswordSalt: salt,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		DisplayName:  strings.TrimSpace(strings.TrimSpace(req.FirstName) + " " + strings.TrimSpace(req.LastName)),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("email or username already registered")
		}
		return nil, apperr.FromStore(err, "user")
	}

	slog.InfoContext(ctx, "user registered", "user_id", user.ID.String(), "username", user.Username)
	return s.generateTokenPair(ctx, &user)
}

func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(req.Email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.hash.HashPassword(req.Password, dummySalt)
		return nil, apperr.Unauthenticated(invalidCredentials)
	}
	if err != nil {
		return nil, apperr.FromStore(err, "user")
	}

	if !s.hash.VerifyPassword(req.Password, user.PasswordSalt, user.PasswordHash) {
		return nil, apperr.Unauthenticated(invalidCredentials)
	}
	return s.generateTokenPair(ctx, &user)
}

// Refresh rotates a refresh token. The presented row is deleted first and
// only the caller whose delete removed it gets a new pair, so two concurrent
// refreshes with the same token cannot both succeed.
func (s *AuthService) Refresh(ctx context.Context, req *dto.RefreshRequest) (*dto.AuthResponse, error) {
	tokenHash := hashToken(req.RefreshToken)
	db := s.db.WithContext(ctx)

	var stored models.RefreshToken
	if err := db.Where("token_hash = ?", tokenHash).First(&stored).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.InvalidToken("invalid refresh token")
		}
		return nil, apperr.FromStore(err, "refresh token")
	}

	res := db.Where("token_hash = ?", tokenHash).Delete(&models.RefreshToken{})
	if res.Error != nil {
		return nil, apperr.FromStore(res.Error, "refresh token")
	}
	if res.RowsAffected != 1 {
		return nil, apperr.InvalidToken("invalid refresh token")
	}
	if models.Now().After(stored.ExpiresAt) {
		return nil, apperr.TokenExpired("refresh token expired")
	}

	var user models.User
	if err := db.First(&user, "id = ?", stored.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.InvalidToken("invalid refresh token")
		}
		return nil, apperr.FromStore(err, "user")
	}
	return s.generateTokenPair(ctx, &user)
}

// ForgotPassword never reports whether the email exists.
func (s *AuthService) ForgotPassword(ctx context.Context, req *dto.ForgotPasswordRequest) error {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(req.Email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return apperr.FromStore(err, "user")
	}

	raw, err := randomToken()
	if err != nil {
		return apperr.Internal("failed to generate reset token", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.PasswordResetToken{}).Error; err != nil {
			return err
		}
		return tx.Create(&models.PasswordResetToken{
			UserID:    user.ID,
			TokenHash: hashToken(raw),
			ExpiresAt: models.Now().Add(s.cfg.ResetTokenExpiry),
		}).Error
	})
	if err != nil {
		return apperr.FromStore(err, "reset token")
	}

	if err := s.mailer.SendPasswordReset(ctx, user.Email, raw); err != nil {
		slog.ErrorContext(ctx, "failed to send password reset", "user_id", user.ID.String(), "error", err)
	}
	return nil
}

// ResetPassword sets a new salt and hash and signs the user out everywhere.
func (s *AuthService) ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) error {
	if len(req.NewPassword) < 8 {
		return apperr.BadRequest("password must be at least 8 characters")
	}
	tokenHash := hashToken(req.Token)
	db := s.db.WithContext(ctx)

	var stored models.PasswordResetToken
	if err := db.Where("token_hash = ?", tokenHash).First(&stored).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.InvalidToken("invalid reset token")
		}
		return apperr.FromStore(err, "reset token")
	}
	if models.Now().After(stored.ExpiresAt) {
		if err := db.Delete(&stored).Error; err != nil {
			return apperr.FromStore(err, "reset token")
		}
		return apperr.TokenExpired("reset token expired")
	}

	salt, err := NewSalt()
	if err != nil {
		return apperr.Internal("failed to hash password", err)
	}
	digest := s.hash.HashPassword(req.NewPassword, salt)

	err = db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("token_hash = ?", tokenHash).Delete(&models.PasswordResetToken{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return apperr.InvalidToken("invalid reset token")
		}
		if err := tx.Model(&models.User{}).Where("id = ?", stored.UserID).Updates(map[string]interface{}{
			"password_hash": digest,
			"password_salt": salt,
			"updated_at":    models.Now(),
		}).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", stored.UserID).Delete(&models.RefreshToken{}).Error
	})
	if err != nil {
		return apperr.FromStore(err, "user")
	}

	slog.InfoContext(ctx, "password reset", "user_id", stored.UserID.String())
	return nil
}

// Logout reports whether the token existed.
func (s *AuthService) Logout(ctx context.Context, req *dto.LogoutRequest) (bool, error) {
	res := s.db.WithContext(ctx).Where("token_hash = ?", hashToken(req.RefreshToken)).Delete(&models.RefreshToken{})
	if res.Error != nil {
		return false, apperr.FromStore(res.Error, "refresh token")
	}
	return res.RowsAffected > 0, nil
}

// LogoutAll returns the number of refresh tokens revoked.
func (s *AuthService) LogoutAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.RefreshToken{})
	if res.Error != nil {
		return 0, apperr.FromStore(res.Error, "refresh token")
	}
	return res.RowsAffected, nil
}

func (s *AuthService) generateTokenPair(ctx context.Context, user *models.User) (*dto.AuthResponse, error) {
	accessToken, err := s.IssueAccessToken(user)
	if err != nil {
		return nil, apperr.Internal("failed to sign access token", err)
	}

	refreshToken, err := s.issueRefreshToken(ctx, user)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.cfg.JWTAccessExpiry / time.Second),
		User: dto.UserResponse{
			UserSummary: toSummary(user),
			Email:       user.Email,
		},
	}, nil
}

func (s *AuthService) IssueAccessToken(user *models.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      user.ID.String(),
		"username": user.Username,
		"typ":      "access",
		"iat":      now.Unix(),
		"exp":      now.Add(s.cfg.JWTAccessExpiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func (s *AuthService) issueRefreshToken(ctx context.Context, user *models.User) (string, error) {
	raw, err := randomToken()
	if err != nil {
		return "", apperr.Internal("failed to generate refresh token", err)
	}

	record := models.RefreshToken{
		UserID:    user.ID,
		TokenHash: hashToken(raw),
		ExpiresAt: models.Now().Add(s.cfg.JWTRefreshExpiry),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return "", apperr.FromStore(err, "refresh token")
	}
	return raw, nil
}

func randomToken() (string, error) {
	rawBytes := make([]byte, 32)
	if _, err := rand.Read(rawBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(rawBytes), nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
