package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmetcoskunkizilkaya/social-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/models"
)

func register(t *testing.T, e *testEnv, email, password string) *dto.AuthResponse {
	t.Helper()
	resp, err := e.auth.Register(context.Background(), &dto.RegisterRequest{
		Email: email, Password: password, FirstName: "Ada", LastName: "Lovelace",
	})
	require.NoError(t, err)
	return resp
}

func TestRegisterLoginRefreshFlow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	reg := register(t, e, "A@x.com", "password1")
	assert.Equal(t, "a@x.com", reg.User.Email)
	assert.Equal(t, "adalovelace", reg.User.Username)
	assert.Equal(t, int64(900), reg.ExpiresIn)

	login, err := e.auth.Login(ctx, &dto.LoginRequest{Email: "a@x.com", Password: "password1"})
	require.NoError(t, err)
	assert.NotEmpty(t, login.AccessToken)
	assert.NotEmpty(t, login.RefreshToken)

	_, err = e.auth.Login(ctx, &dto.LoginRequest{Email: "a@x.com", Password: "wrong-password"})
	assert.True(t, apperr.IsKind(err, apperr.KindUnauthenticated))
	wrongPassword := err.Error()

	_, err = e.auth.Login(ctx, &dto.LoginRequest{Email: "nobody@x.com", Password: "password1"})
	assert.True(t, apperr.IsKind(err, apperr.KindUnauthenticated))
	assert.Equal(t, wrongPassword, err.Error())

	refreshed, err := e.auth.Refresh(ctx, &dto.RefreshRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	_, err = e.auth.Refresh(ctx, &dto.RefreshRequest{RefreshToken: login.RefreshToken})
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidToken))

	_, err = e.auth.Refresh(ctx, &dto.RefreshRequest{RefreshToken: refreshed.RefreshToken})
	assert.NoError(t, err)
}

func TestRegisterConflicts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	register(t, e, "a@x.com", "password1")

	_, err := e.auth.Register(ctx, &dto.RegisterRequest{Email: "A@X.com", Password: "password1", FirstName: "B"})
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	_, err = e.auth.Register(ctx, &dto.RegisterRequest{Email: "b@x.com", Password: "password1", FirstName: "B", Username: "AdaLovelace"})
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	second, err := e.auth.Register(ctx, &dto.RegisterRequest{Email: "c@x.com", Password: "password1", FirstName: "Ada", LastName: "Lovelace"})
	require.NoError(t, err)
	assert.NotEqual(t, "adalovelace", second.User.Username)
	assert.Contains(t, second.User.Username, "adalovelace")
}

func TestAccessTokenClaims(t *testing.T) {
	e := newEnv(t)
	reg := register(t, e, "a@x.com", "password1")

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(reg.AccessToken, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(e.cfg.JWTSecret), nil
	})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID.String(), claims["sub"])
	assert.Equal(t, "adalovelace", claims["username"])
	assert.Equal(t, "access", claims["typ"])
}

func TestRefreshExpired(t *testing.T) {
	e := newEnv(t)
	reg := register(t, e, "a@x.com", "password1")
	require.NoError(t, e.db.Model(&models.RefreshToken{}).Where("user_id = ?", reg.User.ID).
		Update("expires_at", time.Now().Add(-time.Minute).UTC()).Error)

	_, err := e.auth.Refresh(context.Background(), &dto.RefreshRequest{RefreshToken: reg.RefreshToken})
	assert.True(t, apperr.IsKind(err, apperr.KindTokenExpired))

	var n int64
	e.db.Model(&models.RefreshToken{}).Where("user_id = ?", reg.User.ID).Count(&n)
	assert.Zero(t, n)
}

func TestForgotAndResetPassword(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	reg := register(t, e, "a@x.com", "password1")
	other, err := e.auth.Login(ctx, &dto.LoginRequest{Email: "a@x.com", Password: "password1"})
	require.NoError(t, err)

	require.NoError(t, e.auth.ForgotPassword(ctx, &dto.ForgotPasswordRequest{Email: "nobody@x.com"}))
	_, sent := e.mailer.token("nobody@x.com")
	assert.False(t, sent)

	require.NoError(t, e.auth.ForgotPassword(ctx, &dto.ForgotPasswordRequest{Email: "a@x.com"}))
	first, _ := e.mailer.token("a@x.com")
	require.NoError(t, e.auth.ForgotPassword(ctx, &dto.ForgotPasswordRequest{Email: "A@x.com"}))
	token, _ := e.mailer.token("a@x.com")
	assert.NotEqual(t, first, token)

	var resets int64
	e.db.Model(&models.PasswordResetToken{}).Where("user_id = ?", reg.User.ID).Count(&resets)
	assert.Equal(t, int64(1), resets)

	err = e.auth.ResetPassword(ctx, &dto.ResetPasswordRequest{Token: first, NewPassword: "password2"})
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidToken))

	var before models.User
	require.NoError(t, e.db.First(&before, "id = ?", reg.User.ID).Error)

	require.NoError(t, e.auth.ResetPassword(ctx, &dto.ResetPasswordRequest{Token: token, NewPassword: "password2"}))

	var after models.User
	require.NoError(t, e.db.First(&after, "id = ?", reg.User.ID).Error)
	assert.NotEqual(t, before.PasswordSalt, after.PasswordSalt)

	for _, rt := range []string{reg.RefreshToken, other.RefreshToken} {
		_, err = e.auth.Refresh(ctx, &dto.RefreshRequest{RefreshToken: rt})
		assert.True(t, apperr.IsKind(err, apperr.KindInvalidToken))
	}

	_, err = e.auth.Login(ctx, &dto.LoginRequest{Email: "a@x.com", Password: "password1"})
	assert.True(t, apperr.IsKind(err, apperr.KindUnauthenticated))
	_, err = e.auth.Login(ctx, &dto.LoginRequest{Email: "a@x.com", Password: "password2"})
	assert.NoError(t, err)

	err = e.auth.ResetPassword(ctx, &dto.ResetPasswordRequest{Token: token, NewPassword: "password3"})
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidToken))
}

func TestResetPasswordExpired(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	register(t, e, "a@x.com", "password1")
	require.NoError(t, e.auth.ForgotPassword(ctx, &dto.ForgotPasswordRequest{Email: "a@x.com"}))
	token, _ := e.mailer.token("a@x.com")
	require.NoError(t, e.db.Model(&models.PasswordResetToken{}).Where("1 = 1").
		Update("expires_at", time.Now().Add(-time.Minute).UTC()).Error)

	err := e.auth.ResetPassword(ctx, &dto.ResetPasswordRequest{Token: token, NewPassword: "password2"})
	assert.True(t, apperr.IsKind(err, apperr.KindTokenExpired))

	err = e.auth.ResetPassword(ctx, &dto.ResetPasswordRequest{Token: token, NewPassword: "password2"})
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidToken))
}

func TestLogout(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	reg := register(t, e, "a@x.com", "password1")
	_, err := e.auth.Login(ctx, &dto.LoginRequest{Email: "a@x.com", Password: "password1"})
	require.NoError(t, err)

	ok, err := e.auth.Logout(ctx, &dto.LogoutRequest{RefreshToken: reg.RefreshToken})
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = e.auth.Logout(ctx, &dto.LogoutRequest{RefreshToken: reg.RefreshToken})
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := e.auth.LogoutAll(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = e.auth.LogoutAll(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}
