package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmetcoskunkizilkaya/social-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/cursor"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/database/dbtest"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/services"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	db := dbtest.Open(t)
	cfg := &config.Config{
		JWTSecret:        "test-secret",
		JWTAccessExpiry:  15 * time.Minute,
		JWTRefreshExpiry: time.Hour,
		ResetTokenExpiry: time.Hour,
		QueryTimeout:     5 * time.Second,
		MaxPageSize:      50,
		TrendingWindow:   72 * time.Hour,
		PublicBaseURL:    "https://social.example",
		RateLimit:        1000,
		AuthRateLimit:    1000,
	}

	users := services.NewUserService(db, nil)
	notifications := services.NewNotificationService(db, cfg, users)
	graph := services.NewGraphService(db, cfg, users, notifications)
	resolver := services.NewPostResolver(db, users)
	posts := services.NewPostService(db, resolver, notifications)
	feeds := services.NewFeedService(db, cfg, resolver, users)
	hash := services.HashParams{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32}
	auth := services.NewAuthService(db, cfg, hash, services.LogMailer{})

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	app.Use(requestid.New())
	app.Use(middleware.RequestContext())
	Setup(app, cfg, nil, Handlers{
		Auth:          handlers.NewAuthHandler(auth),
		Health:        handlers.NewHealthHandler(db, nil),
		Users:         handlers.NewUserHandler(users, graph),
		Posts:         handlers.NewPostHandler(posts),
		Feeds:         handlers.NewFeedHandler(feeds, cfg.PublicBaseURL),
		Notifications: handlers.NewNotificationHandler(notifications),
	})
	return app
}

func do(t *testing.T, app *fiber.App, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func register(t *testing.T, app *fiber.App, username string) dto.AuthResponse {
	t.Helper()
	resp := do(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":      username + "@example.com",
		"password":   "correct-horse",
		"first_name": username,
		"username":   username,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[dto.AuthResponse](t, resp)
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	resp := do(t, app, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	health := decode[dto.HealthResponse](t, resp)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "ok", health.DB)
	assert.Equal(t, "disabled", health.Redis)
}

func TestUnknownRouteIsJSON(t *testing.T) {
	app := newTestApp(t)
	resp := do(t, app, http.MethodGet, "/api/nope", "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decode[dto.ErrorResponse](t, resp)
	assert.True(t, body.Error)
}

func TestAuthFlowOverHTTP(t *testing.T) {
	app := newTestApp(t)
	alice := register(t, app, "alice")
	assert.NotEmpty(t, alice.AccessToken)
	assert.Equal(t, "alice", alice.User.Username)

	resp := do(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "alice@example.com", "password": "correct-horse", "first_name": "Again",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, app, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": alice.RefreshToken})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rotated := decode[dto.AuthResponse](t, resp)
	assert.NotEqual(t, alice.RefreshToken, rotated.RefreshToken)

	resp = do(t, app, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": alice.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, app, http.MethodGet, "/api/users/me", rotated.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := decode[dto.UserResponse](t, resp)
	assert.Equal(t, "alice@example.com", me.Email)
}

func TestProtectedRoutesRejectMissingOrBadToken(t *testing.T) {
	app := newTestApp(t)
	resp := do(t, app, http.MethodGet, "/api/feeds/home", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, app, http.MethodGet, "/api/feeds/public", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, app, http.MethodGet, "/api/feeds/public", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRejectsUnknownFieldsAndBadParams(t *testing.T) {
	app := newTestApp(t)
	alice := register(t, app, "alice")

	resp := do(t, app, http.MethodPost, "/api/posts", alice.AccessToken, map[string]string{"content": "hi", "colour": "red"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, app, http.MethodGet, "/api/posts/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, app, http.MethodGet, "/api/feeds/public?first=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, app, http.MethodGet, "/api/feeds/public?after=garbage*", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, app, http.MethodGet, "/api/users/"+alice.User.ID.String()+"/posts?filter=EVERYTHING", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSocialFlowOverHTTP(t *testing.T) {
	app := newTestApp(t)
	alice := register(t, app, "alice")
	bob := register(t, app, "bob")

	resp := do(t, app, http.MethodPost, "/api/users/"+alice.User.ID.String()+"/follow", bob.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, app, http.MethodPost, "/api/posts", alice.AccessToken, map[string]string{
		"content":    "hello #golang @bob",
		"visibility": "FOLLOWERS",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	post := decode[dto.PostNode](t, resp)
	assert.Equal(t, []string{"golang"}, post.Hashtags)
	assert.Equal(t, []string{"bob"}, post.Mentions)

	// Followers-only post: in bob's home feed, hidden from guests.
	resp = do(t, app, http.MethodGet, "/api/feeds/home", bob.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	home := decode[cursor.Connection[dto.PostNode]](t, resp)
	require.Len(t, home.Edges, 1)
	assert.Equal(t, post.ID, home.Edges[0].Node.ID)

	resp = do(t, app, http.MethodGet, "/api/posts/"+post.ID.String(), "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, app, http.MethodPost, "/api/posts/"+post.ID.String()+"/like", bob.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = do(t, app, http.MethodPost, "/api/posts/"+post.ID.String()+"/like", bob.AccessToken, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, app, http.MethodGet, "/api/posts/"+post.ID.String(), bob.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	seen := decode[dto.PostNode](t, resp)
	assert.EqualValues(t, 1, seen.LikesCount)
	assert.True(t, seen.IsLiked)

	resp = do(t, app, http.MethodPost, "/api/posts/"+post.ID.String()+"/replies", bob.AccessToken, map[string]string{"content": "nice"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, app, http.MethodGet, "/api/posts/"+post.ID.String()+"/replies", bob.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	replies := decode[cursor.Connection[dto.PostNode]](t, resp)
	require.Len(t, replies.Edges, 1)
	assert.Equal(t, "nice", replies.Edges[0].Node.Content)

	// alice: FOLLOW, LIKE, REPLY. bob: MENTION.
	resp = do(t, app, http.MethodGet, "/api/notifications/unread-count", alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 3, decode[dto.UnreadCountResponse](t, resp).Count)

	resp = do(t, app, http.MethodGet, "/api/notifications?unread=true&first=2", alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decode[cursor.Connection[dto.NotificationNode]](t, resp)
	require.Len(t, page.Edges, 2)
	assert.True(t, page.PageInfo.HasNextPage)

	resp = do(t, app, http.MethodPost, "/api/notifications/"+page.Edges[0].Node.ID.String()+"/read", alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = do(t, app, http.MethodPost, "/api/notifications/"+page.Edges[0].Node.ID.String()+"/read", bob.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, app, http.MethodPost, "/api/notifications/read-all", alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = do(t, app, http.MethodGet, "/api/notifications/unread-count", alice.AccessToken, nil)
	assert.EqualValues(t, 0, decode[dto.UnreadCountResponse](t, resp).Count)

	resp = do(t, app, http.MethodGet, "/api/notifications/unread-count", bob.AccessToken, nil)
	assert.EqualValues(t, 1, decode[dto.UnreadCountResponse](t, resp).Count)
}

func TestProfileAndBlockOverHTTP(t *testing.T) {
	app := newTestApp(t)
	alice := register(t, app, "alice")
	bob := register(t, app, "bob")
	aliceID := alice.User.ID.String()

	resp := do(t, app, http.MethodPost, "/api/users/"+aliceID+"/follow", bob.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, app, http.MethodGet, "/api/users/alice", bob.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	profile := decode[dto.UserProfile](t, resp)
	assert.EqualValues(t, 1, profile.FollowersCount)
	assert.True(t, profile.IsFollowing)

	resp = do(t, app, http.MethodPost, "/api/users/"+bob.User.ID.String()+"/block", alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Blocking removes the follow edge.
	resp = do(t, app, http.MethodGet, "/api/users/alice", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 0, decode[dto.UserProfile](t, resp).FollowersCount)

	resp = do(t, app, http.MethodPost, "/api/users/"+aliceID+"/follow", bob.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = do(t, app, http.MethodGet, "/api/blocks", alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	blocked := decode[cursor.Connection[dto.UserSummary]](t, resp)
	require.Len(t, blocked.Edges, 1)
	assert.Equal(t, bob.User.ID, blocked.Edges[0].Node.ID)

	resp = do(t, app, http.MethodPost, "/api/users/"+aliceID+"/block", alice.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, app, http.MethodPost, "/api/users/"+uuid.NewString()+"/follow", bob.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPublicRSS(t *testing.T) {
	app := newTestApp(t)
	alice := register(t, app, "alice")
	for _, body := range []map[string]string{
		{"content": "public <hello> #rss"},
		{"content": "secret diary", "visibility": "PRIVATE"},
	} {
		resp := do(t, app, http.MethodPost, "/api/posts", alice.AccessToken, body)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := do(t, app, http.MethodGet, "/api/feeds/public.rss", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), "application/rss+xml"))
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := string(raw)
	assert.Contains(t, body, "<rss")
	assert.Contains(t, body, "https://social.example/api/posts/")
	assert.Contains(t, body, "@alice")
	assert.NotContains(t, body, "secret diary")
}
