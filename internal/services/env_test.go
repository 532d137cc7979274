package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/social-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/database/dbtest"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/models"
)

var testHashParams = HashParams{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32}

type fakeMailer struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, email, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens == nil {
		m.tokens = map[string]string{}
	}
	m.tokens[email] = token
	return nil
}

func (m *fakeMailer) token(email string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, ok := m.tokens[email]
	return tok, ok
}

type testEnv struct {
	db            *gorm.DB
	cfg           *config.Config
	mailer        *fakeMailer
	auth          *AuthService
	users         *UserService
	graph         *GraphService
	posts         *PostService
	feeds         *FeedService
	notifications *NotificationService
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:        "test-secret",
		JWTAccessExpiry:  15 * time.Minute,
		JWTRefreshExpiry: 336 * time.Hour,
		ResetTokenExpiry: time.Hour,
		QueryTimeout:     5 * time.Second,
		MaxPageSize:      100,
		TrendingWindow:   72 * time.Hour,
	}
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	db := dbtest.Open(t)
	cfg := testConfig()
	mailer := &fakeMailer{}

	users := NewUserService(db, nil)
	notifications := NewNotificationService(db, cfg, users)
	resolver := NewPostResolver(db, users)
	return &testEnv{
		db:            db,
		cfg:           cfg,
		mailer:        mailer,
		auth:          NewAuthService(db, cfg, testHashParams, mailer),
		users:         users,
		graph:         NewGraphService(db, cfg, users, notifications),
		posts:         NewPostService(db, resolver, notifications),
		feeds:         NewFeedService(db, cfg, resolver, users),
		notifications: notifications,
	}
}

// user inserts a user directly, skipping password hashing.
func (e *testEnv) user(t *testing.T, username string) uuid.UUID {
	t.Helper()
	u := models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		PasswordSalt: "x",
		DisplayName:  username,
	}
	require.NoError(t, e.db.Create(&u).Error)
	return u.ID
}

func (e *testEnv) post(t *testing.T, author uuid.UUID, content string, vis models.Visibility) uuid.UUID {
	t.Helper()
	node, err := e.posts.CreatePost(context.Background(), author, &dto.CreatePostRequest{Content: content, Visibility: string(vis)})
	require.NoError(t, err)
	return node.ID
}

// postAt creates a post and pins its creation time.
func (e *testEnv) postAt(t *testing.T, author uuid.UUID, content string, at time.Time) uuid.UUID {
	t.Helper()
	id := e.post(t, author, content, models.VisibilityPublic)
	require.NoError(t, e.db.Model(&models.Post{}).Where("id = ?", id).
		UpdateColumn("created_at", at.UTC()).Error)
	return id
}

func (e *testEnv) notificationsOf(t *testing.T, userID uuid.UUID) []models.Notification {
	t.Helper()
	var rows []models.Notification
	require.NoError(t, e.db.Where("recipient_id = ?", userID).Order("created_at").Find(&rows).Error)
	return rows
}

func replyReq(content string) *dto.CreatePostRequest {
	return &dto.CreatePostRequest{Content: content}
}

func ptr[T any](v T) *T { return &v }

func nodeIDs(conn PostConnection) []uuid.UUID {
	ids := make([]uuid.UUID, len(conn.Edges))
	for i, e := range conn.Edges {
		ids[i] = e.Node.ID
	}
	return ids
}
