package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/redis/go-redis/v9"

	"github.com/ahmetcoskunkizilkaya/social-backend/internal/cache"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/middleware"
)

type Handlers struct {
	Auth          *handlers.AuthHandler
	Health        *handlers.HealthHandler
	Users         *handlers.UserHandler
	Posts         *handlers.PostHandler
	Feeds         *handlers.FeedHandler
	Notifications *handlers.NotificationHandler
}

// Setup registers every API route. rdb may be nil, in which case limiter
// state stays in process memory.
func Setup(app *fiber.App, cfg *config.Config, rdb *redis.Client, h Handlers) {
	api := app.Group("/api")

	api.Use(rateLimit(cfg.RateLimit, rdb, "limiter:api:"))

	api.Get("/health", h.Health.Check)

	protected := middleware.JWTProtected(cfg)
	optional := middleware.OptionalJWT(cfg)

	// Auth: stricter limit per IP
	auth := api.Group("/auth")
	auth.Use(rateLimit(cfg.AuthRateLimit, rdb, "limiter:auth:"))
	auth.Post("/register", h.Auth.Register)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/refresh", h.Auth.Refresh)
	auth.Post("/forgot-password", h.Auth.ForgotPassword)
	auth.Post("/reset-password", h.Auth.ResetPassword)
	auth.Post("/logout", h.Auth.Logout)
	auth.Post("/logout-all", protected, h.Auth.LogoutAll)

	// Users. /me must be registered before /:username.
	users := api.Group("/users")
	users.Get("/me", protected, h.Users.Me)
	users.Patch("/me", protected, h.Users.UpdateMe)
	users.Get("/:username", optional, h.Users.Profile)
	users.Get("/:id/followers", optional, h.Users.Followers)
	users.Get("/:id/following", optional, h.Users.Following)
	users.Get("/:id/posts", optional, h.Feeds.UserPosts)
	users.Post("/:id/follow", protected, h.Users.Follow)
	users.Delete("/:id/follow", protected, h.Users.Unfollow)
	users.Post("/:id/block", protected, h.Users.Block)
	users.Delete("/:id/block", protected, h.Users.Unblock)
	api.Get("/blocks", protected, h.Users.Blocks)

	// Feeds
	feeds := api.Group("/feeds")
	feeds.Get("/public.rss", h.Feeds.PublicRSS)
	feeds.Get("/home", protected, h.Feeds.Home)
	feeds.Get("/public", optional, h.Feeds.Public)
	feeds.Get("/trending", optional, h.Feeds.Trending)
	feeds.Get("/hashtag/:tag", optional, h.Feeds.Hashtag)
	api.Get("/bookmarks", protected, h.Feeds.Bookmarks)

	// Posts
	posts := api.Group("/posts")
	posts.Post("/", protected, h.Posts.Create)
	posts.Get("/:id", optional, h.Posts.Get)
	posts.Patch("/:id", protected, h.Posts.Update)
	posts.Delete("/:id", protected, h.Posts.Delete)
	posts.Post("/:id/replies", protected, h.Posts.Reply)
	posts.Get("/:id/replies", optional, h.Feeds.Replies)
	posts.Post("/:id/like", protected, h.Posts.Like)
	posts.Delete("/:id/like", protected, h.Posts.Unlike)
	posts.Post("/:id/bookmark", protected, h.Posts.Bookmark)
	posts.Delete("/:id/bookmark", protected, h.Posts.Unbookmark)
	posts.Post("/:id/repost", protected, h.Posts.Repost)
	posts.Delete("/:id/repost", protected, h.Posts.Unrepost)

	// Notifications
	notifications := api.Group("/notifications", protected)
	notifications.Get("/", h.Notifications.List)
	notifications.Get("/unread-count", h.Notifications.UnreadCount)
	notifications.Post("/read-all", h.Notifications.MarkAllRead)
	notifications.Post("/:id/read", h.Notifications.MarkRead)
}

func rateLimit(max int, rdb *redis.Client, prefix string) fiber.Handler {
	conf := limiter.Config{
		Max:               max,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}
	if rdb != nil {
		conf.Storage = cache.NewLimiterStorage(rdb, prefix)
	}
	return limiter.New(conf)
}
