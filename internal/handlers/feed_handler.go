package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/feeds"

	"github.com/ahmetcoskunkizilkaya/social-backend/internal/cursor"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/social-backend/internal/services"
)

const rssItems = 20

type FeedHandler struct {
	feeds   *services.FeedService
	baseURL string
}

func NewFeedHandler(feedService *services.FeedService, baseURL string) *FeedHandler {
	return &FeedHandler{feeds: feedService, baseURL: strings.TrimRight(baseURL, "/")}
}

func (h *FeedHandler) Home(c *fiber.Ctx) error {
	page, err := pageFrom(c)
	if err != nil {
		return RespondError(c, err)
	}
	return h.send(c)(h.feeds.HomeFeed(c.UserContext(), middleware.ViewerID(c), page))
}

func (h *FeedHandler) Public(c *fiber.Ctx) error {
	page, err := pageFrom(c)
	if err != nil {
		return RespondError(c, err)
	}
	return h.send(c)(h.feeds.PublicFeed(c.UserContext(), middleware.ViewerID(c), page))
}

func (h *FeedHandler) Trending(c *fiber.Ctx) error {
	page, err := pageFrom(c)
	if err != nil {
		return RespondError(c, err)
	}
	return h.send(c)(h.feeds.Trending(c.UserContext(), middleware.ViewerID(c), page))
}

func (h *FeedHandler) Hashtag(c *fiber.Ctx) error {
	page, err := pageFrom(c)
	if err != nil {
		return RespondError(c, err)
	}
	return h.send(c)(h.feeds.HashtagFeed(c.UserContext(), c.Params("tag"), middleware.ViewerID(c), page))
}

func (h *FeedHandler) Bookmarks(c *fiber.Ctx) error {
	page, err := pageFrom(c)
	if err != nil {
		return RespondError(c, err)
	}
	return h.send(c)(h.feeds.Bookmarks(c.UserContext(), middleware.ViewerID(c), page))
}

func (h *FeedHandler) Replies(c *fiber.Ctx) error {
	postID, err := uuidParam(c, "id")
	if err != nil {
		return RespondError(c, err)
	}
	page, err := pageFrom(c)
	if err != nil {
		return RespondError(c, err)
	}
	return h.send(c)(h.feeds.Replies(c.UserContext(), postID, middleware.ViewerID(c), page))
}

// UserPosts serves /users/:id/posts?filter=THREADS|REPLIES|REPOSTS.
func (h *FeedHandler) UserPosts(c *fiber.Ctx) error {
	targetID, err := uuidParam(c, "id")
	if err != nil {
		return RespondError(c, err)
	}
	filter, err := services.ParseUserPostsFilter(c.Query("filter"))
	if err != nil {
		return RespondError(c, err)
	}
	page, err := pageFrom(c)
	if err != nil {
		return RespondError(c, err)
	}
	return h.send(c)(h.feeds.UserPosts(c.UserContext(), targetID, middleware.ViewerID(c), page, filter))
}

func (h *FeedHandler) send(c *fiber.Ctx) func(services.PostConnection, error) error {
	return func(conn services.PostConnection, err error) error {
		if err != nil {
			return RespondError(c, err)
		}
		return c.JSON(conn)
	}
}

// PublicRSS renders the newest public posts as RSS 2.0.
func (h *FeedHandler) PublicRSS(c *fiber.Ctx) error {
	conn, err := h.feeds.PublicFeed(c.UserContext(), nil, cursor.Page{First: rssItems})
	if err != nil {
		return RespondError(c, err)
	}

	feed := &feeds.Feed{
		Title:       "Public posts",
		Link:        &feeds.Link{Href: h.baseURL + "/api/feeds/public"},
		Description: "The newest public posts",
		Created:     time.Now().UTC(),
	}
	for _, edge := range conn.Edges {
		p := edge.Node
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          p.ID.String(),
			Title:       rssTitle(p.Content),
			Link:        &feeds.Link{Href: fmt.Sprintf("%s/api/posts/%s", h.baseURL, p.ID)},
			Description: p.Content,
			Author:      &feeds.Author{Name: "@" + p.Author.Username},
			Created:     p.CreatedAt,
			Updated:     p.UpdatedAt,
		})
	}

	rss, err := feed.ToRss()
	if err != nil {
		return RespondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/rss+xml; charset=utf-8")
	return c.SendString(rss)
}

func rssTitle(content string) string {
	line := strings.SplitN(content, "\n", 2)[0]
	if r := []rune(line); len(r) > 80 {
		return string(r[:80]) + "…"
	}
	return line
}
