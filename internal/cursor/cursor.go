// Package cursor implements the keyset pagination contract shared by every
// list endpoint: opaque cursors, page-size clamping and the connection shape.
package cursor

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/social-backend/internal/apperr"
)

const (
	DefaultFirst = 20
	DefaultMax   = 100
)

// Key is the sort key of one item. T and ID are always set; Score and AsOf
// are only used by score-ordered feeds.
type Key struct {
	T     time.Time  `json:"t"`
	ID    uuid.UUID  `json:"id"`
	Score *float64   `json:"s,omitempty"`
	AsOf  *time.Time `json:"a,omitempty"`
}

func Encode(k Key) string {
	b, err := json.Marshal(k)
	if err != nil {
		// Key only holds marshalable fields.
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

func Decode(s string) (Key, error) {
	var k Key
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return k, apperr.BadRequest("malformed cursor")
	}
	if err := json.Unmarshal(raw, &k); err != nil {
		return k, apperr.BadRequest("malformed cursor")
	}
	if k.T.IsZero() || k.ID == uuid.Nil {
		return k, apperr.BadRequest("malformed cursor")
	}
	return k, nil
}

// Page is a request for the items strictly after After.
type Page struct {
	First int
	After string
}

// Normalize validates the page and returns the effective limit and the
// decoded position (nil for the first page).
func (p Page) Normalize(max int) (int, *Key, error) {
	if max <= 0 {
		max = DefaultMax
	}
	if p.First < 0 {
		return 0, nil, apperr.BadRequest("first must be a positive integer")
	}
	limit := p.First
	if limit == 0 {
		limit = DefaultFirst
	}
	if limit > max {
		limit = max
	}
	if p.After == "" {
		return limit, nil, nil
	}
	k, err := Decode(p.After)
	if err != nil {
		return 0, nil, err
	}
	return limit, &k, nil
}

type Edge[T any] struct {
	Cursor string `json:"cursor"`
	Node   T      `json:"node"`
}

type PageInfo struct {
	HasNextPage bool    `json:"hasNextPage"`
	EndCursor   *string `json:"endCursor"`
}

type Connection[T any] struct {
	Edges    []Edge[T] `json:"edges"`
	PageInfo PageInfo  `json:"pageInfo"`
}

// Build turns limit+1 fetched rows into a connection. keyOf extracts the sort
// key of a row.
func Build[R any, T any](rows []R, limit int, keyOf func(R) Key, toNode func(R) T) Connection[T] {
	hasNext := len(rows) > limit
	if hasNext {
		rows = rows[:limit]
	}
	conn := Connection[T]{Edges: make([]Edge[T], 0, len(rows))}
	for _, r := range rows {
		conn.Edges = append(conn.Edges, Edge[T]{Cursor: Encode(keyOf(r)), Node: toNode(r)})
	}
	conn.PageInfo.HasNextPage = hasNext
	if n := len(conn.Edges); n > 0 {
		end := conn.Edges[n-1].Cursor
		conn.PageInfo.EndCursor = &end
	}
	return conn
}

// Map converts the node type of a connection, keeping cursors and page info.
func Map[A any, B any](in Connection[A], fn func(A) B) Connection[B] {
	out := Connection[B]{Edges: make([]Edge[B], len(in.Edges)), PageInfo: in.PageInfo}
	for i, e := range in.Edges {
		out.Edges[i] = Edge[B]{Cursor: e.Cursor, Node: fn(e.Node)}
	}
	return out
}

// Nodes returns the nodes of a connection in order.
func (c Connection[T]) Nodes() []T {
	out := make([]T, len(c.Edges))
	for i, e := range c.Edges {
		out[i] = e.Node
	}
	return out
}

// Before reports whether (t, id) sorts strictly after k in newest-first order,
// i.e. whether the item belongs on a page requested with After = k.
func Before(k Key, t time.Time, id uuid.UUID) bool {
	if t.Before(k.T) {
		return true
	}
	return t.Equal(k.T) && id.String() < k.ID.String()
}
