package services

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"
	"unicode"

	"github.com/ahmetcoskunkizilkaya/social-backend/internal/apperr"
)

const maxUsernameAttempts = 10

// UsernameAllocator builds readable usernames from a person's name. The
// unique index on users.username is what actually guarantees uniqueness;
// probing only keeps collisions rare.
type UsernameAllocator struct {
	exists func(ctx context.Context, username string) (bool, error)
	suffix func() int
	now    func() time.Time
}

func NewUsernameAllocator(exists func(ctx context.Context, username string) (bool, error)) *UsernameAllocator {
	return &UsernameAllocator{
		exists: exists,
		suffix: func() int { return 1000 + rand.Intn(9000) },
		now:    time.Now,
	}
}

// BaseUsername lowercases first+last, drops whitespace and anything outside
// [a-z0-9_].
func BaseUsername(firstName, lastName string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(firstName + lastName) {
		if unicode.IsSpace(r) {
			continue
		}
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	base := b.String()
	if base == "" {
		base = "user"
	}
	if len(base) > 24 {
		base = base[:24]
	}
	return base
}

// Generate returns a username not currently taken. It fails Conflict only
// when every random suffix and the timestamp fallback are taken.
func (a *UsernameAllocator) Generate(ctx context.Context, firstName, lastName string) (string, error) {
	base := BaseUsername(firstName, lastName)

	candidate := base
	for i := 0; i < maxUsernameAttempts; i++ {
		taken, err := a.exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%04d", base, a.suffix())
	}

	candidate = fmt.Sprintf("%s%d", base, a.now().UnixMilli())
	taken, err := a.exists(ctx, candidate)
	if err != nil {
		return "", err
	}
	if taken {
		return "", apperr.Conflict("could not allocate a username, please choose one")
	}
	return candidate, nil
}
