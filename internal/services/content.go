package services

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ahmetcoskunkizilkaya/social-backend/internal/apperr"
)

const (
	maxContentRunes = 500
	maxMediaURLs    = 4
	maxTagLen       = 100
)

var (
	// A tag or mention must start the text or follow a non-word character,
	// so "a@b.com" and "x#1" are not matched.
	hashtagPattern = regexp.MustCompile(`(?:^|[^\p{L}\p{N}_#&])#([\p{L}\p{N}_]+)`)
	mentionPattern = regexp.MustCompile(`(?:^|[^\p{L}\p{N}_@])@([a-zA-Z0-9_]{3,40})`)
)

// NormalizeTag lowercases a hashtag and strips the leading '#'.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
}

// ExtractHashtags returns the distinct normalized hashtags in text, sorted.
func ExtractHashtags(text string) []string {
	return extract(hashtagPattern, text, maxTagLen)
}

// ExtractMentions returns the distinct lowercased usernames mentioned in
// text, sorted.
func ExtractMentions(text string) []string {
	return extract(mentionPattern, text, 40)
}

func extract(re *regexp.Regexp, text string, maxLen int) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		v := strings.ToLower(m[1])
		if len(v) > maxLen || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// cleanContent trims content and enforces the 1..500 rune bound.
func cleanContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperr.BadRequest("content cannot be empty")
	}
	if utf8.RuneCountInString(content) > maxContentRunes {
		return "", apperr.BadRequest("content must be at most 500 characters")
	}
	return content, nil
}
