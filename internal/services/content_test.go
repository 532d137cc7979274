package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ahmetcoskunkizilkaya/social-backend/internal/apperr"
)

func TestExtractHashtags(t *testing.T) {
	assert.Equal(t, []string{"go", "test"}, ExtractHashtags("hello #Test and #go, again #TEST"))
	assert.Empty(t, ExtractHashtags("issue x#1 and &#39; entity"))
	assert.Equal(t, []string{"çay"}, ExtractHashtags("#Çay time"))
}

func TestExtractMentions(t *testing.T) {
	assert.Equal(t, []string{"alice", "bob_2"}, ExtractMentions("@Alice meet @bob_2 (cc @alice)"))
	assert.Empty(t, ExtractMentions("mail me at a@example.com or @ab"))
}

func TestNormalizeTag(t *testing.T) {
	assert.Equal(t, "test", NormalizeTag(" #Test "))
	assert.Equal(t, "", NormalizeTag("#"))
}

func TestCleanContent(t *testing.T) {
	got, err := cleanContent("  hi  ")
	assert.NoError(t, err)
	assert.Equal(t, "hi", got)

	_, err = cleanContent("   ")
	assert.True(t, apperr.IsKind(err, apperr.KindBadRequest))

	_, err = cleanContent(strings.Repeat("ğ", 500))
	assert.NoError(t, err)
	_, err = cleanContent(strings.Repeat("ğ", 501))
	assert.True(t, apperr.IsKind(err, apperr.KindBadRequest))
}
