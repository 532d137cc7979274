package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)
	assert.Len(t, salt, 64)

	a := testHashParams.HashPassword("correct horse", salt)
	assert.Equal(t, a, testHashParams.HashPassword("correct horse", salt))
	assert.True(t, testHashParams.VerifyPassword("correct horse", salt, a))
	assert.False(t, testHashParams.VerifyPassword("wrong horse", salt, a))

	other, err := NewSalt()
	require.NoError(t, err)
	assert.NotEqual(t, salt, other)
	assert.NotEqual(t, a, testHashParams.HashPassword("correct horse", other))
}
