package creds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)
	require.Len(t, salt, SaltSize)

	hash := Derive("hunter2", salt)
	require.Len(t, hash, KeySize)

	assert.True(t, Verify("hunter2", salt, hash))
	assert.False(t, Verify("hunter3", salt, hash), "one-character change must not verify")
	assert.False(t, Verify("", salt, hash))
	assert.False(t, Verify("hunter2 ", salt, hash))
}

func TestVerify_EmptyHashNeverMatches(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)

	assert.False(t, Verify("anything", salt, nil))
	assert.False(t, Verify("", salt, nil))
}

func TestNewSalt_Unique(t *testing.T) {
	a, err := NewSalt()
	require.NoError(t, err)
	b, err := NewSalt()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestDerive_SaltChangesKey(t *testing.T) {
	s1 := []byte("0123456789abcdef")
	s2 := []byte("0123456789abcdeg")

	assert.NotEqual(t, Derive("pw", s1), Derive("pw", s2))
}
