package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/portfolio-service/internal/apperrors"
)

func newFernet(t *testing.T, ttl time.Duration) *Fernet {
	t.Helper()
	key, err := GenerateKey()
	require.NoError(t, err)
	f, err := NewFernet(ttl, key)
	require.NoError(t, err)
	return f
}

func TestFernet(t *testing.T) {
	t.Run("issued token round trips to the user id", func(t *testing.T) {
		f := newFernet(t, time.Hour)

		token, err := f.Issue("user_1")
		require.NoError(t, err)

		userID, err := f.Authenticate(token)
		require.NoError(t, err)
		assert.Equal(t, "user_1", userID)
	})

	t.Run("rejects tokens signed with another key", func(t *testing.T) {
		issuer := newFernet(t, time.Hour)
		verifier := newFernet(t, time.Hour)

		token, err := issuer.Issue("user_1")
		require.NoError(t, err)

		_, err = verifier.Authenticate(token)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("accepts tokens from a rotated key", func(t *testing.T) {
		oldKey, err := GenerateKey()
		require.NoError(t, err)
		newKey, err := GenerateKey()
		require.NoError(t, err)

		old, err := NewFernet(time.Hour, oldKey)
		require.NoError(t, err)
		rotated, err := NewFernet(time.Hour, newKey, oldKey)
		require.NoError(t, err)

		token, err := old.Issue("user_2")
		require.NoError(t, err)

		userID, err := rotated.Authenticate(token)
		require.NoError(t, err)
		assert.Equal(t, "user_2", userID)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		f := newFernet(t, time.Hour)

		_, err := f.Authenticate("not-a-token")
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("refuses to issue for an empty user", func(t *testing.T) {
		f := newFernet(t, time.Hour)

		_, err := f.Issue("  ")
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("rejects malformed keys", func(t *testing.T) {
		_, err := NewFernet(time.Hour, "short")
		assert.Error(t, err)

		_, err = NewFernet(time.Hour)
		assert.Error(t, err)
	})
}

func TestStatic(t *testing.T) {
	s := Static{UserID: "user_1"}

	userID, err := s.Authenticate("anything")
	require.NoError(t, err)
	assert.Equal(t, "user_1", userID)

	_, err = s.Authenticate("")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"valid", "Bearer abc", "abc", false},
		{"case insensitive scheme", "bearer abc", "abc", false},
		{"empty", "", "", true},
		{"no token", "Bearer ", "", true},
		{"basic auth", "Basic dXNlcjpwYXNz", "", true},
		{"bare token", "abc", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BearerToken(tt.header)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUserID(t *testing.T) {
	_, ok := UserID(context.Background())
	assert.False(t, ok)

	id, ok := UserID(WithUserID(context.Background(), "user_1"))
	assert.True(t, ok)
	assert.Equal(t, "user_1", id)
}
