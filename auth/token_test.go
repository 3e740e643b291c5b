// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCodec(t *testing.T) {
	codec := NewTokenCodec("super-secret")

	t.Run("IssueAndVerify", func(t *testing.T) {
		token, err := codec.Issue("user-123", "alice@example.com", time.Hour)
		require.NoError(t, err)

		claims, err := codec.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, "user-123", claims.UserID)
		assert.Equal(t, "alice@example.com", claims.Email)
		assert.Equal(t, time.Hour, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
	})

	t.Run("TokensAreUnique", func(t *testing.T) {
		first, err := codec.Issue("user-123", "alice@example.com", time.Hour)
		require.NoError(t, err)
		second, err := codec.Issue("user-123", "alice@example.com", time.Hour)
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})

	t.Run("Expired", func(t *testing.T) {
		token, err := codec.Issue("user-123", "alice@example.com", -time.Second)
		require.NoError(t, err)

		_, err = codec.Verify(token)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("ExpiresWithClock", func(t *testing.T) {
		now := time.Now()
		clocked := NewTokenCodec("super-secret").WithClock(func() time.Time { return now })
		token, err := clocked.Issue("user-123", "alice@example.com", time.Minute)
		require.NoError(t, err)

		_, err = clocked.Verify(token)
		assert.NoError(t, err)

		now = now.Add(2 * time.Minute)
		_, err = clocked.Verify(token)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		token, err := NewTokenCodec("other-secret").Issue("user-123", "alice@example.com", time.Hour)
		require.NoError(t, err)

		_, err = codec.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("TamperedPayload", func(t *testing.T) {
		token, err := codec.Issue("user-123", "alice@example.com", time.Hour)
		require.NoError(t, err)
		forged, err := codec.Issue("user-999", "mallory@example.com", time.Hour)
		require.NoError(t, err)

		parts := strings.Split(token, ".")
		forgedParts := strings.Split(forged, ".")
		tampered := parts[0] + "." + forgedParts[1] + "." + parts[2]

		_, err = codec.Verify(tampered)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("Malformed", func(t *testing.T) {
		_, err := codec.Verify("not-a-token")
		assert.ErrorIs(t, err, ErrMalformedToken)
	})

	t.Run("UnexpectedAlgorithm", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
			UserID: "user-123",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}).SignedString([]byte("super-secret"))
		require.NoError(t, err)

		_, err = codec.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("MissingExpiry", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: "user-123"}).
			SignedString([]byte("super-secret"))
		require.NoError(t, err)

		_, err = codec.Verify(token)
		assert.ErrorIs(t, err, ErrMalformedToken)
	})

	t.Run("MissingUserID", func(t *testing.T) {
		token, err := codec.Issue("", "alice@example.com", time.Hour)
		require.NoError(t, err)

		_, err = codec.Verify(token)
		assert.ErrorIs(t, err, ErrMalformedToken)
	})
}

func TestTokenCodecMissingSecret(t *testing.T) {
	codec := NewTokenCodec("")

	_, err := codec.Issue("user-123", "alice@example.com", time.Hour)
	assert.ErrorIs(t, err, ErrMissingSecret)

	_, err = codec.Verify("anything")
	assert.ErrorIs(t, err, ErrMissingSecret)
}
