// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package auth

import (
	"context"
	"time"
)

// User is a registered account. PasswordHash is a bcrypt hash, never the
// password itself.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// CredentialStore persists users keyed by unique email.
type CredentialStore interface {
	// CreateUser fails with ErrConflict if the email is already taken.
	CreateUser(ctx context.Context, email, passwordHash string) (*User, error)
	// FindByEmail fails with ErrUserNotFound if no user has the email.
	FindByEmail(ctx context.Context, email string) (*User, error)
}

// SessionCache holds the single current token of each user.
type SessionCache interface {
	SetSession(ctx context.Context, userID, token string, ttl time.Duration) error
	// GetSession fails with ErrSessionNotFound if the user has no session.
	GetSession(ctx context.Context, userID string) (string, error)
}

// CodeStore holds short-lived email verification codes.
type CodeStore interface {
	SetCode(ctx context.Context, email, code string, ttl time.Duration) error
	// GetCode fails with ErrCodeNotFound if no code is pending for the email.
	GetCode(ctx context.Context, email string) (string, error)
	DeleteCode(ctx context.Context, email string) error
}

// Mailer delivers verification codes.
type Mailer interface {
	SendVerificationCode(ctx context.Context, to, code string) error
}

const (
	sessionKeyPrefix = "session:"
	codeKeyPrefix    = "verify:"
)

func sessionKey(userID string) string { return sessionKeyPrefix + userID }

func codeKey(email string) string { return codeKeyPrefix + email }
