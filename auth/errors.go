// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package auth

import "errors"

// Error kinds returned by the service. Handlers map them to status codes.
var (
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("email already registered")
	ErrUnauthorized       = errors.New("invalid email or password")
	ErrServiceUnavailable = errors.New("session service unavailable")
	ErrMailDeliveryFailed = errors.New("mail delivery failed")
)

// Token codec errors.
var (
	ErrMalformedToken   = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrTokenExpired     = errors.New("token expired")
	ErrMissingSecret    = errors.New("token signing secret is not configured")
)

// Store errors.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrCodeNotFound    = errors.New("verification code not found")
)
