// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryCredentialStore is an in-process CredentialStore for development and
// tests. Users are lost on restart.
type MemoryCredentialStore struct {
	mu      sync.RWMutex
	byEmail map[string]*User
}

func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{
		byEmail: make(map[string]*User),
	}
}

func (m *MemoryCredentialStore) CreateUser(ctx context.Context, email, passwordHash string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byEmail[email]; exists {
		return nil, fmt.Errorf("%w: %s", ErrConflict, email)
	}

	user := &User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	m.byEmail[email] = user

	copied := *user
	return &copied, nil
}

func (m *MemoryCredentialStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	user, exists := m.byEmail[email]
	if !exists {
		return nil, ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}
