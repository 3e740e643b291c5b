// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package auth

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/VA7DBI/adminAPI/config"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisTest(t *testing.T) (*RedisSessionCache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{}
	cfg.Redis.Addr = mr.Addr()
	cfg.Redis.DialTimeout = time.Second
	cfg.Auth.SessionTimeout = time.Second

	store, err := NewRedisSessionCache(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store, mr
}

func TestRedisSessionCache(t *testing.T) {
	store, mr := setupRedisTest(t)
	defer mr.Close()
	ctx := context.Background()

	t.Run("GetMissingSession", func(t *testing.T) {
		_, err := store.GetSession(ctx, "nobody")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("SetAndGetSession", func(t *testing.T) {
		err := store.SetSession(ctx, "user-1", "token-a", time.Hour)
		assert.NoError(t, err)

		token, err := store.GetSession(ctx, "user-1")
		assert.NoError(t, err)
		assert.Equal(t, "token-a", token)

		value, err := mr.Get("session:user-1")
		assert.NoError(t, err)
		assert.Equal(t, "token-a", value)
		assert.Equal(t, time.Hour, mr.TTL("session:user-1"))
	})

	t.Run("SetOverwritesSession", func(t *testing.T) {
		assert.NoError(t, store.SetSession(ctx, "user-2", "first", time.Hour))
		assert.NoError(t, store.SetSession(ctx, "user-2", "second", time.Hour))

		token, err := store.GetSession(ctx, "user-2")
		assert.NoError(t, err)
		assert.Equal(t, "second", token)
	})

	t.Run("SessionExpiration", func(t *testing.T) {
		assert.NoError(t, store.SetSession(ctx, "user-3", "expiring", time.Second))

		mr.FastForward(2 * time.Second)

		_, err := store.GetSession(ctx, "user-3")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("VerificationCodes", func(t *testing.T) {
		_, err := store.GetCode(ctx, "a@example.com")
		assert.ErrorIs(t, err, ErrCodeNotFound)

		assert.NoError(t, store.SetCode(ctx, "a@example.com", "123456", time.Minute))
		assert.True(t, mr.Exists("verify:a@example.com"))

		code, err := store.GetCode(ctx, "a@example.com")
		assert.NoError(t, err)
		assert.Equal(t, "123456", code)

		assert.NoError(t, store.DeleteCode(ctx, "a@example.com"))
		_, err = store.GetCode(ctx, "a@example.com")
		assert.ErrorIs(t, err, ErrCodeNotFound)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, store.Ping(ctx))
	})
}

func TestRedisSessionCacheUnreachable(t *testing.T) {
	store, mr := setupRedisTest(t)
	mr.Close()
	ctx := context.Background()

	err := store.SetSession(ctx, "user-1", "token", time.Hour)
	assert.Error(t, err)

	_, err = store.GetSession(ctx, "user-1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)
}

// silentRedis accepts connections and never answers.
func silentRedis(t *testing.T) string {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()

	t.Cleanup(func() {
		ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, conn := range conns {
			conn.Close()
		}
	})
	return ln.Addr().String()
}

func TestRedisSessionCacheHungServer(t *testing.T) {
	cfg := &config.Config{}
	cfg.Redis.Addr = silentRedis(t)
	cfg.Redis.DialTimeout = time.Second
	cfg.Redis.ReadTimeout = 5 * time.Second
	cfg.Redis.WriteTimeout = 5 * time.Second

	client := NewRedisClient(cfg)
	t.Cleanup(func() { client.Close() })
	store := NewRedisSessionCacheFromClient(client, 100*time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	_, err := store.GetSession(ctx, "user-1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)
	assert.Less(t, time.Since(start), time.Second, "read timeout must not be the bound")

	start = time.Now()
	assert.Error(t, store.SetSession(ctx, "user-1", "token", time.Hour))
	assert.Less(t, time.Since(start), time.Second)

	start = time.Now()
	assert.Error(t, store.Ping(ctx))
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewRedisSessionCacheConnectionFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := &config.Config{}
	cfg.Redis.Addr = addr
	cfg.Redis.DialTimeout = 200 * time.Millisecond

	_, err := NewRedisSessionCache(cfg)
	assert.Error(t, err)
}
