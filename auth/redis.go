// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/VA7DBI/adminAPI/config"
	"github.com/VA7DBI/adminAPI/metrics"
	"github.com/redis/go-redis/v9"
)

// RedisSessionCache implements SessionCache and CodeStore on Redis. Every
// call is bounded by the configured session timeout.
type RedisSessionCache struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRedisClient builds a client from cfg. Context deadlines are honoured so
// the per-call session timeout bounds every command.
func NewRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:                  cfg.Redis.Addr,
		Password:              cfg.Redis.Password,
		DB:                    cfg.Redis.DB,
		DialTimeout:           cfg.Redis.DialTimeout,
		ReadTimeout:           cfg.Redis.ReadTimeout,
		WriteTimeout:          cfg.Redis.WriteTimeout,
		ContextTimeoutEnabled: true,
	})
}

func NewRedisSessionCache(cfg *config.Config) (*RedisSessionCache, error) {
	client := NewRedisClient(cfg)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Redis.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %v", err)
	}

	return NewRedisSessionCacheFromClient(client, cfg.Auth.SessionTimeout), nil
}

// NewRedisSessionCacheFromClient wraps an existing client. The timeout only
// takes effect when the client was built with ContextTimeoutEnabled.
func NewRedisSessionCacheFromClient(client *redis.Client, timeout time.Duration) *RedisSessionCache {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &RedisSessionCache{
		client:  client,
		timeout: timeout,
	}
}

func (s *RedisSessionCache) SetSession(ctx context.Context, userID, token string, ttl time.Duration) error {
	return s.set(ctx, "set_session", sessionKey(userID), token, ttl)
}

func (s *RedisSessionCache) GetSession(ctx context.Context, userID string) (string, error) {
	token, err := s.get(ctx, "get_session", sessionKey(userID))
	if errors.Is(err, redis.Nil) {
		return "", ErrSessionNotFound
	}
	return token, err
}

func (s *RedisSessionCache) SetCode(ctx context.Context, email, code string, ttl time.Duration) error {
	return s.set(ctx, "set_code", codeKey(email), code, ttl)
}

func (s *RedisSessionCache) GetCode(ctx context.Context, email string) (string, error) {
	code, err := s.get(ctx, "get_code", codeKey(email))
	if errors.Is(err, redis.Nil) {
		return "", ErrCodeNotFound
	}
	return code, err
}

func (s *RedisSessionCache) DeleteCode(ctx context.Context, email string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := s.client.Del(ctx, codeKey(email)).Err()
	observe("delete_code", start, err)
	if err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

func (s *RedisSessionCache) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.Ping(ctx).Err()
}

func (s *RedisSessionCache) Close() error {
	return s.client.Close()
}

func (s *RedisSessionCache) set(ctx context.Context, op, key, value string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := s.client.Set(ctx, key, value, ttl).Err()
	observe(op, start, err)
	if err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (s *RedisSessionCache) get(ctx context.Context, op, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	value, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		observe(op, start, nil)
		return "", err
	}
	observe(op, start, err)
	if err != nil {
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	return value, nil
}

func observe(op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.SessionStoreDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
}
