// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/VA7DBI/adminAPI/auth"
	"github.com/VA7DBI/adminAPI/config"
	"github.com/VA7DBI/adminAPI/metrics"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Messages returned to rejected callers.
const (
	MsgNotLoggedIn        = "未登录"
	MsgInvalidToken       = "无效的 token"
	MsgSessionExpired     = "登录已过期，请重新登录"
	MsgSessionUnavailable = "会话服务不可用"
	MsgMisconfigured      = "认证服务配置错误"
)

// IdentityKey is the gin context key holding the authenticated auth.Identity.
const IdentityKey = "identity"

// Rejection describes why a request was not authorized.
type Rejection struct {
	Status  int
	Message string
	Reason  string
}

// AuthMiddleware handles bearer token authentication against the single
// active session of each user.
type AuthMiddleware struct {
	cfg      *config.Config
	codec    *auth.TokenCodec
	sessions auth.SessionCache
	logger   *logrus.Logger
}

// NewAuthMiddleware creates a new auth middleware instance.
func NewAuthMiddleware(cfg *config.Config, sessions auth.SessionCache, logger *logrus.Logger) (*AuthMiddleware, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	m := &AuthMiddleware{
		cfg:      cfg,
		sessions: sessions,
		logger:   logger,
	}
	return m, m.initialize()
}

func (m *AuthMiddleware) initialize() error {
	if m.cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("failed to initialize token codec: %w", auth.ErrMissingSecret)
	}
	if m.sessions == nil {
		return fmt.Errorf("failed to initialize auth middleware: no session cache")
	}
	m.codec = auth.NewTokenCodec(m.cfg.Auth.JWTSecret)
	return nil
}

// Authenticate decides whether the Authorization header value grants access.
// It returns the caller's identity, or a rejection when access is denied.
func (m *AuthMiddleware) Authenticate(ctx context.Context, authHeader string) (auth.Identity, *Rejection) {
	token := extractToken(authHeader)
	if token == "" {
		return auth.Identity{}, &Rejection{http.StatusUnauthorized, MsgNotLoggedIn, metrics.ResultNoToken}
	}

	claims, err := m.codec.Verify(token)
	if errors.Is(err, auth.ErrMissingSecret) {
		m.logger.WithError(err).Error("Token verification is not configured")
		return auth.Identity{}, &Rejection{http.StatusInternalServerError, MsgMisconfigured, metrics.ResultMisconfigured}
	}
	if err != nil {
		m.logger.WithError(err).Debug("Rejected token")
		return auth.Identity{}, &Rejection{http.StatusUnauthorized, MsgInvalidToken, metrics.ResultInvalidToken}
	}

	current, err := m.sessions.GetSession(ctx, claims.UserID)
	if errors.Is(err, auth.ErrSessionNotFound) {
		return auth.Identity{}, &Rejection{http.StatusUnauthorized, MsgSessionExpired, metrics.ResultSessionMismatch}
	}
	if err != nil {
		m.logger.WithError(err).WithField("user_id", claims.UserID).Error("Session lookup failed")
		return auth.Identity{}, &Rejection{http.StatusInternalServerError, MsgSessionUnavailable, metrics.ResultSessionUnavailable}
	}
	if current != token {
		return auth.Identity{}, &Rejection{http.StatusUnauthorized, MsgSessionExpired, metrics.ResultSessionMismatch}
	}

	return auth.Identity{UserID: claims.UserID, Email: claims.Email}, nil
}

// Handler returns the gin middleware handler function
func (m *AuthMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, rejection := m.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		if rejection != nil {
			metrics.AuthDecisions.WithLabelValues(rejection.Reason).Inc()
			c.AbortWithStatusJSON(rejection.Status, gin.H{"error": rejection.Message})
			return
		}

		metrics.AuthDecisions.WithLabelValues(metrics.ResultAuthorized).Inc()
		c.Set(IdentityKey, identity)
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), identity))
		c.Next()
	}
}

// IdentityFrom returns the identity attached by Handler.
func IdentityFrom(c *gin.Context) (auth.Identity, bool) {
	value, exists := c.Get(IdentityKey)
	if !exists {
		return auth.Identity{}, false
	}
	identity, ok := value.(auth.Identity)
	return identity, ok
}

func extractToken(authHeader string) string {
	if authHeader == "" {
		return ""
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}

	return parts[1]
}
