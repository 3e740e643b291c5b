// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/VA7DBI/adminAPI/config"
	"github.com/VA7DBI/adminAPI/metrics"
	"github.com/sirupsen/logrus"
)

const verificationCodeDigits = 6

// ServiceDeps are the collaborators of Service.
type ServiceDeps struct {
	Users    CredentialStore
	Sessions SessionCache
	Codes    CodeStore
	Codec    *TokenCodec
	Mailer   Mailer
	Logger   *logrus.Logger
}

// Service implements registration, login and verification codes. A successful
// login replaces the user's session entry, which logs out any earlier token.
type Service struct {
	users    CredentialStore
	sessions SessionCache
	codes    CodeStore
	codec    *TokenCodec
	mailer   Mailer
	logger   *logrus.Logger

	tokenLifetime time.Duration
	codeTTL       time.Duration
	mailTimeout   time.Duration
	requireCode   bool
	passwordCost  int
	dummyHashOnce sync.Once
	dummyHash     string
}

func NewService(cfg *config.Config, deps ServiceDeps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Service{
		users:         deps.Users,
		sessions:      deps.Sessions,
		codes:         deps.Codes,
		codec:         deps.Codec,
		mailer:        deps.Mailer,
		logger:        logger,
		tokenLifetime: cfg.Auth.TokenLifetime,
		codeTTL:       cfg.Auth.VerificationCodeTTL,
		mailTimeout:   cfg.Mail.Timeout,
		requireCode:   cfg.Auth.RequireVerificationCode,
		passwordCost:  cfg.Auth.PasswordCost,
	}
	if s.tokenLifetime <= 0 {
		s.tokenLifetime = 7 * 24 * time.Hour
	}
	if s.codeTTL <= 0 {
		s.codeTTL = 5 * time.Minute
	}
	if s.mailTimeout <= 0 {
		s.mailTimeout = 10 * time.Second
	}
	return s
}

// Register creates a user and returns its ID. When verification codes are
// required, code must match the one most recently sent to email.
func (s *Service) Register(ctx context.Context, email, password, code string) (string, error) {
	if email == "" || password == "" {
		metrics.Registrations.WithLabelValues("invalid").Inc()
		return "", fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	if s.requireCode {
		if err := s.checkCode(ctx, email, code); err != nil {
			metrics.Registrations.WithLabelValues("invalid_code").Inc()
			return "", err
		}
	}

	hash, err := HashPassword(password, s.passwordCost)
	if err != nil {
		metrics.Registrations.WithLabelValues("invalid").Inc()
		return "", err
	}

	user, err := s.users.CreateUser(ctx, email, hash)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			metrics.Registrations.WithLabelValues("conflict").Inc()
			return "", err
		}
		metrics.Registrations.WithLabelValues("error").Inc()
		return "", fmt.Errorf("failed to create user: %w", err)
	}

	if s.requireCode {
		if err := s.codes.DeleteCode(ctx, email); err != nil {
			s.logger.WithError(err).WithField("email", email).Warn("Failed to delete used verification code")
		}
	}

	metrics.Registrations.WithLabelValues("created").Inc()
	s.logger.WithFields(logrus.Fields{"user_id": user.ID, "email": email}).Info("User registered")
	return user.ID, nil
}

// Login verifies credentials, issues a token and makes it the user's only
// valid session. If the session cache cannot be written the login fails.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		metrics.LoginAttempts.WithLabelValues("invalid").Inc()
		return "", fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		// Spend the same hashing time as a real comparison.
		CheckPassword(s.fallbackHash(), password)
		metrics.LoginAttempts.WithLabelValues("unauthorized").Inc()
		return "", ErrUnauthorized
	}
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		return "", fmt.Errorf("failed to look up user: %w", err)
	}

	if !CheckPassword(user.PasswordHash, password) {
		metrics.LoginAttempts.WithLabelValues("unauthorized").Inc()
		return "", ErrUnauthorized
	}

	token, err := s.codec.Issue(user.ID, user.Email, s.tokenLifetime)
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	if err := s.sessions.SetSession(ctx, user.ID, token, s.tokenLifetime); err != nil {
		metrics.LoginAttempts.WithLabelValues("session_unavailable").Inc()
		s.logger.WithError(err).WithField("user_id", user.ID).Error("Failed to register session")
		return "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	s.logger.WithField("user_id", user.ID).Info("User logged in")
	return token, nil
}

// SendVerificationCode stores a fresh 6-digit code for email and mails it.
func (s *Service) SendVerificationCode(ctx context.Context, email string) error {
	if email == "" {
		metrics.VerificationCodes.WithLabelValues("invalid").Inc()
		return fmt.Errorf("%w: email is required", ErrValidation)
	}

	code, err := generateCode(verificationCodeDigits)
	if err != nil {
		metrics.VerificationCodes.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to generate code: %w", err)
	}

	if err := s.codes.SetCode(ctx, email, code, s.codeTTL); err != nil {
		metrics.VerificationCodes.WithLabelValues("store_unavailable").Inc()
		s.logger.WithError(err).WithField("email", email).Error("Failed to store verification code")
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	mailCtx, cancel := context.WithTimeout(ctx, s.mailTimeout)
	defer cancel()
	if err := s.mailer.SendVerificationCode(mailCtx, email, code); err != nil {
		metrics.VerificationCodes.WithLabelValues("mail_failed").Inc()
		s.logger.WithError(err).WithField("email", email).Error("Failed to send verification code")
		return fmt.Errorf("%w: %v", ErrMailDeliveryFailed, err)
	}

	metrics.VerificationCodes.WithLabelValues("sent").Inc()
	return nil
}

func (s *Service) checkCode(ctx context.Context, email, code string) error {
	if code == "" {
		return fmt.Errorf("%w: verification code is required", ErrValidation)
	}
	stored, err := s.codes.GetCode(ctx, email)
	if errors.Is(err, ErrCodeNotFound) {
		return fmt.Errorf("%w: verification code expired or not requested", ErrValidation)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return fmt.Errorf("%w: verification code does not match", ErrValidation)
	}
	return nil
}

func (s *Service) fallbackHash() string {
	s.dummyHashOnce.Do(func() {
		s.dummyHash, _ = HashPassword("not-a-real-password", s.passwordCost)
	})
	return s.dummyHash
}

func generateCode(digits int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n.Int64()), nil
}
