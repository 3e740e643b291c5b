// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/VA7DBI/adminAPI/config"
	"github.com/sirupsen/logrus"
	gomail "github.com/wneessen/go-mail"
)

// SMTPSender delivers verification codes over SMTP.
type SMTPSender struct {
	client  *gomail.Client
	from    string
	subject string
	codeTTL time.Duration
}

func NewSMTPSender(cfg *config.Config) (*SMTPSender, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Mail.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if cfg.Mail.Timeout > 0 {
		opts = append(opts, gomail.WithTimeout(cfg.Mail.Timeout))
	}
	if cfg.Mail.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Mail.Username),
			gomail.WithPassword(cfg.Mail.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Mail.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %v", err)
	}

	return &SMTPSender{
		client:  client,
		from:    cfg.Mail.From,
		subject: cfg.Mail.Subject,
		codeTTL: cfg.Auth.VerificationCodeTTL,
	}, nil
}

func (s *SMTPSender) SendVerificationCode(ctx context.Context, to, code string) error {
	msg := gomail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(s.subject)
	msg.SetBodyString(gomail.TypeTextPlain, verificationBody(code, s.codeTTL))

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp delivery failed: %w", err)
	}
	return nil
}

// LogSender writes codes to the log instead of mailing them. It is used when
// mail is disabled and must not run in production.
type LogSender struct {
	logger *logrus.Logger
}

func NewLogSender(logger *logrus.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendVerificationCode(ctx context.Context, to, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"email": to,
		"code":  code,
	}).Warn("Mail disabled, verification code not sent")
	return nil
}

func verificationBody(code string, ttl time.Duration) string {
	minutes := int(ttl.Minutes())
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("您的验证码是：%s，%d 分钟内有效。如非本人操作，请忽略此邮件。", code, minutes)
}
