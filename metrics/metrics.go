// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AuthDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adminapi_auth_decisions_total",
		Help: "Auth gate outcomes for protected requests",
	}, []string{"result"})

	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adminapi_login_attempts_total",
		Help: "Total number of login attempts",
	}, []string{"result"})

	Registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adminapi_registrations_total",
		Help: "Total number of registration attempts",
	}, []string{"result"})

	VerificationCodes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adminapi_verification_codes_total",
		Help: "Verification codes generated and mailed",
	}, []string{"result"})

	SessionStoreDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "adminapi_session_store_duration_seconds",
		Help:    "Latency of session cache operations",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2.0, 12), // 0.5ms to ~1s
	}, []string{"operation", "status"})
)

// Auth decision labels.
const (
	ResultAuthorized         = "authorized"
	ResultNoToken            = "no_token"
	ResultInvalidToken       = "invalid_token"
	ResultSessionMismatch    = "session_mismatch"
	ResultSessionUnavailable = "session_unavailable"
	ResultMisconfigured      = "misconfigured"
)
