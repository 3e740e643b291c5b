// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/VA7DBI/adminAPI/auth"
	"github.com/VA7DBI/adminAPI/config"
	"github.com/VA7DBI/adminAPI/docs"
	"github.com/VA7DBI/adminAPI/mailer"
	"github.com/VA7DBI/adminAPI/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

var (
	configFile = flag.String("config", "config.yaml", "Path to configuration file")
	envFile    = flag.String("env", ".env", "Path to an optional .env file")
)

// @title                      Admin API Service
// @version                    1.0
// @description                Session authentication for the product and employee admin console.
// @BasePath                   /
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
func main() {
	flag.Parse()
	logger := logrus.New()

	if err := config.LoadDotEnv(*envFile); err != nil {
		logger.Fatalf("Failed to load environment: %v", err)
	}

	// Load configuration
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	configureLogger(logger, cfg)

	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	sessions, err := auth.NewRedisSessionCache(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize session cache: %v", err)
	}
	defer sessions.Close()

	users, closeUsers, err := newCredentialStore(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize credential store: %v", err)
	}
	defer closeUsers()

	sender, err := newMailer(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize mailer: %v", err)
	}

	service := auth.NewService(cfg, auth.ServiceDeps{
		Users:    users,
		Sessions: sessions,
		Codes:    sessions,
		Codec:    auth.NewTokenCodec(cfg.Auth.JWTSecret),
		Mailer:   sender,
		Logger:   logger,
	})

	authMiddleware, err := middleware.NewAuthMiddleware(cfg, sessions, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize auth middleware: %v", err)
	}

	r := setupRouter(cfg, NewAuthHandlers(service, logger), authMiddleware, sessions, logger)

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("Starting server on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("Server stopped: %v", err)
	}
}

func setupRouter(cfg *config.Config, handlers *AuthHandlers, authMiddleware *middleware.AuthMiddleware, sessions pinger, logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger))

	api := r.Group(cfg.API.BasePath)
	api.POST("/register", handlers.RegisterHandler)
	api.POST("/login", handlers.LoginHandler)
	api.POST("/send-code", handlers.SendCodeHandler)

	// Product and employee routes mount under the same protected group
	protected := api.Group("/", authMiddleware.Handler())
	protected.GET("/user/info", handlers.UserInfoHandler)

	// These endpoints remain public
	r.GET("/health", healthCheck(sessions))
	docs.SwaggerInfo.Host = cfg.API.SwaggerHost
	docs.SwaggerInfo.BasePath = cfg.API.BasePath
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Add Prometheus metrics endpoint if enabled
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	return r
}

func configureLogger(logger *logrus.Logger, cfg *config.Config) {
	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		logger.Warnf("Unknown log level %q, using info", cfg.Logging.Level)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	logger.SetOutput(os.Stdout)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

func newCredentialStore(cfg *config.Config, logger *logrus.Logger) (auth.CredentialStore, func(), error) {
	if !cfg.Postgres.Enabled {
		logger.Warn("Postgres disabled, users are kept in memory and lost on restart")
		return auth.NewMemoryCredentialStore(), func() {}, nil
	}

	store, err := auth.NewPostgresCredentialStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Postgres.Migrate {
		if err := store.Migrate(); err != nil {
			store.Close()
			return nil, nil, err
		}
	}
	return store, func() { store.Close() }, nil
}

func newMailer(cfg *config.Config, logger *logrus.Logger) (auth.Mailer, error) {
	if !cfg.Mail.Enabled {
		logger.Warn("Mail disabled, verification codes are written to the log")
		return mailer.NewLogSender(logger), nil
	}
	return mailer.NewSMTPSender(cfg)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status string `json:"status"`
}

// @Summary     Health check endpoint
// @Description Get API health status. Reports degraded when the session cache is unreachable.
// @Tags        health
// @Produce     json
// @Success     200 {object} HealthResponse
// @Failure     503 {object} HealthResponse
// @Router      /health [get]
func healthCheck(sessions pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := sessions.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "degraded"})
			return
		}
		c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
	}
}
