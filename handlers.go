// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"errors"
	"net/http"

	"github.com/VA7DBI/adminAPI/auth"
	"github.com/VA7DBI/adminAPI/middleware"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	msgBadRequest     = "参数错误"
	msgEmailTaken     = "该邮箱已被注册"
	msgBadCredentials = "邮箱或密码错误"
	msgSessionDown    = "会话服务不可用"
	msgMailFailed     = "验证码发送失败，请稍后重试"
	msgInternal       = "服务器内部错误"
	msgLoginSucceeded = "登录成功"
	msgCodeSent       = "验证码已发送"
	msgNotLoggedIn    = "未登录"
)

type AuthHandlers struct {
	service *auth.Service
	logger  *logrus.Logger
}

func NewAuthHandlers(service *auth.Service, logger *logrus.Logger) *AuthHandlers {
	return &AuthHandlers{
		service: service,
		logger:  logger,
	}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Code     string `json:"code"`
}

type RegisterResponse struct {
	UserID string `json:"userId"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Token   string `json:"token"`
}

type SendCodeRequest struct {
	Email string `json:"email" binding:"required"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// UserInfoResponse is the identity of the logged in caller.
type UserInfoResponse struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// @Summary     Register a user
// @Description Create an account. A verification code is required when the server enables it.
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body RegisterRequest true "Credentials"
// @Success     201 {object} RegisterResponse
// @Failure     400 {object} ErrorResponse
// @Failure     409 {object} ErrorResponse
// @Failure     500 {object} ErrorResponse
// @Router      /register [post]
func (h *AuthHandlers) RegisterHandler(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgBadRequest})
		return
	}

	userID, err := h.service.Register(c.Request.Context(), req.Email, req.Password, req.Code)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, RegisterResponse{UserID: userID})
}

// @Summary     Log in
// @Description Exchange credentials for a bearer token. Any token issued earlier to the same user stops working.
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body LoginRequest true "Credentials"
// @Success     200 {object} LoginResponse
// @Failure     400 {object} ErrorResponse
// @Failure     401 {object} ErrorResponse
// @Failure     500 {object} ErrorResponse
// @Router      /login [post]
func (h *AuthHandlers) LoginHandler(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgBadRequest})
		return
	}

	token, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Message: msgLoginSucceeded,
		Code:    http.StatusOK,
		Token:   token,
	})
}

// @Summary     Send a verification code
// @Description Mail a 6-digit registration code to the address.
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body SendCodeRequest true "Recipient"
// @Success     200 {object} MessageResponse
// @Failure     400 {object} ErrorResponse
// @Failure     500 {object} ErrorResponse
// @Failure     502 {object} ErrorResponse
// @Router      /send-code [post]
func (h *AuthHandlers) SendCodeHandler(c *gin.Context) {
	var req SendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgBadRequest})
		return
	}

	if err := h.service.SendVerificationCode(c.Request.Context(), req.Email); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: msgCodeSent})
}

// @Summary     Current user
// @Description Identity attached to the bearer token
// @Tags        user
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} UserInfoResponse
// @Failure     401 {object} ErrorResponse
// @Failure     500 {object} ErrorResponse
// @Router      /user/info [get]
func (h *AuthHandlers) UserInfoHandler(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: msgNotLoggedIn})
		return
	}
	c.JSON(http.StatusOK, UserInfoResponse{UserID: identity.UserID, Email: identity.Email})
}

func (h *AuthHandlers) handleError(c *gin.Context, err error) {
	status, message := toHTTPError(err)
	if status >= http.StatusInternalServerError {
		h.logger.WithError(err).WithField("path", c.Request.URL.Path).Error("Request failed")
	}
	c.JSON(status, ErrorResponse{Error: message})
}

func toHTTPError(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrValidation):
		return http.StatusBadRequest, msgBadRequest
	case errors.Is(err, auth.ErrConflict):
		return http.StatusConflict, msgEmailTaken
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized, msgBadCredentials
	case errors.Is(err, auth.ErrServiceUnavailable):
		return http.StatusInternalServerError, msgSessionDown
	case errors.Is(err, auth.ErrMailDeliveryFailed):
		return http.StatusBadGateway, msgMailFailed
	default:
		return http.StatusInternalServerError, msgInternal
	}
}
