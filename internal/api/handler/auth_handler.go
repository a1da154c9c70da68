package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/krrishnaik/Markly/internal/dto"
	"github.com/krrishnaik/Markly/internal/service"
	"github.com/krrishnaik/Markly/pkg/redis"
	"github.com/krrishnaik/Markly/pkg/response"
)

// AuthHandler 认证模块 HTTP 处理器
type AuthHandler struct {
	authSvc service.AuthService
	rdb     *redis.Client
	logger  *zap.Logger
}

// NewAuthHandler 创建 AuthHandler；rdb 为 nil 时登出不写黑名单
func NewAuthHandler(authSvc service.AuthService, rdb *redis.Client, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, rdb: rdb, logger: logger}
}

// Login 用户登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Unauthorized(c, response.CodeUnauthorized, "邮箱或密码错误")
			return
		}
		respondError(c, err)
		return
	}

	response.OK(c, result)
}

// Logout 用户登出，将当前 Token 加入黑名单直至过期
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := GetClaims(c)
	if !ok {
		response.Unauthorized(c, response.CodeUnauthorized, "未认证")
		return
	}

	if h.rdb != nil {
		if err := h.rdb.BlacklistToken(c.Request.Context(), claims.ID, claims.Remaining(time.Now())); err != nil {
			h.logger.Error("写入 Token 黑名单失败", zap.String("user_id", claims.UserID), zap.Error(err))
			response.InternalError(c)
			return
		}
	}

	response.OK(c, nil)
}

// Me 当前登录用户
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	user, err := h.authSvc.GetCurrentUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, user)
}
