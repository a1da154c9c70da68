package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/krrishnaik/Markly/internal/model"
	"github.com/krrishnaik/Markly/pkg/jwt"
	"github.com/krrishnaik/Markly/pkg/response"
)

// 上下文键，由 middleware.JWTAuth 写入
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
	CtxClubID = "club_id"
	CtxClaims = "claims"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	return mustGetString(c, CtxUserID)
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	return mustGetString(c, CtxRole)
}

// GetClubID 负责人所属社团；其他角色为空字符串
func GetClubID(c *gin.Context) string {
	return c.GetString(CtxClubID)
}

// GetClaims 当前请求的 Token 声明
func GetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get(CtxClaims)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	return claims, ok
}

func mustGetString(c *gin.Context, key string) (string, bool) {
	v, exists := c.Get(key)
	if !exists {
		response.Unauthorized(c, response.CodeUnauthorized, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, response.CodeUnauthorized, "未认证")
		return "", false
	}
	return s, true
}

// ensureClubLead 负责人只能操作本社团；教师与其他角色不受此限制（由路由上的 RoleAuth 约束）。
// 不满足时写入 403 并返回 false。
func ensureClubLead(c *gin.Context, clubID string) bool {
	role, ok := MustGetRole(c)
	if !ok {
		return false
	}
	if role == model.RoleLead && GetClubID(c) != clubID {
		response.Forbidden(c, response.CodeForbidden, "只能操作本社团的数据")
		return false
	}
	return true
}
