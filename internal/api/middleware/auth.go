package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"paas-cd/internal/dto"
	"paas-cd/internal/pkg/auth"
	"paas-cd/internal/pkg/jwt"
	"paas-cd/pkg/constants"
	"paas-cd/pkg/responses"
)

// AuthMiddleware JWT认证中间件
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 获取Authorization header
		authHeader := c.GetHeader(constants.HeaderAuthorization)
		if authHeader == "" {
			responses.ErrorWithCode(c, 401, "缺少Authorization Header")
			c.Abort()
			return
		}

		// 检查Bearer前缀
		if !strings.HasPrefix(authHeader, constants.HeaderBearerPrefix) {
			responses.ErrorWithCode(c, 401, "Authorization格式错误")
			c.Abort()
			return
		}

		// 提取并验证Token
		token := strings.TrimPrefix(authHeader, constants.HeaderBearerPrefix)
		claims, err := jwt.ValidateToken(token)
		if err != nil {
			responses.Error(c, err)
			c.Abort()
			return
		}

		// 检查Token类型(必须是AccessToken)
		if claims.Type != constants.JWTTypeAccess {
			responses.ErrorWithCode(c, 401, "无效的Token类型")
			c.Abort()
			return
		}

		// 将用户信息存入context
		userInfo := &dto.UserInfo{
			Username:    claims.Username,
			Email:       claims.Email,
			DisplayName: claims.DisplayName,
			Roles:       claims.Roles,
		}
		c.Set("user", userInfo)
		c.Set("username", claims.Username)

		c.Next()
	}
}

// RequirePermission 权限校验中间件，依赖 AuthMiddleware 先行
func RequirePermission(need auth.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			responses.ErrorWithCode(c, 401, "未授权")
			c.Abort()
			return
		}
		if !auth.Allow(user.Roles, need) {
			responses.ErrorWithCode(c, 403, "没有操作权限")
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser 从context取认证用户，未认证时返回nil
func CurrentUser(c *gin.Context) *dto.UserInfo {
	if v, ok := c.Get("user"); ok {
		if user, ok := v.(*dto.UserInfo); ok {
			return user
		}
	}
	return nil
}

// CurrentUsername 当前用户名，未认证时返回空串
func CurrentUsername(c *gin.Context) string {
	if user := CurrentUser(c); user != nil {
		return user.Username
	}
	return ""
}
