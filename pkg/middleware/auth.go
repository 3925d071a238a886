package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"amity-social/pkg/auth"
	tracecontext "amity-social/pkg/context"
	"amity-social/pkg/httpx"
	"amity-social/pkg/logger"
)

// AuthMiddleware 认证中间件配置
type AuthMiddleware struct {
	logger logger.Logger
	jwt    *auth.JWTConfig
}

// NewAuthMiddleware 创建认证中间件
func NewAuthMiddleware(log logger.Logger, jwt *auth.JWTConfig) *AuthMiddleware {
	return &AuthMiddleware{
		logger: log,
		jwt:    jwt,
	}
}

// GinAuth Gin认证中间件
func (am *AuthMiddleware) GinAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if am.shouldSkipAuth(c.Request.Method, c.Request.URL.Path) {
			c.Next()
			return
		}

		token := am.extractTokenFromHeader(c.GetHeader("Authorization"))
		if token == "" {
			am.logger.Warn(c.Request.Context(), "Missing authorization token",
				logger.F("path", c.Request.URL.Path))
			httpx.WriteError(c, http.StatusUnauthorized, "UNAUTHENTICATED", "missing authorization token")
			c.Abort()
			return
		}

		userID, err := am.jwt.ParseToken(token)
		if err != nil {
			am.logger.Warn(c.Request.Context(), "Invalid token",
				logger.F("error", err.Error()),
				logger.F("path", c.Request.URL.Path))
			httpx.WriteError(c, http.StatusUnauthorized, "UNAUTHENTICATED", "invalid token")
			c.Abort()
			return
		}

		c.Set("userID", userID)
		c.Request = c.Request.WithContext(tracecontext.WithUserID(c.Request.Context(), userID))
		c.Next()
	}
}

// extractTokenFromHeader 从Authorization头中提取token
func (am *AuthMiddleware) extractTokenFromHeader(authHeader string) string {
	if authHeader == "" {
		return ""
	}

	// 支持 "Bearer token" 和直接的 "token" 格式
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return authHeader
}

// shouldSkipAuth 判断是否跳过认证，注册接口公开以便自举身份
func (am *AuthMiddleware) shouldSkipAuth(method, path string) bool {
	if strings.HasPrefix(path, "/health") {
		return true
	}
	if method == http.MethodPost && path == "/api/v1/users" {
		return true
	}
	return false
}
