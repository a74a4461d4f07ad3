package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"jobPortal/internal/auth"
	"jobPortal/internal/errcode"
)

// 上下文键，handler 通过同名键读取。
const (
	UserIDKey             = "userID"
	IsAdminKey            = "isAdmin"
	MustChangePasswordKey = "mustChangePassword"
)

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

func abortForbidden(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": msg, "code": errcode.Forbidden})
}

// bearerToken 取出 Authorization: Bearer <token> 中的令牌。
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// AuthMiddleware 校验访问令牌并将 userID、管理员标记注入上下文。
func AuthMiddleware(authService *auth.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawToken, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c)
			return
		}

		claims, err := authService.ValidateToken(rawToken)
		if err != nil || claims.TokenType != auth.TokenTypeAccess {
			abortUnauthorized(c)
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(IsAdminKey, claims.IsAdmin)
		c.Set(MustChangePasswordKey, claims.MustChangePassword)
		c.Next()
	}
}

// OptionalAuthMiddleware 用于公开路由：带有效访问令牌时注入身份，否则按匿名放行。
// 仍需改密的令牌不注入身份。
func OptionalAuthMiddleware(authService *auth.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawToken, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Next()
			return
		}
		claims, err := authService.ValidateToken(rawToken)
		if err == nil && claims.TokenType == auth.TokenTypeAccess && !claims.MustChangePassword {
			c.Set(UserIDKey, claims.UserID)
			c.Set(IsAdminKey, claims.IsAdmin)
		}
		c.Next()
	}
}

// RequireAdminMiddleware 仅放行管理员令牌，需挂在 AuthMiddleware 之后。
func RequireAdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(IsAdminKey) {
			abortForbidden(c, "admin only")
			return
		}
		c.Next()
	}
}

// RequirePasswordChangeCompletedMiddleware 拦截仍需改密的账号，只看令牌内的 must_change_password。
func RequirePasswordChangeCompletedMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetBool(MustChangePasswordKey) {
			abortForbidden(c, "password change required")
			return
		}
		c.Next()
	}
}
