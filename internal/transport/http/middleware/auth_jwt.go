package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"task-manager-api/internal/core/auth"
	resp "task-manager-api/internal/transport/http/response"
)

// AuthJWT 校验 Bearer access token，把 userId 写入 request context
func AuthJWT(j *auth.JWTer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ah := c.GetHeader("Authorization")
		tok := strings.TrimSpace(strings.TrimPrefix(ah, "Bearer "))
		if !strings.HasPrefix(ah, "Bearer ") || tok == "" {
			resp.Abort(c, http.StatusUnauthorized, "Access denied. No token provided.", nil)
			return
		}
		claims, err := j.Parse(tok)
		if err != nil {
			msg := "Invalid Token"
			if errors.Is(err, auth.ErrTokenExpired) {
				msg = "Token Expired."
			}
			resp.Abort(c, http.StatusUnauthorized, msg, nil)
			return
		}
		c.Request = c.Request.WithContext(auth.WithUserID(c.Request.Context(), claims.UserID))
		c.Next()
	}
}

// UserID AuthJWT 之后的 handler 用；未登录时为空
func UserID(c *gin.Context) string {
	uid, _ := auth.UserIDFrom(c.Request.Context())
	return uid
}
