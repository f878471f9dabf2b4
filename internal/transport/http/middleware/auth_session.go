package middleware

import (
	"github.com/gin-gonic/gin"

	coreauth "casa-comfort/internal/core/auth"
	"casa-comfort/internal/core/session"
	"casa-comfort/internal/transport/http/ez"
)

// Identify 解析请求身份：先看 session cookie，拿不到再试 Bearer token
// （无状态变体）。解析到就写入 userId/isAdmin，解析不到放行——
// 是否必须登录由各 Action 自己声明。
func Identify(sm *session.Manager, jwter *coreauth.JWTer) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, data, err := sm.Current(c.Request.Context(), c)
		if err == nil && data != nil {
			c.Set(ez.CtxUserID, data.UserID)
			c.Set(ez.CtxIsAdmin, data.IsAdmin)
			sm.Touch(c.Request.Context(), id, data) // 滑动续期
			c.Next()
			return
		}

		if tok := bearerToken(c); tok != "" {
			if claims, err := jwter.Parse(tok); err == nil {
				c.Set(ez.CtxUserID, claims.UserID)
				c.Set(ez.CtxIsAdmin, claims.IsAdmin)
			}
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	const prefix = "Bearer "
	ah := c.GetHeader("Authorization")
	if len(ah) > len(prefix) && ah[:len(prefix)] == prefix {
		return ah[len(prefix):]
	}
	// 无状态变体也可能把 token 放在 cookie 里
	if tok, err := c.Cookie("token"); err == nil {
		return tok
	}
	return ""
}
