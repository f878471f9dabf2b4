package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	resp "casa-comfort/internal/transport/http/response"
)

// Recovery 捕获 panic，统一 500，细节只进日志不外漏
func Recovery(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				l.Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("path", c.Request.URL.Path),
					zap.String("rid", c.GetString(KeyRequestID)),
				)
				resp.AbortErr(c, http.StatusInternalServerError, "Internal Server Error")
			}
		}()
		c.Next()
	}
}
