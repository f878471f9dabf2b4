package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	coreauth "casa-comfort/internal/core/auth"
	"casa-comfort/internal/core/session"
	mdw "casa-comfort/internal/transport/http/middleware"
)

// NewAPIEngine 组装店面 API：中间件链 + 健康检查 + /metrics + 各业务模块
func NewAPIEngine(l *zap.Logger, sm *session.Manager, jwter *coreauth.JWTer) *gin.Engine {
	r := gin.New()

	r.Use(
		mdw.RequestID(),
		cors.Default(),
		mdw.RateLimit(200, 400),      // 全局上限
		mdw.RateLimitPerIP(20, 40),   // 单客户端公平性
		mdw.ConcurrencyLimit(300),
		mdw.MaxBodyBytes(1<<20), // 纯 JSON API，1MB 足够
		mdw.Timeout(10*time.Second),
		mdw.Recovery(l),
		ginzap.RecoveryWithZap(l, true),
		mdw.Metrics(),
		mdw.AccessLog(l),
	)

	// 健康检查和指标不走 /api 前缀
	r.GET("/api/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	// 身份解析对整个 /api 生效；是否必须登录由各 Action 声明
	api.Use(mdw.Identify(sm, jwter))

	MountAllAPI(api)

	return r
}
