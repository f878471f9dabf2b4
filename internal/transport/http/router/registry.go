package router

import (
	"sync"

	"github.com/gin-gonic/gin"
)

// APIModule 每个业务模块把自己的路由挂到 /api 下
type APIModule interface{ MountAPI(*gin.RouterGroup) }

var (
	mu      sync.RWMutex
	apiMods []APIModule
)

// Register 统一注册入口，main 里按依赖组装好再注册
func Register(mod APIModule) {
	mu.Lock()
	defer mu.Unlock()
	apiMods = append(apiMods, mod)
}

// MountAllAPI 在 /api 上挂载所有已注册模块
func MountAllAPI(api *gin.RouterGroup) {
	mu.RLock()
	mods := append([]APIModule(nil), apiMods...)
	mu.RUnlock()
	for _, m := range mods {
		m.MountAPI(api)
	}
}
