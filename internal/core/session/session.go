package session

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"casa-comfort/internal/core/token"
)

// Data 是 session 里缓存的身份信息
type Data struct {
	UserID  uint `json:"userId"`
	IsAdmin bool `json:"isAdmin"`
}

// Store 按不透明 id 存取 session，实现可以是内存也可以是 redis。
// Get 未命中返回 (nil, nil)。
type Store interface {
	Get(ctx context.Context, id string) (*Data, error)
	Save(ctx context.Context, id string, d *Data, ttl time.Duration) error
	Destroy(ctx context.Context, id string) error
}

type Manager struct {
	store      Store
	ttl        time.Duration
	cookieName string
	secure     bool
}

func NewManager(store Store, ttl time.Duration, cookieName string, secure bool) *Manager {
	return &Manager{store: store, ttl: ttl, cookieName: cookieName, secure: secure}
}

func (m *Manager) CookieName() string { return m.cookieName }

// Issue 签发新 session 并写 cookie。登录时调用方先 Destroy 旧 id 防固定，
// 这里保证 Save 成功后才写响应头（不能 fire-and-forget）。
func (m *Manager) Issue(ctx context.Context, c *gin.Context, d *Data) (string, error) {
	id := token.New()
	if err := m.store.Save(ctx, id, d, m.ttl); err != nil {
		return "", err
	}
	m.setCookie(c, id, int(m.ttl.Seconds()))
	return id, nil
}

// Current 解析请求里的 session cookie；无 cookie 或未命中时 Data 为 nil
func (m *Manager) Current(ctx context.Context, c *gin.Context) (string, *Data, error) {
	id, err := c.Cookie(m.cookieName)
	if err != nil || id == "" {
		return "", nil, nil
	}
	d, err := m.store.Get(ctx, id)
	if err != nil {
		return id, nil, err
	}
	return id, d, nil
}

// Touch 滑动续期
func (m *Manager) Touch(ctx context.Context, id string, d *Data) {
	_ = m.store.Save(ctx, id, d, m.ttl)
}

// Destroy 销毁指定 id（用于登录时换 id）
func (m *Manager) Destroy(ctx context.Context, id string) error {
	return m.store.Destroy(ctx, id)
}

// Clear 登出：销毁 session 并让 cookie 过期，天然幂等
func (m *Manager) Clear(ctx context.Context, c *gin.Context) error {
	id, _ := c.Cookie(m.cookieName)
	m.setCookie(c, "", -1)
	if id == "" {
		return nil
	}
	return m.store.Destroy(ctx, id)
}

func (m *Manager) setCookie(c *gin.Context, id string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     m.cookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	})
}
