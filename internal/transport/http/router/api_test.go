package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"

	coreauth "casa-comfort/internal/core/auth"
	"casa-comfort/internal/core/mailer"
	"casa-comfort/internal/core/session"
	"casa-comfort/internal/domain"
	"casa-comfort/internal/feature/auth"
	"casa-comfort/internal/feature/product"
	"casa-comfort/internal/repo"
	mdw "casa-comfort/internal/transport/http/middleware"
	"casa-comfort/pkg/utils"
)

type testEnv struct {
	r     *gin.Engine
	db    *gorm.DB
	users *repo.UserRepo
}

// newTestEnv 直接手工挂模块，不走全局注册表（测试之间不串）
func newTestEnv(t *testing.T, adminUsernames ...string) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := "file:" + utils.NewID() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Product{}))

	store := session.NewMemoryStore(0)
	t.Cleanup(store.Close)
	sm := session.NewManager(store, time.Hour, "sid", false)
	jwter := &coreauth.JWTer{Secret: []byte("test-secret"), Issuer: "test", TTL: 7 * 24 * time.Hour}

	users := repo.NewUserRepo(db)
	mail := mailer.New(&mailer.LogSender{L: zap.NewNop()}, "http://localhost:8080", zap.NewNop())
	authSvc := auth.NewService(users, mail, adminUsernames, zap.NewNop())
	prodSvc := product.NewService(repo.NewProductRepo(db), nil, 0, zap.NewNop())

	r := gin.New()
	api := r.Group("/api")
	api.Use(mdw.Identify(sm, jwter))
	NewAuthModule(authSvc, sm, jwter, db).MountAPI(api)
	NewProductModule(prodSvc, db).MountAPI(api)

	return &testEnv{r: r, db: db, users: users}
}

type reqOpt func(*http.Request)

func withCookies(cookies []*http.Cookie) reqOpt {
	return func(r *http.Request) {
		for _, ck := range cookies {
			r.AddCookie(ck)
		}
	}
}

func withBearer(tok string) reqOpt {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) }
}

func (e *testEnv) do(t *testing.T, method, path string, body any, opts ...reqOpt) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for _, opt := range opts {
		opt(req)
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func (e *testEnv) register(t *testing.T, username, email, password string) {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/register", gin.H{
		"username": username, "email": email, "password": password,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func (e *testEnv) verify(t *testing.T, username string) {
	t.Helper()
	u, err := e.users.FindByUsername(username)
	require.NoError(t, err)
	require.NotNil(t, u)
	require.NotNil(t, u.VerificationToken)
	w := e.do(t, http.MethodGet, "/api/verify-email?token="+*u.VerificationToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

// login 回 session cookie 和 bearer token 两种凭证
func (e *testEnv) login(t *testing.T, username, password string) ([]*http.Cookie, string) {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/login", gin.H{"username": username, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode[map[string]any](t, w)
	tok, _ := out["token"].(string)
	require.NotEmpty(t, tok)
	return w.Result().Cookies(), tok
}

func TestRegisterVerifyLoginFlow(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)

	e.register(t, "ana", "ana@example.com", "secret1")

	// 重复注册
	w := e.do(t, http.MethodPost, "/api/register", gin.H{
		"username": "ana", "email": "otra@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Username already taken", decode[map[string]string](t, w)["error"])

	// 未验证邮箱登录被挡
	w = e.do(t, http.MethodPost, "/api/login", gin.H{"username": "ana", "password": "secret1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Please verify your email first", decode[map[string]string](t, w)["error"])

	e.verify(t, "ana")
	cookies, _ := e.login(t, "ana", "secret1")

	// session cookie 能拿到当前用户
	w = e.do(t, http.MethodGet, "/api/me", nil, withCookies(cookies))
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[map[string]any](t, w)
	assert.Equal(t, "ana", me["username"])
	assert.Equal(t, true, me["emailVerified"])
	_, hasPassword := me["password"]
	assert.False(t, hasPassword)
}

func TestMeWithoutSessionIsNull(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	w := e.do(t, http.MethodGet, "/api/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "null", w.Body.String())
}

func TestBearerTokenFallback(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	e.register(t, "ana", "ana@example.com", "secret1")
	e.verify(t, "ana")
	_, tok := e.login(t, "ana", "secret1")

	// 不带 cookie，只带 Bearer
	w := e.do(t, http.MethodGet, "/api/me", nil, withBearer(tok))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ana", decode[map[string]any](t, w)["username"])

	w = e.do(t, http.MethodGet, "/api/me", nil, withBearer("garbage"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "null", w.Body.String())
}

func TestLogoutIsIdempotent(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	e.register(t, "ana", "ana@example.com", "secret1")
	e.verify(t, "ana")
	cookies, _ := e.login(t, "ana", "secret1")

	w := e.do(t, http.MethodPost, "/api/logout", nil, withCookies(cookies))
	assert.Equal(t, http.StatusOK, w.Code)

	// session 已销毁
	w = e.do(t, http.MethodGet, "/api/me", nil, withCookies(cookies))
	assert.Equal(t, "null", w.Body.String())

	// 没登录也能登出
	w = e.do(t, http.MethodPost, "/api/logout", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestForgotPasswordAlwaysGeneric(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	e.register(t, "ana", "ana@example.com", "secret1")

	for _, email := range []string{"ana@example.com", "nadie@example.com"} {
		w := e.do(t, http.MethodPost, "/api/forgot-password", gin.H{"email": email})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Password reset email sent", decode[map[string]string](t, w)["message"])
	}
}

func validProduct() gin.H {
	return gin.H{
		"name":        "Cozy Knit Blanket",
		"description": "Soft, warm knit blanket perfect for chilly evenings.",
		"price":       4999,
		"image":       "https://images.example.com/blanket.jpg",
		"category":    "Bedding",
	}
}

func TestProductWriteRequiresAdmin(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	e.register(t, "ana", "ana@example.com", "secret1")
	e.verify(t, "ana")
	cookies, _ := e.login(t, "ana", "secret1")

	// 未登录 401
	w := e.do(t, http.MethodPost, "/api/products", validProduct())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Not authenticated", decode[map[string]string](t, w)["error"])

	// 普通用户 403
	w = e.do(t, http.MethodPost, "/api/products", validProduct(), withCookies(cookies))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Solo los administradores pueden realizar esta acción",
		decode[map[string]string](t, w)["error"])

	var count int64
	require.NoError(t, e.db.Model(&domain.Product{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestProductCRUDAsAdmin(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, "ana") // 白名单管理员
	e.register(t, "ana", "ana@example.com", "secret1")
	e.verify(t, "ana")
	cookies, _ := e.login(t, "ana", "secret1")

	// 创建
	w := e.do(t, http.MethodPost, "/api/products", validProduct(), withCookies(cookies))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[domain.Product](t, w)
	require.NotZero(t, created.ID)

	// 校验失败回西语文案
	bad := validProduct()
	bad["price"] = 0
	w = e.do(t, http.MethodPost, "/api/products", bad, withCookies(cookies))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "El precio debe ser mayor a 0", decode[map[string]string](t, w)["error"])

	// 公开列表
	w = e.do(t, http.MethodGet, "/api/products", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.Product](t, w), 1)

	// 更新
	upd := validProduct()
	upd["name"] = "Chunky Knit Blanket"
	w = e.do(t, http.MethodPut, "/api/products/1", upd, withCookies(cookies))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Chunky Knit Blanket", decode[domain.Product](t, w).Name)

	// 删除 204 无 body
	w = e.do(t, http.MethodDelete, "/api/products/1", nil, withCookies(cookies))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	w = e.do(t, http.MethodGet, "/api/products/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Producto no encontrado", decode[map[string]string](t, w)["error"])

	w = e.do(t, http.MethodDelete, "/api/products/abc", nil, withCookies(cookies))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ID inválido", decode[map[string]string](t, w)["error"])
}

func TestEmptyCatalogListsAsEmptyArray(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	w := e.do(t, http.MethodGet, "/api/products", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())

	w = e.do(t, http.MethodGet, "/api/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
}
