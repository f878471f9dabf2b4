package ez

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	resp "casa-comfort/internal/transport/http/response"
)

// 中间件写入 / 这里读取的上下文键
const (
	CtxUserID  = "userId"
	CtxIsAdmin = "isAdmin"
)

type EZ struct {
	g  *gin.RouterGroup
	db *gorm.DB
}

func New(g *gin.RouterGroup, db *gorm.DB) EZ { return EZ{g: g, db: db} }

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"
	BindQuery Binder = "query"
	BindNone  Binder = "none"
)

// AErr 统一错误对象：Code 就是 HTTP 状态码
type AErr struct {
	Code int
	Msg  string
	Err  error
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "action error"
}

func (e *AErr) Unwrap() error { return e.Err }

func BadRequest(msg string) error   { return &AErr{Code: http.StatusBadRequest, Msg: msg} }
func Unauthorized(msg string) error { return &AErr{Code: http.StatusUnauthorized, Msg: msg} }
func Forbidden(msg string) error    { return &AErr{Code: http.StatusForbidden, Msg: msg} }
func NotFound(msg string) error     { return &AErr{Code: http.StatusNotFound, Msg: msg} }
func Conflict(msg string) error     { return &AErr{Code: http.StatusConflict, Msg: msg} }
func Internal(msg string, err error) error {
	return &AErr{Code: http.StatusInternalServerError, Msg: msg, Err: err}
}

// Action 非 CRUD 一行注册：I 入参，O 出参
type Action[I any, O any] struct {
	Method string // "GET" | "POST" | "PUT" | "DELETE"
	Path   string
	Binder Binder
	Auth   bool // 要求已登录（session 中间件写入 userId）
	Admin  bool // 要求管理员
	UseTx  bool // 包 gorm 事务
	Status int  // 成功状态码，默认 200；204 不写 body
	Handler func(c *gin.Context, tx *gorm.DB, in *I) (O, error)
}

func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	h := func(c *gin.Context) {
		// 1) 鉴权
		if a.Auth || a.Admin {
			if _, ok := c.Get(CtxUserID); !ok {
				resp.Err(c, http.StatusUnauthorized, "Not authenticated")
				return
			}
			if a.Admin && !c.GetBool(CtxIsAdmin) {
				resp.Err(c, http.StatusForbidden, "Solo los administradores pueden realizar esta acción")
				return
			}
		}

		// 2) 绑定入参
		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		}
		if bindErr != nil {
			resp.Err(c, http.StatusBadRequest, bindErr.Error())
			return
		}

		// 3) 执行（可选事务）
		var out O
		var err error
		if a.UseTx {
			err = e.db.WithContext(c).Transaction(func(tx *gorm.DB) error {
				o, e2 := a.Handler(c, tx, &in)
				out = o
				return e2
			})
		} else {
			out, err = a.Handler(c, e.db.WithContext(c), &in)
		}

		// 4) 统一错误映射
		if err != nil {
			var ae *AErr
			if errors.As(err, &ae) {
				if ae.Err != nil {
					_ = c.Error(ae.Err) // 底层错误进 gin 错误栈，访问日志里能看到
				}
				resp.Err(c, ae.Code, ae.Msg)
				return
			}
			_ = c.Error(err)
			resp.Err(c, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		status := a.Status
		if status == 0 {
			status = http.StatusOK
		}
		if status == http.StatusNoContent {
			c.Status(status)
			return
		}
		c.JSON(status, out)
	}

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, h)
	case http.MethodPut:
		e.g.PUT(a.Path, h)
	case http.MethodDelete:
		e.g.DELETE(a.Path, h)
	default:
		e.g.POST(a.Path, h)
	}
}
