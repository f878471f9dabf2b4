package router

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	coreauth "casa-comfort/internal/core/auth"
	"casa-comfort/internal/core/session"
	"casa-comfort/internal/domain"
	"casa-comfort/internal/feature/auth"
	httpez "casa-comfort/internal/transport/http/ez"
)

type AuthModule struct {
	svc   *auth.Service
	sm    *session.Manager
	jwter *coreauth.JWTer
	db    *gorm.DB
}

func NewAuthModule(svc *auth.Service, sm *session.Manager, jwter *coreauth.JWTer, db *gorm.DB) *AuthModule {
	return &AuthModule{svc: svc, sm: sm, jwter: jwter, db: db}
}

type sanitizedUser struct {
	ID            uint   `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
	IsAdmin       bool   `json:"isAdmin"`
}

func sanitize(u *domain.User) sanitizedUser {
	return sanitizedUser{
		ID: u.ID, Username: u.Username, Email: u.Email,
		EmailVerified: u.EmailVerified, IsAdmin: u.IsAdmin,
	}
}

func (m *AuthModule) MountAPI(api *gin.RouterGroup) {
	ez := httpez.New(api, m.db)

	// --- POST /api/register ---
	type registerIn struct {
		Username string `json:"username" binding:"required,min=3"`
		Email    string `json:"email"    binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
	}
	type registerOut struct {
		Message string        `json:"message"`
		User    sanitizedUser `json:"user"`
	}
	httpez.RegisterAction[registerIn, registerOut](ez, httpez.Action[registerIn, registerOut]{
		Method: http.MethodPost,
		Path:   "/register",
		Binder: httpez.BindJSON,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, _ *gorm.DB, in *registerIn) (registerOut, error) {
			u, err := m.svc.Register(in.Username, in.Email, in.Password)
			switch {
			case errors.Is(err, auth.ErrDuplicateUsername):
				return registerOut{}, httpez.BadRequest("Username already taken")
			case errors.Is(err, auth.ErrDuplicateEmail):
				return registerOut{}, httpez.BadRequest("Email already registered")
			case err != nil:
				return registerOut{}, httpez.Internal("Registration failed", err)
			}
			return registerOut{
				Message: "Registration successful. Please check your email to verify your account.",
				User:    sanitize(u),
			}, nil
		},
	})

	// --- POST /api/login ---
	type loginIn struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	type loginOut struct {
		User    sanitizedUser `json:"user"`
		IsAdmin bool          `json:"isAdmin"`
		Token   string        `json:"token"`
	}
	httpez.RegisterAction[loginIn, loginOut](ez, httpez.Action[loginIn, loginOut]{
		Method: http.MethodPost,
		Path:   "/login",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, _ *gorm.DB, in *loginIn) (loginOut, error) {
			u, isAdmin, err := m.svc.Login(in.Username, in.Password)
			switch {
			case errors.Is(err, auth.ErrInvalidCredentials):
				return loginOut{}, httpez.Unauthorized("Invalid credentials")
			case errors.Is(err, auth.ErrEmailNotVerified):
				return loginOut{}, httpez.Unauthorized("Please verify your email first")
			case err != nil:
				return loginOut{}, httpez.Internal("Login failed", err)
			}

			ctx := c.Request.Context()
			// 换 session id 防固定：先销毁旧的，再签发并落库，落库成功才响应
			if oldID, _, _ := m.sm.Current(ctx, c); oldID != "" {
				_ = m.sm.Destroy(ctx, oldID)
			}
			if _, err := m.sm.Issue(ctx, c, &session.Data{UserID: u.ID, IsAdmin: isAdmin}); err != nil {
				return loginOut{}, httpez.Internal("Login failed", err)
			}

			// 无状态变体：7 天 Bearer token
			tok, err := m.jwter.Issue(u.ID, u.Username, isAdmin)
			if err != nil {
				return loginOut{}, httpez.Internal("Login failed", err)
			}

			out := loginOut{User: sanitize(u), IsAdmin: isAdmin, Token: tok}
			out.User.IsAdmin = isAdmin
			return out, nil
		},
	})

	// --- POST /api/logout（幂等，未登录也返回成功） ---
	type msgOut struct {
		Message string `json:"message"`
	}
	httpez.RegisterAction[struct{}, msgOut](ez, httpez.Action[struct{}, msgOut]{
		Method: http.MethodPost,
		Path:   "/logout",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (msgOut, error) {
			if err := m.sm.Clear(c.Request.Context(), c); err != nil {
				return msgOut{}, httpez.Internal("Logout failed", err)
			}
			return msgOut{Message: "Logged out successfully"}, nil
		},
	})

	// --- GET /api/verify-email?token= ---
	type verifyIn struct {
		Token string `form:"token"`
	}
	httpez.RegisterAction[verifyIn, msgOut](ez, httpez.Action[verifyIn, msgOut]{
		Method: http.MethodGet,
		Path:   "/verify-email",
		Binder: httpez.BindQuery,
		Handler: func(c *gin.Context, _ *gorm.DB, in *verifyIn) (msgOut, error) {
			if in.Token == "" {
				return msgOut{}, httpez.BadRequest("Invalid token")
			}
			if err := m.svc.VerifyEmail(in.Token); err != nil {
				if errors.Is(err, auth.ErrInvalidOrExpiredToken) {
					return msgOut{}, httpez.BadRequest("Invalid or expired token")
				}
				return msgOut{}, httpez.Internal("Email verification failed", err)
			}
			return msgOut{Message: "Email verified successfully"}, nil
		},
	})

	// --- POST /api/forgot-password ---
	// 邮箱存不存在都回同一句话，不给探号的机会
	type forgotIn struct {
		Email string `json:"email" binding:"required,email"`
	}
	httpez.RegisterAction[forgotIn, msgOut](ez, httpez.Action[forgotIn, msgOut]{
		Method: http.MethodPost,
		Path:   "/forgot-password",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, _ *gorm.DB, in *forgotIn) (msgOut, error) {
			if err := m.svc.RequestPasswordReset(in.Email); err != nil {
				return msgOut{}, httpez.Internal("Failed to process request", err)
			}
			return msgOut{Message: "Password reset email sent"}, nil
		},
	})

	// --- POST /api/reset-password ---
	type resetIn struct {
		Token    string `json:"token"    binding:"required"`
		Password string `json:"password" binding:"required,min=6"`
	}
	httpez.RegisterAction[resetIn, msgOut](ez, httpez.Action[resetIn, msgOut]{
		Method: http.MethodPost,
		Path:   "/reset-password",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, _ *gorm.DB, in *resetIn) (msgOut, error) {
			if err := m.svc.CompletePasswordReset(in.Token, in.Password); err != nil {
				if errors.Is(err, auth.ErrInvalidOrExpiredToken) {
					return msgOut{}, httpez.BadRequest("Invalid or expired token")
				}
				return msgOut{}, httpez.Internal("Password reset failed", err)
			}
			return msgOut{Message: "Password reset successfully"}, nil
		},
	})

	// --- POST /api/users/change-password（需登录） ---
	type changeIn struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		NewPassword     string `json:"newPassword"     binding:"required,min=6"`
	}
	httpez.RegisterAction[changeIn, msgOut](ez, httpez.Action[changeIn, msgOut]{
		Method: http.MethodPost,
		Path:   "/users/change-password",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, _ *gorm.DB, in *changeIn) (msgOut, error) {
			uid := c.GetUint(httpez.CtxUserID)
			if err := m.svc.ChangePassword(uid, in.CurrentPassword, in.NewPassword); err != nil {
				switch {
				case errors.Is(err, auth.ErrIncorrectPassword):
					return msgOut{}, httpez.BadRequest("Current password is incorrect")
				case errors.Is(err, auth.ErrUserNotFound):
					return msgOut{}, httpez.Unauthorized("Not authenticated")
				default:
					return msgOut{}, httpez.Internal("Failed to change password", err)
				}
			}
			return msgOut{Message: "Password changed successfully"}, nil
		},
	})

	// --- GET /api/me：未登录回 200 null，登录回脱敏用户 ---
	httpez.RegisterAction[struct{}, any](ez, httpez.Action[struct{}, any]{
		Method: http.MethodGet,
		Path:   "/me",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (any, error) {
			if _, ok := c.Get(httpez.CtxUserID); !ok {
				return nil, nil
			}
			u, err := m.svc.CurrentUser(c.GetUint(httpez.CtxUserID))
			if err != nil {
				if errors.Is(err, auth.ErrUserNotFound) {
					// session 指向的用户没了，当成未登录
					return nil, nil
				}
				return nil, httpez.Internal("Failed to get user data", err)
			}
			out := sanitize(u)
			out.IsAdmin = m.svc.IsAdmin(u)
			return out, nil
		},
	})
}
