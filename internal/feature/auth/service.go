package auth

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"casa-comfort/internal/core/mailer"
	"casa-comfort/internal/core/token"
	"casa-comfort/internal/domain"
	"casa-comfort/internal/repo"
	"casa-comfort/pkg/utils"
)

// 业务错误，handler 层映射成 HTTP 状态码
var (
	ErrDuplicateUsername     = errors.New("username already taken")
	ErrDuplicateEmail        = errors.New("email already registered")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrEmailNotVerified      = errors.New("please verify your email first")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrIncorrectPassword     = errors.New("current password is incorrect")
	ErrUserNotFound          = errors.New("user not found")
)

const resetTokenTTL = time.Hour

type Service struct {
	users      domain.UserRepository
	mail       *mailer.Mailer
	log        *zap.Logger
	adminAllow map[string]struct{} // 配置驱动的管理员白名单
}

func NewService(users domain.UserRepository, mail *mailer.Mailer, adminUsernames []string, log *zap.Logger) *Service {
	allow := make(map[string]struct{}, len(adminUsernames))
	for _, name := range adminUsernames {
		allow[name] = struct{}{}
	}
	return &Service{users: users, mail: mail, log: log, adminAllow: allow}
}

// Register 建号：未验证状态 + 新验证 token。重复判定以唯一约束为准，
// 预查询只是提前给出友好错误（两个并发注册仍可能同时过预查询）。
func (s *Service) Register(username, email, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if u, err := s.users.FindByUsername(username); err != nil {
		return nil, err
	} else if u != nil {
		return nil, ErrDuplicateUsername
	}
	if u, err := s.users.FindByEmail(email); err != nil {
		return nil, err
	} else if u != nil {
		return nil, ErrDuplicateEmail
	}

	verify := token.New()
	u := &domain.User{
		Username:          username,
		Email:             email,
		Password:          utils.HashPassword(password),
		VerificationToken: &verify,
	}
	if err := s.users.Create(u); err != nil {
		if repo.IsDupKey(err) {
			if strings.Contains(strings.ToLower(err.Error()), "username") {
				return nil, ErrDuplicateUsername
			}
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}

	// 邮件异步发，失败只记日志，注册结果不回滚
	s.mail.SendVerificationEmail(email, verify)
	s.log.Info("user registered", zap.String("username", username))
	return u, nil
}

// Login 校验凭证。邮箱未验证先于密码判定（未验证账号给不出会话，
// 密码对不对都一样）。返回的 isAdmin 合并了白名单。
func (s *Service) Login(username, password string) (*domain.User, bool, error) {
	u, err := s.users.FindByUsername(strings.TrimSpace(username))
	if err != nil {
		return nil, false, err
	}
	if u == nil {
		return nil, false, ErrInvalidCredentials
	}
	if !u.EmailVerified {
		return nil, false, ErrEmailNotVerified
	}
	if !utils.CheckPassword(password, u.Password) {
		return nil, false, ErrInvalidCredentials
	}
	return u, s.IsAdmin(u), nil
}

func (s *Service) IsAdmin(u *domain.User) bool {
	if u.IsAdmin {
		return true
	}
	_, ok := s.adminAllow[u.Username]
	return ok
}

// VerifyEmail 消费一次性验证 token；已消费的 token 再来一次会查不到
func (s *Service) VerifyEmail(tok string) error {
	if tok == "" {
		return ErrInvalidOrExpiredToken
	}
	u, err := s.users.FindByVerificationToken(tok)
	if err != nil {
		return err
	}
	if u == nil {
		return ErrInvalidOrExpiredToken
	}
	u.EmailVerified = true
	u.VerificationToken = nil
	return s.users.Update(u)
}

// RequestPasswordReset 邮箱存在才发信，但对外永远不区分。
// 重复请求会覆盖旧 token，旧链接随之失效。
func (s *Service) RequestPasswordReset(email string) error {
	u, err := s.users.FindByEmail(email)
	if err != nil {
		return err
	}
	if u == nil {
		return nil // 不泄露账号是否存在
	}
	reset := token.New()
	expires := time.Now().Add(resetTokenTTL)
	u.ResetPasswordToken = &reset
	u.ResetPasswordExpires = &expires
	if err := s.users.Update(u); err != nil {
		return err
	}
	s.mail.SendPasswordResetEmail(u.Email, reset)
	return nil
}

// CompletePasswordReset 过期必须拒绝；过期的 token 顺手清掉，逼用户重新申请
func (s *Service) CompletePasswordReset(tok, newPassword string) error {
	if tok == "" {
		return ErrInvalidOrExpiredToken
	}
	u, err := s.users.FindByResetToken(tok)
	if err != nil {
		return err
	}
	if u == nil {
		return ErrInvalidOrExpiredToken
	}
	if u.ResetPasswordExpires == nil || time.Now().After(*u.ResetPasswordExpires) {
		u.ResetPasswordToken = nil
		u.ResetPasswordExpires = nil
		if err := s.users.Update(u); err != nil {
			s.log.Warn("clear expired reset token", zap.Error(err))
		}
		return ErrInvalidOrExpiredToken
	}
	u.Password = utils.HashPassword(newPassword)
	u.ResetPasswordToken = nil
	u.ResetPasswordExpires = nil
	return s.users.Update(u)
}

func (s *Service) ChangePassword(userID uint, currentPassword, newPassword string) error {
	u, err := s.users.FindByID(userID)
	if err != nil {
		return err
	}
	if u == nil {
		return ErrUserNotFound
	}
	if !utils.CheckPassword(currentPassword, u.Password) {
		return ErrIncorrectPassword
	}
	u.Password = utils.HashPassword(newPassword)
	return s.users.Update(u)
}

func (s *Service) CurrentUser(userID uint) (*domain.User, error) {
	u, err := s.users.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}
