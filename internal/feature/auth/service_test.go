package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"

	"casa-comfort/internal/core/mailer"
	"casa-comfort/internal/domain"
	"casa-comfort/internal/repo"
	"casa-comfort/pkg/utils"
)

func newTestService(t *testing.T, adminUsernames ...string) (*Service, *repo.UserRepo) {
	t.Helper()
	dsn := "file:" + utils.NewID() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}))

	users := repo.NewUserRepo(db)
	mail := mailer.New(&mailer.LogSender{L: zap.NewNop()}, "http://localhost:8080", zap.NewNop())
	return NewService(users, mail, adminUsernames, zap.NewNop()), users
}

func mustRegister(t *testing.T, s *Service, username, email, password string) *domain.User {
	t.Helper()
	u, err := s.Register(username, email, password)
	require.NoError(t, err)
	return u
}

func mustVerify(t *testing.T, s *Service, u *domain.User) {
	t.Helper()
	require.NotNil(t, u.VerificationToken)
	require.NoError(t, s.VerifyEmail(*u.VerificationToken))
}

func TestRegister(t *testing.T) {
	t.Parallel()
	s, users := newTestService(t)

	u := mustRegister(t, s, "ana", "Ana@Example.com", "secret1")
	assert.NotZero(t, u.ID)
	assert.Equal(t, "ana@example.com", u.Email) // 邮箱入库前归一成小写
	assert.False(t, u.EmailVerified)
	require.NotNil(t, u.VerificationToken)

	// 存的是哈希，不是明文
	assert.NotEqual(t, "secret1", u.Password)
	assert.True(t, utils.CheckPassword("secret1", u.Password))

	got, err := users.FindByUsername("ana")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.EmailVerified)
}

func TestRegister_Duplicates(t *testing.T) {
	t.Parallel()
	s, _ := newTestService(t)
	mustRegister(t, s, "ana", "ana@example.com", "secret1")

	_, err := s.Register("ana", "other@example.com", "secret1")
	assert.ErrorIs(t, err, ErrDuplicateUsername)

	_, err = s.Register("otra", "ana@example.com", "secret1")
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestLogin_UnverifiedBeforePassword(t *testing.T) {
	t.Parallel()
	s, _ := newTestService(t)
	mustRegister(t, s, "ana", "ana@example.com", "secret1")

	// 未验证账号：密码对不对都回"先验证邮箱"，不泄露密码是否正确
	_, _, err := s.Login("ana", "secret1")
	assert.ErrorIs(t, err, ErrEmailNotVerified)
	_, _, err = s.Login("ana", "wrong")
	assert.ErrorIs(t, err, ErrEmailNotVerified)
}

func TestLogin(t *testing.T) {
	t.Parallel()
	s, _ := newTestService(t)
	u := mustRegister(t, s, "ana", "ana@example.com", "secret1")
	mustVerify(t, s, u)

	_, _, err := s.Login("nadie", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = s.Login("ana", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	got, isAdmin, err := s.Login("ana", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.False(t, isAdmin)
}

func TestLogin_AdminAllowList(t *testing.T) {
	t.Parallel()
	s, _ := newTestService(t, "ana")
	u := mustRegister(t, s, "ana", "ana@example.com", "secret1")
	mustVerify(t, s, u)

	_, isAdmin, err := s.Login("ana", "secret1")
	require.NoError(t, err)
	assert.True(t, isAdmin) // is_admin 列是 false，白名单兜底
}

func TestVerifyEmail_TokenIsSingleUse(t *testing.T) {
	t.Parallel()
	s, users := newTestService(t)
	u := mustRegister(t, s, "ana", "ana@example.com", "secret1")
	tok := *u.VerificationToken

	require.NoError(t, s.VerifyEmail(tok))

	got, err := users.FindByUsername("ana")
	require.NoError(t, err)
	assert.True(t, got.EmailVerified)
	assert.Nil(t, got.VerificationToken)

	// 同一个 token 再来一次已经查不到人
	assert.ErrorIs(t, s.VerifyEmail(tok), ErrInvalidOrExpiredToken)
	assert.ErrorIs(t, s.VerifyEmail(""), ErrInvalidOrExpiredToken)
}

func TestPasswordReset_Flow(t *testing.T) {
	t.Parallel()
	s, users := newTestService(t)
	u := mustRegister(t, s, "ana", "ana@example.com", "secret1")
	mustVerify(t, s, u)

	// 不存在的邮箱静默成功
	require.NoError(t, s.RequestPasswordReset("nadie@example.com"))

	require.NoError(t, s.RequestPasswordReset("ana@example.com"))
	got, err := users.FindByEmail("ana@example.com")
	require.NoError(t, err)
	require.NotNil(t, got.ResetPasswordToken)
	tok := *got.ResetPasswordToken

	require.NoError(t, s.CompletePasswordReset(tok, "nuevo123"))

	// 新密码生效，token 一次性
	_, _, err = s.Login("ana", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = s.Login("ana", "nuevo123")
	require.NoError(t, err)
	assert.ErrorIs(t, s.CompletePasswordReset(tok, "otra456"), ErrInvalidOrExpiredToken)
}

func TestPasswordReset_SecondRequestInvalidatesFirst(t *testing.T) {
	t.Parallel()
	s, users := newTestService(t)
	u := mustRegister(t, s, "ana", "ana@example.com", "secret1")
	mustVerify(t, s, u)

	require.NoError(t, s.RequestPasswordReset("ana@example.com"))
	got, err := users.FindByEmail("ana@example.com")
	require.NoError(t, err)
	first := *got.ResetPasswordToken

	require.NoError(t, s.RequestPasswordReset("ana@example.com"))

	// 旧链接随新请求失效
	assert.ErrorIs(t, s.CompletePasswordReset(first, "nuevo123"), ErrInvalidOrExpiredToken)

	got, err = users.FindByEmail("ana@example.com")
	require.NoError(t, err)
	require.NoError(t, s.CompletePasswordReset(*got.ResetPasswordToken, "nuevo123"))
}

func TestPasswordReset_ExpiredTokenRejectedAndCleared(t *testing.T) {
	t.Parallel()
	s, users := newTestService(t)
	u := mustRegister(t, s, "ana", "ana@example.com", "secret1")
	mustVerify(t, s, u)

	require.NoError(t, s.RequestPasswordReset("ana@example.com"))
	got, err := users.FindByEmail("ana@example.com")
	require.NoError(t, err)
	tok := *got.ResetPasswordToken

	// 把过期时间拨到过去
	past := time.Now().Add(-time.Minute)
	got.ResetPasswordExpires = &past
	require.NoError(t, users.Update(got))

	assert.ErrorIs(t, s.CompletePasswordReset(tok, "nuevo123"), ErrInvalidOrExpiredToken)

	// 过期 token 被顺手清掉
	got, err = users.FindByEmail("ana@example.com")
	require.NoError(t, err)
	assert.Nil(t, got.ResetPasswordToken)
	assert.Nil(t, got.ResetPasswordExpires)

	// 密码没被改
	_, _, err = s.Login("ana", "secret1")
	require.NoError(t, err)
}

func TestChangePassword(t *testing.T) {
	t.Parallel()
	s, _ := newTestService(t)
	u := mustRegister(t, s, "ana", "ana@example.com", "secret1")
	mustVerify(t, s, u)

	assert.ErrorIs(t, s.ChangePassword(u.ID, "wrong", "nuevo123"), ErrIncorrectPassword)
	assert.ErrorIs(t, s.ChangePassword(9999, "secret1", "nuevo123"), ErrUserNotFound)

	require.NoError(t, s.ChangePassword(u.ID, "secret1", "nuevo123"))
	_, _, err := s.Login("ana", "nuevo123")
	require.NoError(t, err)
}

func TestCurrentUser(t *testing.T) {
	t.Parallel()
	s, _ := newTestService(t)
	u := mustRegister(t, s, "ana", "ana@example.com", "secret1")

	got, err := s.CurrentUser(u.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana", got.Username)

	_, err = s.CurrentUser(9999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
