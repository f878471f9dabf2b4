package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"casa-comfort/internal/domain"
)

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) Create(u *domain.User) error { return r.db.Create(u).Error }

func (r *UserRepo) FindByID(id uint) (*domain.User, error) {
	return r.findOne("id = ?", id)
}

func (r *UserRepo) FindByUsername(username string) (*domain.User, error) {
	return r.findOne("username = ?", username)
}

func (r *UserRepo) FindByEmail(email string) (*domain.User, error) {
	return r.findOne("email = ?", strings.ToLower(email))
}

func (r *UserRepo) FindByVerificationToken(token string) (*domain.User, error) {
	return r.findOne("verification_token = ?", token)
}

func (r *UserRepo) FindByResetToken(token string) (*domain.User, error) {
	return r.findOne("reset_password_token = ?", token)
}

func (r *UserRepo) findOne(query string, arg any) (*domain.User, error) {
	var u domain.User
	err := r.db.First(&u, query, arg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &u, err
}

// Update 整行保存（包括置空 token 字段）
func (r *UserRepo) Update(u *domain.User) error {
	return r.db.Model(u).Select("*").Omit("created_at").Updates(u).Error
}

func (r *UserRepo) List(offset, limit int) ([]domain.User, int64, error) {
	var users []domain.User
	tx := r.db.Model(&domain.User{})
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := tx.Offset(offset).Limit(limit).Order("created_at desc").Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// IsDupKey 不依赖 gorm.ErrDuplicatedKey，避免驱动差异
func IsDupKey(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation") ||
		strings.Contains(msg, "duplicate key")
}
