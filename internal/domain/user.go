package domain

import "time"

type User struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	Username             string     `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Email                string     `gorm:"uniqueIndex;size:191;not null" json:"email"`
	Password             string     `gorm:"size:100;not null" json:"-"` // bcrypt hash
	IsAdmin              bool       `gorm:"not null;default:false" json:"isAdmin"`
	EmailVerified        bool       `gorm:"not null;default:false" json:"emailVerified"`
	VerificationToken    *string    `gorm:"size:64;index" json:"-"` // 验证后清空
	ResetPasswordToken   *string    `gorm:"size:64;index" json:"-"`
	ResetPasswordExpires *time.Time `json:"-"`
	CreatedAt            time.Time  `json:"createdAt"`
}

func (User) TableName() string { return "users" }

type UserRepository interface {
	Create(u *User) error
	FindByID(id uint) (*User, error)
	FindByUsername(username string) (*User, error)
	FindByEmail(email string) (*User, error)
	FindByVerificationToken(token string) (*User, error)
	FindByResetToken(token string) (*User, error)
	Update(u *User) error
	List(offset, limit int) ([]User, int64, error)
}
