package domain

import (
	"context"
	"time"
)

// User refresh token 只保留一个（单会话），登录会覆盖
type User struct {
	ID           string    `gorm:"primaryKey;size:24" json:"id"`
	Username     string    `gorm:"size:64;not null" json:"username"`
	Email        string    `gorm:"uniqueIndex;size:191;not null" json:"email"`
	PasswordHash string    `gorm:"size:100;not null" json:"-"`
	RefreshToken *string   `gorm:"type:text" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (User) TableName() string { return "users" }

// UserRepository 查不到返回 (nil, nil)；email 冲突返回 ErrDuplicate
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	// SetRefreshToken 无条件覆盖；token 为 nil 表示注销
	SetRefreshToken(ctx context.Context, id string, token *string) error
	// SwapRefreshToken 仅当当前值等于 expected 时替换
	SwapRefreshToken(ctx context.Context, id, expected, next string) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}
