package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm/clause"

	"jobPortal/internal/database"
	"jobPortal/internal/workflow"
)

// ErrUsernameTaken is returned by CreateAccount when the username already exists.
var ErrUsernameTaken = errors.New("username already taken")

// Account 是登录相关的账号字段，与候选人资料分开读写。
type Account struct {
	ID                 uint
	Username           string
	PasswordHash       string
	IsAdmin            bool
	MustChangePassword bool
}

func accountFromModel(u database.User) *Account {
	return &Account{
		ID:                 u.ID,
		Username:           u.Username,
		PasswordHash:       u.PasswordHash,
		IsAdmin:            u.IsAdmin,
		MustChangePassword: u.MustChangePassword,
	}
}

// FindAccount looks an account up by username.
func (s *Store) FindAccount(ctx context.Context, username string) (*Account, error) {
	var user database.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return accountFromModel(user), nil
}

// LoadAccount reads an account by id.
func (s *Store) LoadAccount(ctx context.Context, id uint) (*Account, error) {
	var user database.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return accountFromModel(user), nil
}

// CreateAccount inserts an account with an optional initial CGPA.
// 用户名冲突依赖唯一索引判定，并发注册同名账号只有一个成功。
func (s *Store) CreateAccount(ctx context.Context, account *Account, cgpa *float64) error {
	user := database.User{
		Username:           account.Username,
		PasswordHash:       account.PasswordHash,
		IsAdmin:            account.IsAdmin,
		MustChangePassword: account.MustChangePassword,
		CGPA:               cgpa,
	}
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "username"}}, DoNothing: true}).
		Create(&user)
	if result.Error != nil {
		return fmt.Errorf("create account %q: %w", account.Username, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUsernameTaken
	}
	account.ID = user.ID
	return nil
}

// SetPassword replaces the password hash and clears the forced-change flag.
func (s *Store) SetPassword(ctx context.Context, id uint, hash string) error {
	result := s.db.WithContext(ctx).
		Model(&database.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"password_hash":        hash,
			"must_change_password": false,
		})
	if result.Error != nil {
		return fmt.Errorf("set password for %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return workflow.ErrNotFound
	}
	return nil
}
