package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"smart-factory-backend/internal/model"
)

// CreateUser inserts a new account. The unique index on email is the
// authoritative guard against signup races; a losing insert surfaces as
// ErrConflict.
func (s *gormStore) CreateUser(ctx context.Context, u *model.User) error {
	if u.Email == "" || u.PasswordHash == "" {
		return fmt.Errorf("email and password are required: %w", ErrValidation)
	}
	if u.Role == "" {
		u.Role = model.RoleOperator
	}
	if !model.ValidRole(u.Role) {
		return fmt.Errorf("invalid role %q: %w", u.Role, ErrValidation)
	}

	err := s.db.WithContext(ctx).Create(u).Error
	if isUniqueViolation(err) {
		return fmt.Errorf("email %q: %w", u.Email, ErrConflict)
	}
	return err
}

func (s *gormStore) GetUser(ctx context.Context, id int64) (model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
		}
		return model.User{}, err
	}
	return u, nil
}

func (s *gormStore) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.User{}, fmt.Errorf("user %q: %w", email, ErrNotFound)
		}
		return model.User{}, err
	}
	return u, nil
}
