// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model.
//
// Users are keyed by PhoneNumber, which holds the cross-platform contact id
// (a WhatsApp phone number or a Telegram chat id).
package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/vendorbot/internal/domain"
)

// GetUserByContact fetches a user by contact id, or ErrNotFound.
func GetUserByContact(ctx context.Context, db *gorm.DB, contactID string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("phone_number = ?", contactID).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new idle user and returns ErrDuplicate when the
// contact id already exists.
func CreateUser(ctx context.Context, db *gorm.DB, contactID, name string) (*domain.User, error) {
	u := &domain.User{
		PhoneNumber:       contactID,
		Name:              name,
		ConversationState: domain.StateIdle,
	}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return u, nil
}

// EnsureUser returns the user for contactID, creating it with name when
// missing. The name of an existing user is never changed. Concurrent first
// contacts resolve to the same row through the unique index.
func EnsureUser(ctx context.Context, db *gorm.DB, contactID, name string) (u *domain.User, created bool, err error) {
	u, err = GetUserByContact(ctx, db, contactID)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	u, err = CreateUser(ctx, db, contactID, name)
	if errors.Is(err, ErrDuplicate) {
		u, err = GetUserByContact(ctx, db, contactID)
		return u, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}

// ListUsersNameLike returns users whose name contains fragment ignoring
// case, ordered by folded name then id.
func ListUsersNameLike(ctx context.Context, db *gorm.DB, fragment string) ([]domain.User, error) {
	var out []domain.User
	err := db.WithContext(ctx).
		Where(`name_key LIKE ? ESCAPE '\'`, likeContains(fragment)).
		Order("name_key ASC, id ASC").
		Find(&out).Error
	return out, err
}

// SetUserState updates the conversation state of a user.
func SetUserState(ctx context.Context, db *gorm.DB, userID uint, state string) error {
	res := db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", userID).Update("conversation_state", state)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// likeContains builds a "%key%" pattern over the folded fragment with LIKE
// metacharacters escaped by backslash. It is matched against name_key.
func likeContains(fragment string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(domain.NameKey(fragment)) + "%"
}
