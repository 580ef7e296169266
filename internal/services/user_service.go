package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/vendorbot/internal/domain"
	"github.com/tbourn/vendorbot/internal/repo"
)

// UserService is the user directory: lazy bootstrap on first contact,
// conversation state, and owner lookups by name.
type UserService struct {
	DB *gorm.DB
}

// NewUserService constructs a UserService over db.
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

// Ensure returns the user for contactID, creating it with displayName on
// first contact. Existing names are never overwritten.
func (s *UserService) Ensure(ctx context.Context, contactID, displayName string) (*domain.User, error) {
	u, _, err := repo.EnsureUser(ctx, s.DB, contactID, displayName)
	return u, err
}

// SetState updates the conversation state of a user.
func (s *UserService) SetState(ctx context.Context, userID uint, state string) error {
	return repo.SetUserState(ctx, s.DB, userID, state)
}

// FindByNameFragment returns the user best matching fragment: an exact
// case-insensitive name wins, otherwise the smallest matching name.
func (s *UserService) FindByNameFragment(ctx context.Context, fragment string) (*domain.User, error) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return nil, ErrEmptyName
	}
	cands, err := repo.ListUsersNameLike(ctx, s.DB, fragment)
	if err != nil {
		return nil, err
	}
	u, ok := pickByFragment(cands, fragment,
		func(u domain.User) string { return u.Name },
		func(u domain.User) uint { return u.ID })
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}
