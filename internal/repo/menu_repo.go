// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for MenuItem.
//
// Name comparisons go through the folded name_key column; listings are
// ordered by name_key then id so output is stable across runs.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/vendorbot/internal/domain"
)

// ListAvailableMenuItems returns items flagged available.
func ListAvailableMenuItems(ctx context.Context, db *gorm.DB) ([]domain.MenuItem, error) {
	var out []domain.MenuItem
	err := db.WithContext(ctx).
		Where("is_available = ?", true).
		Order("name_key ASC, id ASC").
		Find(&out).Error
	return out, err
}

// GetMenuItemByName fetches an item whose name equals name ignoring case, or
// ErrNotFound.
func GetMenuItemByName(ctx context.Context, db *gorm.DB, name string) (*domain.MenuItem, error) {
	var it domain.MenuItem
	err := db.WithContext(ctx).
		Where("name_key = ?", domain.NameKey(name)).
		Order("id ASC").
		First(&it).Error
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// ListMenuItemsNameLike returns items whose name contains fragment ignoring
// case, ordered by folded name then id.
func ListMenuItemsNameLike(ctx context.Context, db *gorm.DB, fragment string) ([]domain.MenuItem, error) {
	var out []domain.MenuItem
	err := db.WithContext(ctx).
		Where(`name_key LIKE ? ESCAPE '\'`, likeContains(fragment)).
		Order("name_key ASC, id ASC").
		Find(&out).Error
	return out, err
}

// UpsertMenuItem inserts an available item or, when an item with the same
// name (case-insensitive) exists, updates its price and marks it available.
func UpsertMenuItem(ctx context.Context, db *gorm.DB, name string, price float64) (item *domain.MenuItem, created bool, err error) {
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, gerr := GetMenuItemByName(ctx, tx, name)
		switch {
		case gerr == nil:
			if uerr := tx.Model(existing).Updates(map[string]any{"price": price, "is_available": true}).Error; uerr != nil {
				return uerr
			}
			existing.Price, existing.IsAvailable = price, true
			item = existing
			return nil
		case errors.Is(gerr, ErrNotFound):
			it := &domain.MenuItem{Name: name, Price: price, IsAvailable: true}
			if cerr := tx.Create(it).Error; cerr != nil {
				return cerr
			}
			item, created = it, true
			return nil
		default:
			return gerr
		}
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, false, ErrDuplicate
		}
		return nil, false, err
	}
	return item, created, nil
}

// SetMenuItemAvailability flips the availability flag of one item.
func SetMenuItemAvailability(ctx context.Context, db *gorm.DB, id uint, available bool) error {
	res := db.WithContext(ctx).Model(&domain.MenuItem{}).Where("id = ?", id).Update("is_available", available)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
