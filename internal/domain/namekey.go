package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"gorm.io/gorm"
)

// NameKey returns the case-folded form of name used for lookups and
// uniqueness. Folding happens in Go so every database compares the same
// bytes, including non-ASCII letters.
func NameKey(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// BeforeSave keeps NameKey in step with Name.
func (u *User) BeforeSave(*gorm.DB) error {
	u.NameKey = NameKey(u.Name)
	return nil
}

// BeforeSave keeps NameKey in step with Name.
func (m *MenuItem) BeforeSave(*gorm.DB) error {
	m.NameKey = NameKey(m.Name)
	return nil
}
