// Package services defines the business logic for the message log, the menu
// catalog, the order ledger, owner commands, and conversation routing. This
// file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into chat replies or HTTP status codes is performed by the
// command interpreter and the handler layer.
package services

import "errors"

var (
	// ErrItemNotFound indicates that no menu item matched a name fragment.
	ErrItemNotFound = errors.New("menu item not found")

	// ErrUserNotFound indicates that no user matched a name fragment.
	ErrUserNotFound = errors.New("user not found")

	// ErrNoPendingOrder is returned when an operation requires a Pending
	// order and the user has none.
	ErrNoPendingOrder = errors.New("no pending order")

	// ErrInvalidPrice is returned for negative, NaN, or infinite prices.
	ErrInvalidPrice = errors.New("price must be a non-negative number")

	// ErrEmptyName is returned when an item or fragment name is blank.
	ErrEmptyName = errors.New("name is empty")
)
