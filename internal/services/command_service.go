// Package services – CommandService
//
// This file implements the owner command interpreter. The owner manages the
// shop from the same chat the customers use:
//
//	CONFIRM <name>        approve the Pending order of a customer
//	ADD <item...> <price> add or reprice a menu item
//	OUT <item>            mark an item out of stock
//	IN <item>             restock an item
//	MENU                  show the live menu
//
// Every command produces exactly one reply text for the owner. Expected
// failures (unknown item, bad price) become reply texts; only store errors are
// returned.
package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/vendorbot/internal/sysutil"
)

// Owner command keywords.
const (
	CmdConfirm = "CONFIRM"
	CmdAdd     = "ADD"
	CmdOut     = "OUT"
	CmdIn      = "IN"
	CmdMenu    = "MENU"
)

// Replies produced by the interpreter.
const (
	ReplyConfirmUsage   = "Usage: CONFIRM <Name>"
	ReplyUserNotFound   = "Student not found."
	ReplyNoPendingOrder = "No pending order."
	ReplyAddUsage       = "Usage: ADD <Item> <Price>"
	ReplyBadPrice       = "Price must be a number."
	ReplyItemNotFound   = "Item not found."
	ReplyUnknownCommand = "Unknown Command. Try: CONFIRM, ADD, OUT, IN, MENU"
)

// Dispatcher records an outbound message and delivers it.
type Dispatcher interface {
	Send(ctx context.Context, platform, recipient, text string) error
}

// CommandService interprets owner commands.
type CommandService struct {
	Users    *UserService
	Orders   *OrderService
	Catalog  *CatalogService
	Messages *MessageService
	Out      Dispatcher
}

// NewCommandService wires a CommandService.
func NewCommandService(users *UserService, orders *OrderService, catalog *CatalogService, messages *MessageService, out Dispatcher) *CommandService {
	return &CommandService{Users: users, Orders: orders, Catalog: catalog, Messages: messages, Out: out}
}

// IsCommand reports whether the first token of text is a recognized keyword.
func IsCommand(text string) bool {
	switch commandKeyword(text) {
	case CmdConfirm, CmdAdd, CmdOut, CmdIn, CmdMenu:
		return true
	}
	return false
}

func commandKeyword(text string) string {
	f := strings.Fields(text)
	if len(f) == 0 {
		return ""
	}
	return strings.ToUpper(f[0])
}

// Execute runs one owner command and returns the reply for the owner.
func (s *CommandService) Execute(ctx context.Context, text string) (string, error) {
	parts := strings.Fields(text)
	cmd := commandKeyword(text)

	ctx, span := otel.Tracer("services/CommandService").Start(ctx, "Execute",
		trace.WithAttributes(attribute.String("command", cmd)),
	)
	defer span.End()

	switch cmd {
	case CmdConfirm:
		return s.confirm(ctx, parts)
	case CmdAdd:
		return s.add(ctx, parts)
	case CmdOut:
		return s.setAvailability(ctx, parts, false)
	case CmdIn:
		return s.setAvailability(ctx, parts, true)
	case CmdMenu:
		menu, err := s.Catalog.LiveMenuText(ctx)
		if err != nil {
			return "", err
		}
		return "📜 Current Menu:\n" + menu, nil
	}
	return ReplyUnknownCommand, nil
}

// confirm marks the Pending order of the customer matching parts[1] as Paid
// and tells the customer on the platform they last used.
func (s *CommandService) confirm(ctx context.Context, parts []string) (string, error) {
	if len(parts) < 2 {
		return ReplyConfirmUsage, nil
	}
	fragment := parts[1]

	u, err := s.Users.FindByNameFragment(ctx, fragment)
	if errors.Is(err, ErrUserNotFound) {
		return ReplyUserNotFound, nil
	}
	if err != nil {
		return "", err
	}

	pending, err := s.Orders.FindPending(ctx, u.ID)
	if err != nil {
		return "", err
	}
	if pending == nil {
		return ReplyNoPendingOrder, nil
	}
	order, err := s.Orders.MarkPaid(ctx, pending.ID)
	if errors.Is(err, ErrNoPendingOrder) {
		return ReplyNoPendingOrder, nil
	}
	if err != nil {
		return "", err
	}

	platform, err := s.Messages.LastPlatform(ctx, u.PhoneNumber)
	if err != nil {
		return "", err
	}
	notice := fmt.Sprintf("✅ Order #%d Confirmed! We are packing it now.", order.ID)
	if err := s.Out.Send(ctx, platform, u.PhoneNumber, notice); err != nil {
		sysutil.Logger(ctx).Error().Err(err).Uint("order_id", order.ID).Msg("record confirmation notice")
	}
	return fmt.Sprintf("Approved %s.", fragment), nil
}

// add parses "ADD <name...> <price>" and upserts the item.
func (s *CommandService) add(ctx context.Context, parts []string) (string, error) {
	if len(parts) < 3 {
		return ReplyAddUsage, nil
	}
	price, err := strconv.ParseFloat(parts[len(parts)-1], 64)
	if err != nil || price < 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return ReplyBadPrice, nil
	}
	name := strings.Join(parts[1:len(parts)-1], " ")

	_, created, err := s.Catalog.Upsert(ctx, name, price)
	switch {
	case errors.Is(err, ErrInvalidPrice):
		return ReplyBadPrice, nil
	case errors.Is(err, ErrEmptyName):
		return ReplyAddUsage, nil
	case err != nil:
		return "", err
	}
	action := "Updated"
	if created {
		action = "Added"
	}
	return fmt.Sprintf("✅ %s '%s' @ N%s.", action, name, FormatAmount(price)), nil
}

func (s *CommandService) setAvailability(ctx context.Context, parts []string, available bool) (string, error) {
	fragment := strings.Join(parts[1:], " ")
	it, err := s.Catalog.SetAvailability(ctx, fragment, available)
	if errors.Is(err, ErrItemNotFound) || errors.Is(err, ErrEmptyName) {
		return ReplyItemNotFound, nil
	}
	if err != nil {
		return "", err
	}
	if available {
		return fmt.Sprintf("✅ '%s' RESTOCKED.", it.Name), nil
	}
	return fmt.Sprintf("🚫 '%s' is OUT OF STOCK.", it.Name), nil
}

// FormatAmount prints a price the way the shop has always shown it: whole
// amounts keep a trailing ".0" (500 -> "500.0"), fractions print in full.
func FormatAmount(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") && !math.IsInf(v, 0) && !math.IsNaN(v) {
		s += ".0"
	}
	return s
}
