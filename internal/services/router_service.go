// Package services – RouterService
//
// This file implements the conversation router: the state machine that
// decides what happens to every inbound chat message.
//
// A turn runs these steps in order and stops at the first one that handles
// the message:
//
//  1. Log the inbound message; owner commands go to CommandService.
//  2. Bootstrap the user on first contact.
//  3. Payment claim ("PAID"): ask for the bank account name.
//  4. Payer name capture while an order is Pending: alert the owner.
//  5. Delegate to the assistant with the live menu, matching shop notes
//     and recent history.
//  6. Materialize a Pending order when the assistant reports one complete.
//  7. Dispatch the reply.
//
// Store failures end the turn and are returned to the caller. Assistant
// failures are answered with a fixed apology and never retried.
package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/vendorbot/internal/assistant"
	"github.com/tbourn/vendorbot/internal/config"
	"github.com/tbourn/vendorbot/internal/domain"
	"github.com/tbourn/vendorbot/internal/search"
	"github.com/tbourn/vendorbot/internal/sysutil"
)

// Fixed customer-facing replies.
const (
	ReplyAskPayerName = "Okay! Please type the NAME on your bank account."
	ReplyPaymentSeen  = "Seen! Wait for confirmation."
	ReplyNetworkError = "Network error. Try again."

	defaultOrderSummary = "Assorted"
	paidClaimMaxRunes   = 20
	payerNameMaxTokens  = 5
	notesPerTurn        = 3
)

// Branch labels for vendorbot_router_turns_total.
const (
	BranchOwnerCommand   = "owner_command"
	BranchPaymentClaim   = "payment_claim"
	BranchPayerName      = "payer_name"
	BranchAssistant      = "assistant"
	BranchOrderCreated   = "order_created"
	BranchAssistantError = "assistant_error"
	BranchStoreError     = "store_error"
)

var routerTurns = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "vendorbot_router_turns_total",
		Help: "Conversation turns by the branch that handled them.",
	},
	[]string{"branch"},
)

func init() {
	prometheus.MustRegister(routerTurns)
}

// Inbound is a chat message normalized from a platform webhook.
type Inbound struct {
	Platform    string
	ContactID   string
	DisplayName string
	Text        string
	ExternalID  string
}

// Assistant drafts replies for customer messages.
type Assistant interface {
	ClassifyAndReply(ctx context.Context, menu string, history []domain.Message, message string) (assistant.Reply, error)
}

// RouterService routes inbound messages.
type RouterService struct {
	Messages  *MessageService
	Users     *UserService
	Orders    *OrderService
	Catalog   *CatalogService
	Commands  *CommandService
	Assistant Assistant
	Out       Dispatcher
	Notes     search.Index // optional

	Owner              config.OwnerConfig
	PaymentAccount     string
	PayerNameHeuristic bool
	HistoryLimit       int
}

// RouterOptions carries the conversation settings of a RouterService.
type RouterOptions struct {
	Owner              config.OwnerConfig
	PaymentAccount     string
	PayerNameHeuristic bool
	HistoryLimit       int
	Notes              search.Index
}

// NewRouterService wires a RouterService and its CommandService over the
// given stores.
func NewRouterService(msgs *MessageService, users *UserService, orders *OrderService, catalog *CatalogService, asst Assistant, out Dispatcher, opts RouterOptions) *RouterService {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 10
	}
	return &RouterService{
		Messages:           msgs,
		Users:              users,
		Orders:             orders,
		Catalog:            catalog,
		Commands:           NewCommandService(users, orders, catalog, msgs, out),
		Assistant:          asst,
		Out:                out,
		Notes:              opts.Notes,
		Owner:              opts.Owner,
		PaymentAccount:     opts.PaymentAccount,
		PayerNameHeuristic: opts.PayerNameHeuristic,
		HistoryLimit:       opts.HistoryLimit,
	}
}

// IsOwner reports whether (platform, contactID) identifies the shop owner.
func (s *RouterService) IsOwner(platform, contactID string) bool {
	if s.Owner.ID != "" && platform == s.Owner.Platform && contactID == s.Owner.ID {
		return true
	}
	return s.Owner.Phone != "" && platform == domain.PlatformWhatsApp && contactID == s.Owner.Phone
}

// ownerAddress returns where owner alerts go.
func (s *RouterService) ownerAddress() (platform, id string, ok bool) {
	if s.Owner.ID != "" {
		return s.Owner.Platform, s.Owner.ID, true
	}
	if s.Owner.Phone != "" {
		return domain.PlatformWhatsApp, s.Owner.Phone, true
	}
	return "", "", false
}

// DefaultDisplayName is used when a platform supplies no sender name.
func DefaultDisplayName(platform string) string {
	if platform == domain.PlatformTelegram {
		return "User"
	}
	return "Student"
}

// Handle runs one conversation turn for in.
func (s *RouterService) Handle(ctx context.Context, in Inbound) (err error) {
	ctx, span := otel.Tracer("services/RouterService").Start(ctx, "Handle",
		trace.WithAttributes(
			attribute.String("platform", in.Platform),
			attribute.String("contact.id", in.ContactID),
		),
	)
	defer span.End()

	branch := ""
	defer func() {
		if err != nil {
			branch = BranchStoreError
			span.RecordError(err)
			span.SetStatus(codes.Error, "route")
		}
		if branch != "" {
			routerTurns.WithLabelValues(branch).Inc()
			span.SetAttributes(attribute.String("router.branch", branch))
		}
	}()

	text := strings.TrimSpace(in.Text)
	name := strings.TrimSpace(in.DisplayName)
	if name == "" {
		name = DefaultDisplayName(in.Platform)
	}

	// 1. log inbound, owner commands
	if _, err := s.Messages.Append(ctx, in.Platform, in.ContactID, domain.DirectionInbound, text); err != nil {
		return fmt.Errorf("log inbound: %w", err)
	}
	if s.IsOwner(in.Platform, in.ContactID) && IsCommand(text) {
		branch = BranchOwnerCommand
		reply, err := s.Commands.Execute(ctx, text)
		if err != nil {
			return fmt.Errorf("owner command: %w", err)
		}
		return s.Out.Send(ctx, in.Platform, in.ContactID, reply)
	}

	// 2. user bootstrap
	u, err := s.Users.Ensure(ctx, in.ContactID, name)
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}

	// 3. payment claim
	if strings.Contains(strings.ToUpper(text), "PAID") && utf8.RuneCountInString(text) < paidClaimMaxRunes {
		branch = BranchPaymentClaim
		if err := s.Users.SetState(ctx, u.ID, domain.StateAwaitingPayerName); err != nil {
			return fmt.Errorf("set state: %w", err)
		}
		return s.Out.Send(ctx, in.Platform, in.ContactID, ReplyAskPayerName)
	}

	// 4. payer name capture
	pending, err := s.Orders.FindPending(ctx, u.ID)
	if err != nil {
		return fmt.Errorf("find pending: %w", err)
	}
	awaiting := u.ConversationState == domain.StateAwaitingPayerName
	if awaiting && pending == nil {
		if err := s.Users.SetState(ctx, u.ID, domain.StateIdle); err != nil {
			return fmt.Errorf("reset state: %w", err)
		}
		awaiting = false
	}
	if pending != nil && (awaiting || s.PayerNameHeuristic) && looksLikePayerName(text) {
		branch = BranchPayerName
		return s.capturePayerName(ctx, in, u, pending, text)
	}

	// 5. assistant
	menu, err := s.Catalog.LiveMenuText(ctx)
	if err != nil {
		return fmt.Errorf("live menu: %w", err)
	}
	menu = s.withNotes(menu, text)
	history, err := s.Messages.History(ctx, in.ContactID, s.HistoryLimit)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	reply, aerr := s.Assistant.ClassifyAndReply(ctx, menu, history, text)
	if aerr != nil {
		branch = BranchAssistantError
		sysutil.Logger(ctx).Error().Err(aerr).Str("contact_id", in.ContactID).Msg("assistant failed")
		return s.Out.Send(ctx, in.Platform, in.ContactID, ReplyNetworkError)
	}
	branch = BranchAssistant
	out := reply.Text

	// 6. order materialization
	if reply.Complete && pending == nil {
		summary := strings.TrimSpace(reply.OrderSummary)
		if summary == "" {
			summary = defaultOrderSummary
		}
		order, created, err := s.Orders.CreatePending(ctx, u.ID, summary, reply.Items, reply.Total)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		if created {
			branch = BranchOrderCreated
			out += fmt.Sprintf("\n\nOrder #%d Created.\nPay to %s.\nReply 'PAID' when done.", order.ID, s.PaymentAccount)
		}
	}

	// 7. dispatch
	return s.Out.Send(ctx, in.Platform, in.ContactID, out)
}

// withNotes appends the shop notes that best match text to the menu block.
func (s *RouterService) withNotes(menu, text string) string {
	if s.Notes == nil {
		return menu
	}
	hits := s.Notes.TopK(text, notesPerTurn)
	if len(hits) == 0 {
		return menu
	}
	var b strings.Builder
	b.WriteString(menu)
	b.WriteString("\n\nSHOP NOTES:")
	for _, h := range hits {
		b.WriteString("\n- ")
		b.WriteString(h.Snippet)
	}
	return b.String()
}

// alertItems is the order description shown to the owner. Orders stored
// with the placeholder summary are described by their structured lines.
func alertItems(o *domain.Order) string {
	if o.Items != defaultOrderSummary {
		return o.Items
	}
	lines := Lines(o)
	if len(lines) == 0 {
		return o.Items
	}
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		if l.Quantity > 0 {
			parts = append(parts, fmt.Sprintf("%d x %s", l.Quantity, l.ItemName))
		} else {
			parts = append(parts, l.ItemName)
		}
	}
	return strings.Join(parts, ", ")
}

// looksLikePayerName reports whether text can be a bank account name: fewer
// than five tokens and no CONFIRM.
func looksLikePayerName(text string) bool {
	return len(strings.Fields(text)) < payerNameMaxTokens &&
		!strings.Contains(strings.ToUpper(text), CmdConfirm)
}

func (s *RouterService) capturePayerName(ctx context.Context, in Inbound, u *domain.User, order *domain.Order, text string) error {
	if err := s.Orders.RecordPayerName(ctx, order.ID, text); err != nil {
		return fmt.Errorf("record payer name: %w", err)
	}

	if platform, id, ok := s.ownerAddress(); ok {
		alert := fmt.Sprintf("💰 NEW PAYMENT!\nUser: %s\nAcct: %s\nOrder #%d: %s\nTotal: N%s\nReply 'CONFIRM %s'",
			u.Name, text, order.ID, alertItems(order), FormatAmount(order.TotalPrice), u.Name)
		if err := s.Out.Send(ctx, platform, id, alert); err != nil {
			return err
		}
	} else {
		sysutil.Logger(ctx).Warn().Uint("order_id", order.ID).Msg("payment alert skipped: no owner configured")
	}

	if err := s.Out.Send(ctx, in.Platform, in.ContactID, ReplyPaymentSeen); err != nil {
		return err
	}
	if u.ConversationState != domain.StateIdle {
		if err := s.Users.SetState(ctx, u.ID, domain.StateIdle); err != nil {
			return fmt.Errorf("reset state: %w", err)
		}
	}
	return nil
}
