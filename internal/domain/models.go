// Package domain defines the persistence models for contacts, the menu,
// orders, and the message log. These types are mapped with GORM and form the
// core data layer of the vendor bot.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Supported messaging platforms.
const (
	PlatformWhatsApp = "whatsapp"
	PlatformTelegram = "telegram"
)

// Message directions.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Order statuses.
const (
	OrderPending = "Pending"
	OrderPaid    = "Paid"
)

// Conversation states tracked per user.
const (
	StateIdle              = "idle"
	StateAwaitingPayerName = "awaiting_payer_name"
)

// User is a customer known by a single cross-platform contact key.
//
// Fields:
//   - PhoneNumber: WhatsApp phone or Telegram chat id (unique).
//   - Name: display name captured on first contact; never updated afterwards.
//   - NameKey: case-folded Name, maintained by BeforeSave.
//   - ConversationState: idle or awaiting_payer_name.
type User struct {
	ID                uint      `json:"id"                 gorm:"primaryKey"`
	PhoneNumber       string    `json:"phone_number"       gorm:"type:varchar(64);not null;uniqueIndex:ux_users_phone"`
	Name              string    `json:"name"               gorm:"type:varchar(255);not null"`
	NameKey           string    `json:"-"                  gorm:"type:varchar(255);not null;default:'';index:idx_users_name_key"`
	ConversationState string    `json:"conversation_state" gorm:"type:varchar(32);not null;default:'idle'"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// MenuItem is a sellable item. Names are unique ignoring case, enforced on
// the folded NameKey.
type MenuItem struct {
	ID          uint      `json:"id"           gorm:"primaryKey"`
	Name        string    `json:"name"         gorm:"type:varchar(255);not null"`
	NameKey     string    `json:"-"            gorm:"type:varchar(255);not null;default:'';uniqueIndex:ux_menu_items_name_key"`
	Price       float64   `json:"price"        gorm:"not null;default:0"`
	IsAvailable bool      `json:"is_available" gorm:"not null;default:true"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for MenuItem.
func (MenuItem) TableName() string { return "menu_items" }

// OrderLine is one structured entry of an order as reported by the assistant.
type OrderLine struct {
	ItemName string `json:"item_name" yaml:"item_name"`
	Quantity int    `json:"quantity"  yaml:"quantity"`
}

// Order is a customer purchase. At most one Pending order exists per user,
// enforced by the partial unique index ux_orders_user_pending.
//
// Fields:
//   - Items: free-text summary shown to the customer and the owner.
//   - ItemLines: optional structured lines (JSON array of OrderLine).
//   - PayerName: bank account name claimed by the customer after paying.
//   - PaidAt: set when the owner confirms payment.
type Order struct {
	ID         uint           `json:"id"          gorm:"primaryKey"`
	UserID     uint           `json:"user_id"     gorm:"not null;index:idx_orders_user;uniqueIndex:ux_orders_user_pending,where:status = 'Pending'"`
	Items      string         `json:"items"       gorm:"type:text;not null"`
	ItemLines  datatypes.JSON `json:"item_lines,omitempty"`
	TotalPrice float64        `json:"total_price" gorm:"not null;default:0"`
	Status     string         `json:"status"      gorm:"type:varchar(16);not null;default:'Pending';check:chk_orders_status,status IN ('Pending','Paid')"`
	PayerName  string         `json:"payer_name,omitempty" gorm:"type:varchar(255)"`
	PaidAt     *time.Time     `json:"paid_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`

	// User owns the order; orders are removed with their user.
	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Order.
func (Order) TableName() string { return "orders" }

// Message is one entry of the append-only conversation log.
//
// Ordering is (Timestamp, ID): Timestamp is milliseconds since the epoch and
// the auto-increment ID breaks same-millisecond ties in insertion order.
type Message struct {
	ID        uint   `json:"id"         gorm:"primaryKey"`
	Platform  string `json:"platform"   gorm:"type:varchar(16);not null"`
	ContactID string `json:"contact_id" gorm:"type:varchar(64);not null;index:idx_messages_contact_ts,priority:1"`
	Direction string `json:"direction"  gorm:"type:varchar(16);not null;check:chk_messages_direction,direction IN ('inbound','outbound')"`
	Body      string `json:"body"       gorm:"type:text;not null"`
	Timestamp int64  `json:"timestamp"  gorm:"not null;index:idx_messages_contact_ts,priority:2;index:idx_messages_ts"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }
