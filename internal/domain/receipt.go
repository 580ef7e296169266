package domain

import "time"

// WebhookReceipt records a provider message or update id that has already
// been processed, keyed by (platform, external_id). Providers retry webhooks
// on slow or failed acknowledgements; a live receipt suppresses the replay.
type WebhookReceipt struct {
	ID         uint      `gorm:"primaryKey"`
	Platform   string    `gorm:"type:varchar(16);not null;uniqueIndex:ux_receipt_platform_ext,priority:1"`
	ExternalID string    `gorm:"type:varchar(128);not null;uniqueIndex:ux_receipt_platform_ext,priority:2"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt  time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (WebhookReceipt) TableName() string { return "webhook_receipts" }
