package domain

import (
	"testing"
	"time"
)

func TestWebhookReceipt_UniquePerPlatformAndID(t *testing.T) {
	db := newDomainDB(t)
	if err := db.AutoMigrate(&WebhookReceipt{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if !db.Migrator().HasIndex(&WebhookReceipt{}, "ux_receipt_platform_ext") {
		t.Fatalf("expected composite index ux_receipt_platform_ext")
	}

	now := time.Now().UTC()
	first := &WebhookReceipt{Platform: PlatformWhatsApp, ExternalID: "wamid.1", ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(first).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}
	if first.CreatedAt.IsZero() {
		t.Fatalf("CreatedAt should be set automatically")
	}

	dup := &WebhookReceipt{Platform: PlatformWhatsApp, ExternalID: "wamid.1", ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(dup).Error; err == nil {
		t.Fatalf("expected UNIQUE violation on (platform, external_id)")
	}

	other := &WebhookReceipt{Platform: PlatformTelegram, ExternalID: "wamid.1", ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(other).Error; err != nil {
		t.Fatalf("same id on another platform should insert: %v", err)
	}
}
