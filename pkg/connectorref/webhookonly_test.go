package connectorref

import (
	"context"
	"testing"

	"github.com/akamaotto/relayhub/pkg/connector"
)

func TestWebhookOnlyConnector_Metadata(t *testing.T) {
	c := NewWebhookOnlyConnector("zoho-cliq", nil)
	meta := c.Metadata()
	if meta.Slug != "zoho-cliq" {
		t.Errorf("Slug = %q, want zoho-cliq", meta.Slug)
	}
	if !meta.SupportsWebhooks {
		t.Error("SupportsWebhooks = false, want true")
	}
	if meta.AuthType != "custom:zoho-cliq" {
		t.Errorf("AuthType = %q, want custom:zoho-cliq", meta.AuthType)
	}
}

func TestWebhookOnlyConnector_UnsupportedCapabilities(t *testing.T) {
	c := NewWebhookOnlyConnector("zoho-cliq", nil)
	ctx := context.Background()

	if _, err := c.Authorize(ctx, connector.AuthorizeParams{}); err != connector.ErrNotSupported {
		t.Errorf("Authorize err = %v, want ErrNotSupported", err)
	}
	if _, err := c.ExchangeToken(ctx, connector.ExchangeParams{}); err != connector.ErrNotSupported {
		t.Errorf("ExchangeToken err = %v, want ErrNotSupported", err)
	}
	if _, err := c.RefreshToken(ctx, connector.ConnectionView{}); err != connector.ErrNotSupported {
		t.Errorf("RefreshToken err = %v, want ErrNotSupported", err)
	}
	if _, err := c.Sync(ctx, connector.SyncParams{}); err != connector.ErrNotSupported {
		t.Errorf("Sync err = %v, want ErrNotSupported", err)
	}
}

func TestWebhookOnlyConnector_HandleWebhook_MapsKind(t *testing.T) {
	c := NewWebhookOnlyConnector("zoho-cliq", map[string]string{"msg.new": "message_posted"})

	signals, err := c.HandleWebhook(context.Background(), connector.WebhookParams{
		Payload: map[string]any{"event_type": "msg.new", "id": "abc123"},
	})
	if err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}
	if len(signals) != 1 {
		t.Fatalf("len(signals) = %d, want 1", len(signals))
	}
	if signals[0].ProviderKind != "message_posted" {
		t.Errorf("ProviderKind = %q, want message_posted", signals[0].ProviderKind)
	}
	if signals[0].DedupeKey != "abc123" {
		t.Errorf("DedupeKey = %q, want abc123", signals[0].DedupeKey)
	}
}

func TestWebhookOnlyConnector_HandleWebhook_UnmappedKindPassesThrough(t *testing.T) {
	c := NewWebhookOnlyConnector("zoho-cliq", nil)

	signals, err := c.HandleWebhook(context.Background(), connector.WebhookParams{
		Payload: map[string]any{"event_type": "unknown.event"},
	})
	if err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}
	if signals[0].ProviderKind != "unknown.event" {
		t.Errorf("ProviderKind = %q, want unknown.event passed through unmapped", signals[0].ProviderKind)
	}
}
