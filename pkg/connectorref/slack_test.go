package connectorref

import (
	"context"
	"strings"
	"testing"

	"github.com/akamaotto/relayhub/pkg/connector"
)

func TestSlackConnector_Metadata(t *testing.T) {
	c := NewSlackConnector("client-id", "client-secret", []string{"channels:history", "chat:write"})
	meta := c.Metadata()
	if meta.Slug != "slack" {
		t.Errorf("Slug = %q, want slack", meta.Slug)
	}
	if len(meta.Scopes) != 2 {
		t.Errorf("len(Scopes) = %d, want 2", len(meta.Scopes))
	}
	if !meta.SupportsWebhooks {
		t.Error("SupportsWebhooks = false, want true")
	}
}

func TestSlackConnector_Authorize_BuildsAuthURL(t *testing.T) {
	c := NewSlackConnector("client-id", "client-secret", []string{"channels:history"})
	authURL, err := c.Authorize(context.Background(), connector.AuthorizeParams{
		State:       "abc123",
		RedirectURI: "https://example.com/callback",
	})
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if !strings.Contains(authURL, "client_id=client-id") {
		t.Errorf("authURL = %q, want it to contain client_id", authURL)
	}
	if !strings.Contains(authURL, "state=abc123") {
		t.Errorf("authURL = %q, want it to contain state", authURL)
	}
}

func TestSlackConnector_RefreshToken_NoRefreshTokenIsUnsupported(t *testing.T) {
	c := NewSlackConnector("client-id", "client-secret", nil)
	_, err := c.RefreshToken(context.Background(), connector.ConnectionView{})
	if err != connector.ErrNotSupported {
		t.Errorf("err = %v, want ErrNotSupported", err)
	}
}

func TestSlackConnector_HandleWebhook_IgnoresNonEventCallback(t *testing.T) {
	c := NewSlackConnector("client-id", "client-secret", nil)
	signals, err := c.HandleWebhook(context.Background(), connector.WebhookParams{
		Payload: map[string]any{"type": "url_verification"},
	})
	if err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}
	if signals != nil {
		t.Errorf("signals = %v, want nil for a non-event_callback payload", signals)
	}
}

func TestSlackConnector_HandleWebhook_ExtractsEvent(t *testing.T) {
	c := NewSlackConnector("client-id", "client-secret", nil)
	signals, err := c.HandleWebhook(context.Background(), connector.WebhookParams{
		Payload: map[string]any{
			"type": "event_callback",
			"event": map[string]any{
				"event_ts": "1234.5678",
				"text":     "hello",
			},
		},
	})
	if err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}
	if len(signals) != 1 {
		t.Fatalf("len(signals) = %d, want 1", len(signals))
	}
	if signals[0].DedupeKey != "webhook:1234.5678" {
		t.Errorf("DedupeKey = %q, want webhook:1234.5678", signals[0].DedupeKey)
	}
}
