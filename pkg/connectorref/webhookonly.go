package connectorref

import (
	"context"
	"time"

	"github.com/akamaotto/relayhub/pkg/connector"
)

// WebhookOnlyConnector models a provider that is never pulled from and has
// no OAuth step — connection rows for it are created directly by an
// operator, and all events arrive via the webhook ingress (C11/C12). It
// implements only the HandleWebhook and metadata capabilities; every other
// capability returns connector.ErrNotSupported, per §9's "typed not
// supported error, not a runtime absent method".
type WebhookOnlyConnector struct {
	slug         string
	kindMappings map[string]string // provider event type -> canonical kind
}

// NewWebhookOnlyConnector builds a WebhookOnlyConnector for slug, mapping
// provider-native event identifiers to canonical kinds.
func NewWebhookOnlyConnector(slug string, kindMappings map[string]string) *WebhookOnlyConnector {
	return &WebhookOnlyConnector{slug: slug, kindMappings: kindMappings}
}

func (c *WebhookOnlyConnector) Metadata() connector.Metadata {
	return connector.Metadata{
		Slug:             c.slug,
		AuthType:         "custom:" + c.slug,
		SupportsWebhooks: true,
	}
}

func (c *WebhookOnlyConnector) Authorize(ctx context.Context, p connector.AuthorizeParams) (string, error) {
	return "", connector.ErrNotSupported
}

func (c *WebhookOnlyConnector) ExchangeToken(ctx context.Context, p connector.ExchangeParams) (*connector.ConnectionDraft, error) {
	return nil, connector.ErrNotSupported
}

func (c *WebhookOnlyConnector) RefreshToken(ctx context.Context, conn connector.ConnectionView) (*connector.ConnectionDraft, error) {
	return nil, connector.ErrNotSupported
}

func (c *WebhookOnlyConnector) Sync(ctx context.Context, p connector.SyncParams) (*connector.SyncResult, error) {
	return nil, connector.ErrNotSupported
}

func (c *WebhookOnlyConnector) HandleWebhook(ctx context.Context, p connector.WebhookParams) ([]connector.RawSignal, error) {
	eventType, _ := p.Payload["event_type"].(string)
	providerKind := eventType
	if mapped, ok := c.kindMappings[eventType]; ok {
		providerKind = mapped
	}

	dedupeKey, _ := p.Payload["id"].(string)

	return []connector.RawSignal{{
		ProviderKind: providerKind,
		OccurredAt:   time.Now(),
		Payload:      p.Payload,
		DedupeKey:    dedupeKey,
	}}, nil
}
