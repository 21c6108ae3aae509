package signal

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/akamaotto/relayhub/pkg/connector"
	"github.com/akamaotto/relayhub/pkg/mailfilter"
)

// kindMappings translates a (provider_slug, provider-native event
// identifier) pair into a canonical Kind. Unmapped pairs normalize to
// KindUnknown rather than being invented on the fly — the taxonomy is a
// closed registry (§9).
var kindMappings = map[string]map[string]Kind{
	"slack": {
		"message_posted": KindMessagePosted,
		"message":        KindMessagePosted,
		"file_shared":    KindFileShared,
	},
	"github": {
		"issues.opened":       KindIssueOpened,
		"issues.closed":       KindIssueClosed,
		"pull_request.opened": KindPullRequestOpened,
		"pull_request.merged": KindPullRequestMerged,
		"issue_comment":       KindCommentPosted,
	},
	"gmail": {
		"message_received": KindMessageReceived,
	},
	"zoho-mail": {
		"message_received": KindMessageReceived,
	},
	"outlook": {
		"message_received": KindMessageReceived,
		"event_created":    KindMeetingScheduled,
	},
}

// NormalizeKind maps a connector-reported provider kind to the canonical
// taxonomy.
func NormalizeKind(providerSlug, providerKind string) Kind {
	if byProvider, ok := kindMappings[providerSlug]; ok {
		if kind, ok := byProvider[providerKind]; ok {
			return kind
		}
	}
	return KindUnknown
}

// mailProviders is the set of provider slugs the spam filter applies to
// (§1 supplemented feature scope).
var mailProviders = map[string]bool{
	"gmail":     true,
	"zoho-mail": true,
	"outlook":   true,
}

// Normalizer turns connector RawSignals into Signals ready for dedupe
// insertion, applying the mail spam filter for mail-family providers.
type Normalizer struct {
	SpamFilter mailfilter.SpamFilter
	Logger     *slog.Logger
}

// NewNormalizer builds a Normalizer. spamFilter may be nil if mail spam
// filtering is disabled.
func NewNormalizer(spamFilter mailfilter.SpamFilter, logger *slog.Logger) *Normalizer {
	return &Normalizer{SpamFilter: spamFilter, Logger: logger}
}

// Normalize converts a single raw signal into a persistable Signal, or
// returns ok=false if the mail spam filter suppressed it. connectionID is
// nil when the raw signal came from a connection-less webhook job.
func (n *Normalizer) Normalize(tenantID uuid.UUID, connectionID *uuid.UUID, providerSlug string, raw connector.RawSignal) (Signal, bool) {
	if n.SpamFilter != nil && mailProviders[providerSlug] {
		meta := mailMetadataFromPayload(providerSlug, raw.Payload)
		verdict := n.SpamFilter.Evaluate(meta)
		if verdict.IsSpam {
			if n.Logger != nil {
				n.Logger.Info("signal suppressed by mail spam filter",
					"provider_slug", providerSlug, "dedupe_key", raw.DedupeKey,
					"spam_score", verdict.Score, "reason", verdict.Reason)
			}
			return Signal{}, false
		}
	}

	return Signal{
		TenantID:     tenantID,
		ConnectionID: connectionID,
		ProviderSlug: providerSlug,
		Kind:         NormalizeKind(providerSlug, raw.ProviderKind),
		OccurredAt:   raw.OccurredAt,
		Payload:      raw.Payload,
		DedupeKey:    raw.DedupeKey,
	}, true
}

func mailMetadataFromPayload(providerSlug string, payload map[string]any) mailfilter.Metadata {
	meta := mailfilter.Metadata{Provider: mailfilter.ProviderFromSlug(providerSlug)}

	if v, ok := payload["subject"].(string); ok {
		meta.Subject = v
	}
	if v, ok := payload["from"].(string); ok {
		meta.From = v
	}
	if v, ok := payload["labels"].([]any); ok {
		for _, l := range v {
			if s, ok := l.(string); ok {
				meta.Labels = append(meta.Labels, s)
			}
		}
	}
	if v, ok := payload["has_attachments"].(bool); ok {
		meta.HasAttachments = v
	}
	if v, ok := payload["attachment_extensions"].([]any); ok {
		for _, e := range v {
			if s, ok := e.(string); ok {
				meta.AttachmentExtensions = append(meta.AttachmentExtensions, s)
			}
		}
	}
	if v, ok := payload["headers"].(map[string]any); ok {
		meta.Headers = map[string]string{}
		for k, hv := range v {
			if s, ok := hv.(string); ok {
				meta.Headers[k] = s
			}
		}
	}

	return meta
}
