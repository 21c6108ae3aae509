package signal

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/akamaotto/relayhub/pkg/connector"
	"github.com/akamaotto/relayhub/pkg/mailfilter"
)

func TestNormalizeKind(t *testing.T) {
	tests := []struct {
		provider string
		kind     string
		want     Kind
	}{
		{"slack", "message_posted", KindMessagePosted},
		{"github", "pull_request.merged", KindPullRequestMerged},
		{"github", "nonsense_event", KindUnknown},
		{"unknown-provider", "anything", KindUnknown},
	}
	for _, tt := range tests {
		if got := NormalizeKind(tt.provider, tt.kind); got != tt.want {
			t.Errorf("NormalizeKind(%q, %q) = %q, want %q", tt.provider, tt.kind, got, tt.want)
		}
	}
}

func TestNormalizer_SuppressesSpam(t *testing.T) {
	n := NewNormalizer(mailfilter.NewDefaultFilter(0.1, nil, nil), nil)

	raw := connector.RawSignal{
		ProviderKind: "message_received",
		OccurredAt:   time.Now(),
		DedupeKey:    "msg-1",
		Payload: map[string]any{
			"subject": "URGENT: Claim your prize now!!!",
		},
	}

	connID := uuid.New()
	_, ok := n.Normalize(uuid.New(), &connID, "gmail", raw)
	if ok {
		t.Fatal("expected spam message to be suppressed")
	}
}

func TestNormalizer_PassesLegitimateMail(t *testing.T) {
	n := NewNormalizer(mailfilter.NewDefaultFilter(0.8, nil, nil), nil)

	raw := connector.RawSignal{
		ProviderKind: "message_received",
		OccurredAt:   time.Now(),
		DedupeKey:    "msg-2",
		Payload: map[string]any{
			"subject": "Team meeting notes",
		},
	}

	connID := uuid.New()
	sig, ok := n.Normalize(uuid.New(), &connID, "gmail", raw)
	if !ok {
		t.Fatal("expected legitimate message to pass")
	}
	if sig.Kind != KindMessageReceived {
		t.Errorf("Kind = %q, want message_received", sig.Kind)
	}
}

func TestNormalizer_NonMailProviderSkipsSpamFilter(t *testing.T) {
	n := NewNormalizer(mailfilter.NewDefaultFilter(0.1, nil, nil), nil)

	raw := connector.RawSignal{
		ProviderKind: "message_posted",
		OccurredAt:   time.Now(),
		DedupeKey:    "msg-3",
		Payload: map[string]any{
			"subject": "URGENT: Claim your prize now!!!",
		},
	}

	connID := uuid.New()
	_, ok := n.Normalize(uuid.New(), &connID, "slack", raw)
	if !ok {
		t.Fatal("expected non-mail provider to bypass spam filtering")
	}
}
