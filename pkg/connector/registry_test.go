package connector

import (
	"context"
	"testing"
)

type stubConnector struct {
	slug string
}

func (s *stubConnector) Metadata() Metadata {
	return Metadata{Slug: s.slug, AuthType: "oauth2"}
}
func (s *stubConnector) Authorize(ctx context.Context, p AuthorizeParams) (string, error) {
	return "", ErrNotSupported
}
func (s *stubConnector) ExchangeToken(ctx context.Context, p ExchangeParams) (*ConnectionDraft, error) {
	return nil, ErrNotSupported
}
func (s *stubConnector) RefreshToken(ctx context.Context, conn ConnectionView) (*ConnectionDraft, error) {
	return nil, ErrNotSupported
}
func (s *stubConnector) Sync(ctx context.Context, p SyncParams) (*SyncResult, error) {
	return nil, ErrNotSupported
}
func (s *stubConnector) HandleWebhook(ctx context.Context, p WebhookParams) ([]RawSignal, error) {
	return nil, ErrNotSupported
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubConnector{slug: "github"})

	c, ok := r.Get("github")
	if !ok {
		t.Fatal("Get() ok = false, want true")
	}
	if c.Metadata().Slug != "github" {
		t.Errorf("Metadata().Slug = %q, want github", c.Metadata().Slug)
	}

	if _, ok := r.Get("unknown"); ok {
		t.Error("Get(unknown) ok = true, want false")
	}
}

func TestRegistry_All_SortedBySlug(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubConnector{slug: "zoho-cliq"})
	r.Register(&stubConnector{slug: "github"})
	r.Register(&stubConnector{slug: "slack"})

	all := r.All()
	if len(all) != 3 {
		t.Fatalf("All() len = %d, want 3", len(all))
	}
	want := []string{"github", "slack", "zoho-cliq"}
	for i, m := range all {
		if m.Slug != want[i] {
			t.Errorf("All()[%d].Slug = %q, want %q", i, m.Slug, want[i])
		}
	}
}

func TestRegistry_MustGet_NotFound(t *testing.T) {
	r := NewRegistry()
	if _, err := r.MustGet("missing"); err == nil {
		t.Error("MustGet() error = nil, want not-found error")
	}
}

func TestError_IsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want bool
	}{
		{"network retryable", &Error{Type: ErrorTypeNetwork, Retryable: true}, true},
		{"network not retryable", &Error{Type: ErrorTypeNetwork, Retryable: false}, false},
		{"rate limit", &Error{Type: ErrorTypeRateLimit}, true},
		{"configuration", &Error{Type: ErrorTypeConfiguration}, false},
		{"authentication", &Error{Type: ErrorTypeAuthentication}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.IsRetryable(); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}
