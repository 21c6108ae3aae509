package refresher

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/akamaotto/relayhub/pkg/connector"
)

type fakeConnector struct {
	slug        string
	refreshFunc func(ctx context.Context, conn connector.ConnectionView) (*connector.ConnectionDraft, error)
}

func (f *fakeConnector) Metadata() connector.Metadata { return connector.Metadata{Slug: f.slug} }
func (f *fakeConnector) Authorize(ctx context.Context, p connector.AuthorizeParams) (string, error) {
	return "", connector.ErrNotSupported
}
func (f *fakeConnector) ExchangeToken(ctx context.Context, p connector.ExchangeParams) (*connector.ConnectionDraft, error) {
	return nil, connector.ErrNotSupported
}
func (f *fakeConnector) RefreshToken(ctx context.Context, conn connector.ConnectionView) (*connector.ConnectionDraft, error) {
	return f.refreshFunc(ctx, conn)
}
func (f *fakeConnector) Sync(ctx context.Context, p connector.SyncParams) (*connector.SyncResult, error) {
	return nil, connector.ErrNotSupported
}
func (f *fakeConnector) HandleWebhook(ctx context.Context, p connector.WebhookParams) ([]connector.RawSignal, error) {
	return nil, connector.ErrNotSupported
}

func TestRefresher_InCooldown(t *testing.T) {
	r := New(nil, connector.NewRegistry(), slog.Default(), Config{RetryCooldown: time.Hour, MaxAttempts: 3})
	id := uuid.New()

	if r.inCooldown(id) {
		t.Fatal("expected no cooldown before any failure")
	}

	r.recordFailureForTest(id)
	if !r.inCooldown(id) {
		t.Fatal("expected cooldown immediately after a failure")
	}
}

func (r *Refresher) recordFailureForTest(id uuid.UUID) {
	r.failuresMu.Lock()
	st := r.failures[id]
	st.count++
	st.lastAttempt = time.Now()
	r.failures[id] = st
	r.failuresMu.Unlock()
}

func TestRefresher_LockFor_PreventsConcurrentRefresh(t *testing.T) {
	r := New(nil, connector.NewRegistry(), slog.Default(), Config{Concurrency: 2})
	id := uuid.New()

	lock := r.lockFor(id)
	if !lock.TryLock() {
		t.Fatal("expected first TryLock to succeed")
	}
	defer lock.Unlock()

	again := r.lockFor(id)
	if again.TryLock() {
		t.Fatal("expected second TryLock on the same connection to fail while held")
	}
}

func TestAsConnectorError_Unknown(t *testing.T) {
	err := errors.New("boom")
	ce := connector.AsConnectorError(err)
	if ce.Type != connector.ErrorTypeUnknown {
		t.Errorf("Type = %v, want unknown", ce.Type)
	}
}
