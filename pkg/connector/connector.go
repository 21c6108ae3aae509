// Package connector defines the connector contract (C2): the capability
// set a per-provider plugin may implement, and the tagged error variants
// the HTTP surface maps to API errors (§7).
package connector

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Metadata describes a connector's static capabilities.
type Metadata struct {
	Slug             string
	AuthType         string
	Scopes           []string
	SupportsWebhooks bool
}

// AuthorizeParams is the input to Authorize.
type AuthorizeParams struct {
	TenantID    uuid.UUID
	RedirectURI string
	State       string
}

// ExchangeParams is the input to ExchangeToken.
type ExchangeParams struct {
	Code        string
	RedirectURI string
	TenantID    uuid.UUID
}

// ConnectionDraft is what ExchangeToken and RefreshToken return: plaintext
// credential material not yet encrypted by the caller (C4 does that).
type ConnectionDraft struct {
	ExternalID   string
	DisplayName  string
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
	Scopes       []string
	Metadata     map[string]any
}

// SyncParams is the input to Sync.
type SyncParams struct {
	Connection ConnectionView
	Cursor     map[string]any
	Now        time.Time
}

// ConnectionView is the read-only connection projection connectors operate
// against; it never carries ciphertext, only already-decrypted tokens.
type ConnectionView struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	ExternalID   string
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
	Metadata     map[string]any
}

// RawSignal is a single provider event as returned by Sync or
// HandleWebhook, before normalization (C14) and dedupe (C13).
type RawSignal struct {
	ProviderKind string // provider-native event identifier, mapped to canonical kind by C14
	OccurredAt   time.Time
	Payload      map[string]any
	DedupeKey    string
}

// SyncResult is the output of Sync: new raw signals plus the connector's
// opaque cursor for the next call.
type SyncResult struct {
	Signals    []RawSignal
	NextCursor map[string]any
}

// WebhookParams is the input to HandleWebhook.
type WebhookParams struct {
	Payload    map[string]any
	TenantID   uuid.UUID
	AuthHeader string
}

// Connector is the interface every provider plugin implements some subset
// of. Capabilities a connector does not support return ErrNotSupported,
// never a missing-method panic — callers check Metadata().SupportsWebhooks
// etc. before invoking the corresponding capability where relevant.
type Connector interface {
	Metadata() Metadata
	Authorize(ctx context.Context, p AuthorizeParams) (string, error)
	ExchangeToken(ctx context.Context, p ExchangeParams) (*ConnectionDraft, error)
	RefreshToken(ctx context.Context, conn ConnectionView) (*ConnectionDraft, error)
	Sync(ctx context.Context, p SyncParams) (*SyncResult, error)
	HandleWebhook(ctx context.Context, p WebhookParams) ([]RawSignal, error)
}

// ErrNotSupported is returned by a capability a connector does not
// implement (§9: "a typed not-supported error, not a runtime absent
// method").
var ErrNotSupported = errors.New("connector: capability not supported")

// Revoker is an optional capability: connectors whose provider supports
// programmatic token revocation implement it. A connector that does not
// implement Revoker is treated as "revocation not supported", never an
// error, when the credential store revokes a connection (§6's
// DELETE /connections/{id}).
type Revoker interface {
	Revoke(ctx context.Context, conn ConnectionView) error
}

// Error variant tags (§4.2), surfaced at the API per §7's propagation table.
type ErrorType string

const (
	ErrorTypeHTTP             ErrorType = "http_error"
	ErrorTypeMalformedResp    ErrorType = "malformed_response"
	ErrorTypeNetwork          ErrorType = "network_error"
	ErrorTypeAuthentication   ErrorType = "authentication_error"
	ErrorTypeRateLimit        ErrorType = "rate_limit_error"
	ErrorTypeConfiguration    ErrorType = "configuration_error"
	ErrorTypeUnknown          ErrorType = "unknown"
)

// Error is the tagged connector error variant. Type selects which fields
// are meaningful; see §4.2 and §7.
type Error struct {
	Type ErrorType

	// HttpError
	Status  int
	Body    string
	Headers map[string]string

	// MalformedResponse
	Details string
	Partial bool

	// NetworkError
	Retryable bool

	// AuthenticationError
	Code string

	// RateLimitError
	RetryAfter *time.Duration
	Limit      *int
}

func (e *Error) Error() string {
	if e.Details != "" {
		return string(e.Type) + ": " + e.Details
	}
	return string(e.Type)
}

// IsRetryable reports whether the executor (C10) should retry the job that
// produced this error.
func (e *Error) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork:
		return e.Retryable
	case ErrorTypeRateLimit, ErrorTypeHTTP, ErrorTypeMalformedResp, ErrorTypeUnknown:
		return true
	default:
		return false
	}
}

// AsConnectorError unwraps err into a *Error, wrapping unknown errors as
// ErrorTypeUnknown so the executor always has a classification to act on.
func AsConnectorError(err error) *Error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	return &Error{Type: ErrorTypeUnknown, Details: err.Error()}
}
