// Package webhook implements the webhook verifier (C11) and ingress (C12):
// per-provider request authentication and the handoff into the sync job
// queue (C8), per §4.8.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
)

// VerificationMethod records which verifier family authenticated a request;
// it is persisted on the enqueued job's cursor envelope.
type VerificationMethod string

const (
	MethodGitHub         VerificationMethod = "github_hmac_sha256"
	MethodSlack          VerificationMethod = "slack_hmac_sha256"
	MethodOIDC           VerificationMethod = "oidc_bearer"
	MethodSharedSecret   VerificationMethod = "shared_secret"
	MethodOperatorBypass VerificationMethod = "operator_bypass"
)

// ErrReplay is returned when a request's timestamp falls outside the
// configured tolerance window.
var ErrReplay = errors.New("webhook: timestamp outside replay tolerance")

// ErrUnauthorized is returned by a verifier that cannot authenticate a
// request.
var ErrUnauthorized = errors.New("webhook: signature verification failed")

// ErrPayloadTooLarge is returned when a request body exceeds a verifier's
// configured size limit (§4.8, §7).
var ErrPayloadTooLarge = errors.New("webhook: payload exceeds maximum size")

// Verifier authenticates an inbound webhook request against its raw body
// bytes. body must be exactly the bytes the sender signed — never a
// re-serialized or re-parsed form (§4.8).
type Verifier interface {
	Verify(r *http.Request, body []byte) error
	Method() VerificationMethod
}

// GitHubVerifier implements the GitHub-style family:
// X-Hub-Signature-256 = "sha256=" + hex(HMAC-SHA256(secret, body)).
type GitHubVerifier struct {
	Secret string
}

func (GitHubVerifier) Method() VerificationMethod { return MethodGitHub }

func (v GitHubVerifier) Verify(r *http.Request, body []byte) error {
	want, ok := strings.CutPrefix(r.Header.Get("X-Hub-Signature-256"), "sha256=")
	if !ok {
		return ErrUnauthorized
	}
	mac := hmac.New(sha256.New, []byte(v.Secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if subtle.ConstantTimeCompare([]byte(want), []byte(expected)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// SlackVerifier implements the Slack-style family:
// X-Slack-Signature = "v0=" + hex(HMAC-SHA256(secret, "v0:"+ts+":"+body)),
// rejecting requests whose timestamp has drifted past Tolerance.
type SlackVerifier struct {
	Secret    string
	Tolerance time.Duration
	// now is overridable for tests; defaults to time.Now.
	now func() time.Time
}

// NewSlackVerifier builds a SlackVerifier with the given tolerance.
func NewSlackVerifier(secret string, tolerance time.Duration) *SlackVerifier {
	return &SlackVerifier{Secret: secret, Tolerance: tolerance}
}

func (*SlackVerifier) Method() VerificationMethod { return MethodSlack }

func (v *SlackVerifier) Verify(r *http.Request, body []byte) error {
	want, ok := strings.CutPrefix(r.Header.Get("X-Slack-Signature"), "v0=")
	if !ok {
		return ErrUnauthorized
	}
	tsHeader := r.Header.Get("X-Slack-Request-Timestamp")
	ts, err := strconv.ParseInt(tsHeader, 10, 64)
	if err != nil {
		return ErrUnauthorized
	}

	now := time.Now
	if v.now != nil {
		now = v.now
	}
	tolerance := v.Tolerance
	if tolerance <= 0 {
		tolerance = 300 * time.Second
	}
	if delta := now().Unix() - ts; delta > int64(tolerance.Seconds()) || delta < -int64(tolerance.Seconds()) {
		return ErrReplay
	}

	base := fmt.Sprintf("v0:%s:%s", tsHeader, body)
	mac := hmac.New(sha256.New, []byte(v.Secret))
	mac.Write([]byte(base))
	expected := hex.EncodeToString(mac.Sum(nil))
	if subtle.ConstantTimeCompare([]byte(want), []byte(expected)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// SharedSecretVerifier implements the shared-secret family: X-Webhook-Secret
// or "Authorization: Bearer <secret>" constant-time equal to Secret.
type SharedSecretVerifier struct {
	Secret string
}

func (SharedSecretVerifier) Method() VerificationMethod { return MethodSharedSecret }

func (v SharedSecretVerifier) Verify(r *http.Request, body []byte) error {
	got := r.Header.Get("X-Webhook-Secret")
	if got == "" {
		got = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(v.Secret)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// OIDCVerifier implements the OIDC push (Gmail-style) family: a bearer JWT
// verified against one of a configured issuer set's JWKS, with audience
// match and exp/iat validity delegated to the go-oidc verifier, plus a body
// size ceiling.
type OIDCVerifier struct {
	Verifiers []*oidc.IDTokenVerifier
	MaxBodyKB int
}

// NewOIDCVerifier performs OIDC discovery against each issuer and builds an
// OIDCVerifier that accepts a token signed by any of them. Discovery makes a
// network call per issuer; callers build this once at startup.
func NewOIDCVerifier(ctx context.Context, issuers, audience []string, maxBodyKB int) (*OIDCVerifier, error) {
	verifiers := make([]*oidc.IDTokenVerifier, 0, len(issuers))
	for _, issuer := range issuers {
		p, err := oidc.NewProvider(ctx, issuer)
		if err != nil {
			return nil, fmt.Errorf("webhook: discovering OIDC issuer %s: %w", issuer, err)
		}
		verifiers = append(verifiers, p.Verifier(&oidc.Config{ClientID: firstOrEmpty(audience), SupportedSigningAlgs: nil}))
	}
	return &OIDCVerifier{Verifiers: verifiers, MaxBodyKB: maxBodyKB}, nil
}

func firstOrEmpty(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return ss[0]
}

func (OIDCVerifier) Method() VerificationMethod { return MethodOIDC }

func (v OIDCVerifier) Verify(r *http.Request, body []byte) error {
	if v.MaxBodyKB > 0 && len(body) > v.MaxBodyKB*1024 {
		return ErrPayloadTooLarge
	}
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if raw == "" || len(v.Verifiers) == 0 {
		return ErrUnauthorized
	}
	for _, iv := range v.Verifiers {
		if _, err := iv.Verify(r.Context(), raw); err == nil {
			return nil
		}
	}
	return ErrUnauthorized
}
