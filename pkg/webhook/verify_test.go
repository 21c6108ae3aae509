package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"testing"
	"time"
)

func TestGitHubVerifier_ValidSignature(t *testing.T) {
	secret := "s3cr3t"
	body := []byte(`{"action":"opened"}`)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	sig := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	r := httpReq(t, "X-Hub-Signature-256", sig)
	v := GitHubVerifier{Secret: secret}
	if err := v.Verify(r, body); err != nil {
		t.Fatalf("Verify() = %v, want nil", err)
	}
}

func TestGitHubVerifier_WrongSignature(t *testing.T) {
	r := httpReq(t, "X-Hub-Signature-256", "sha256=deadbeef")
	v := GitHubVerifier{Secret: "s3cr3t"}
	if err := v.Verify(r, []byte("body")); err == nil {
		t.Fatal("Verify() = nil, want error")
	}
}

func TestGitHubVerifier_MissingHeader(t *testing.T) {
	r := httpReq(t)
	v := GitHubVerifier{Secret: "s3cr3t"}
	if err := v.Verify(r, []byte("body")); err == nil {
		t.Fatal("Verify() = nil, want error")
	}
}

func TestSlackVerifier_ValidSignature(t *testing.T) {
	secret := "slack-secret"
	body := []byte(`{"type":"event_callback"}`)
	ts := "1700000000"
	base := fmt.Sprintf("v0:%s:%s", ts, body)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(base))
	sig := "v0=" + hex.EncodeToString(mac.Sum(nil))

	r := httpReq(t, "X-Slack-Signature", sig, "X-Slack-Request-Timestamp", ts)
	fixedNow, _ := strconv.ParseInt(ts, 10, 64)
	v := &SlackVerifier{Secret: secret, Tolerance: 300 * time.Second, now: func() time.Time { return time.Unix(fixedNow, 0) }}
	if err := v.Verify(r, body); err != nil {
		t.Fatalf("Verify() = %v, want nil", err)
	}
}

func TestSlackVerifier_ReplayDetected(t *testing.T) {
	secret := "slack-secret"
	body := []byte(`{"type":"event_callback"}`)
	ts := "1700000000"
	base := fmt.Sprintf("v0:%s:%s", ts, body)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(base))
	sig := "v0=" + hex.EncodeToString(mac.Sum(nil))

	r := httpReq(t, "X-Slack-Signature", sig, "X-Slack-Request-Timestamp", ts)
	tsVal, _ := strconv.ParseInt(ts, 10, 64)
	v := &SlackVerifier{Secret: secret, Tolerance: 300 * time.Second, now: func() time.Time { return time.Unix(tsVal+900, 0) }}
	if err := v.Verify(r, body); err != ErrReplay {
		t.Fatalf("Verify() = %v, want ErrReplay", err)
	}
}

func TestSlackVerifier_WrongSignature(t *testing.T) {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	r := httpReq(t, "X-Slack-Signature", "v0=bogus", "X-Slack-Request-Timestamp", ts)
	v := NewSlackVerifier("slack-secret", 300*time.Second)
	if err := v.Verify(r, []byte("body")); err == nil {
		t.Fatal("Verify() = nil, want error")
	}
}

func TestSharedSecretVerifier_HeaderMatch(t *testing.T) {
	r := httpReq(t, "X-Webhook-Secret", "shhh")
	v := SharedSecretVerifier{Secret: "shhh"}
	if err := v.Verify(r, nil); err != nil {
		t.Fatalf("Verify() = %v, want nil", err)
	}
}

func TestSharedSecretVerifier_BearerMatch(t *testing.T) {
	r := httpReq(t, "Authorization", "Bearer shhh")
	v := SharedSecretVerifier{Secret: "shhh"}
	if err := v.Verify(r, nil); err != nil {
		t.Fatalf("Verify() = %v, want nil", err)
	}
}

func TestSharedSecretVerifier_Mismatch(t *testing.T) {
	r := httpReq(t, "X-Webhook-Secret", "wrong")
	v := SharedSecretVerifier{Secret: "shhh"}
	if err := v.Verify(r, nil); err == nil {
		t.Fatal("Verify() = nil, want error")
	}
}

func httpReq(t *testing.T, headerPairs ...string) *http.Request {
	t.Helper()
	r, err := http.NewRequest(http.MethodPost, "/webhooks/test", bytes.NewReader(nil))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i+1 < len(headerPairs); i += 2 {
		r.Header.Set(headerPairs[i], headerPairs[i+1])
	}
	return r
}
