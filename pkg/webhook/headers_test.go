package webhook

import (
	"net/http"
	"testing"
)

func TestSanitizeHeaders_DropsSensitive(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer secret-token")
	h.Set("Cookie", "session=abc")
	h.Set("X-Api-Key", "key")
	h.Set("X-Webhook-Secret", "shhh")
	h.Set("X-Hub-Signature-256", "sha256=abc")
	h.Set("X-Slack-Signature", "v0=abc")
	h.Set("X-Acme-Signature", "v1=abc")
	h.Set("Content-Type", "application/json")
	h.Set("X-GitHub-Event", "push")

	out := sanitizeHeaders(h)

	for _, dropped := range []string{"Authorization", "Cookie", "X-Api-Key", "X-Webhook-Secret", "X-Hub-Signature-256", "X-Slack-Signature", "X-Acme-Signature"} {
		if _, ok := out[dropped]; ok {
			t.Errorf("sanitizeHeaders kept %q, want dropped", dropped)
		}
	}

	if out["Content-Type"] != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", out["Content-Type"])
	}
	if out["X-Github-Event"] != "push" {
		t.Errorf("X-Github-Event = %q, want push", out["X-Github-Event"])
	}
}
