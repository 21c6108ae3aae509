package webhook

import (
	"net/http"
	"strings"
)

var droppedHeaders = map[string]bool{
	"cookie":           true,
	"set-cookie":       true,
	"x-api-key":        true,
	"x-webhook-secret": true,
}

// sanitizeHeaders copies h into a flat map for storage in the webhook
// envelope, dropping cookies, API keys, signature headers, and the
// Authorization header (which is carried separately as the envelope's
// auth_header field, not reproduced here).
func sanitizeHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		lk := strings.ToLower(k)
		if lk == "authorization" || droppedHeaders[lk] || hasSensitivePrefix(lk) {
			continue
		}
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

// hasSensitivePrefix matches any "x-*-signature*" header (e.g.
// x-hub-signature-256, x-slack-signature, x-acme-signature), not just the
// handful of providers relayhub ships verifiers for, since sync_jobs.cursor
// is operator-visible via GET /sync-jobs (§4.8: "sanitize headers").
func hasSensitivePrefix(lk string) bool {
	return strings.HasPrefix(lk, "x-") && strings.Contains(lk, "signature")
}
