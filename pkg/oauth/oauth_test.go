package oauth

import "testing"

func TestValidateAuthorizeURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid https", "https://slack.com/oauth/authorize?client_id=abc&state=xyz", false},
		{"http scheme rejected", "http://slack.com/oauth/authorize", true},
		{"fragment rejected", "https://slack.com/oauth/authorize#foo", true},
		{"malformed", "://not a url", true},
		{"too long", "https://slack.com/oauth/authorize?" + longQuery(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := validateAuthorizeURL(tt.url)
			if (got != "") != tt.wantErr {
				t.Errorf("validateAuthorizeURL(%q) = %q, wantErr %v", tt.url, got, tt.wantErr)
			}
		})
	}
}

func longQuery() string {
	b := make([]byte, maxAuthorizeURLLen)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}
