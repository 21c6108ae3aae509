package oauthstate

import (
	"encoding/base64"
	"testing"
)

func TestGenerateState_Format(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		s, err := GenerateState()
		if err != nil {
			t.Fatalf("GenerateState: %v", err)
		}
		if len(s) != 43 {
			t.Errorf("state length = %d, want 43", len(s))
		}
		if _, err := base64.RawURLEncoding.DecodeString(s); err != nil {
			t.Errorf("state %q not valid raw URL base64: %v", s, err)
		}
		if seen[s] {
			t.Fatalf("duplicate state generated: %s", s)
		}
		seen[s] = true
	}
}

func TestTTL(t *testing.T) {
	if TTL.Minutes() != 15 {
		t.Errorf("TTL = %v, want 15m", TTL)
	}
}
