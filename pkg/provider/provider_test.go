package provider

import "testing"

func TestCustomAuthType(t *testing.T) {
	got := CustomAuthType("zoho-cliq")
	if got != AuthType("custom:zoho-cliq") {
		t.Errorf("CustomAuthType(\"zoho-cliq\") = %q, want %q", got, "custom:zoho-cliq")
	}
}
