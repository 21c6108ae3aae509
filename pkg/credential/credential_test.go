package credential

import (
	"testing"

	"github.com/google/uuid"
)

func TestConnection_AAD(t *testing.T) {
	tenantID := uuid.New()
	c := Connection{TenantID: tenantID, ProviderSlug: "github", ExternalID: "acct-1"}

	want := tenantID.String() + "|github|acct-1"
	if got := string(c.AAD()); got != want {
		t.Errorf("AAD() = %q, want %q", got, want)
	}
}

func TestConnection_AAD_ChangesWithExternalID(t *testing.T) {
	tenantID := uuid.New()
	a := Connection{TenantID: tenantID, ProviderSlug: "github", ExternalID: "acct-1"}
	b := Connection{TenantID: tenantID, ProviderSlug: "github", ExternalID: "acct-2"}

	if string(a.AAD()) == string(b.AAD()) {
		t.Error("AAD() must differ when external_id differs, else ciphertext could be swapped across accounts")
	}
}

func TestConnection_SyncMetadataValue_Empty(t *testing.T) {
	c := Connection{}
	sm := c.SyncMetadataValue()
	if sm.IntervalSeconds != nil {
		t.Errorf("IntervalSeconds = %v, want nil for a connection with no metadata", sm.IntervalSeconds)
	}
}

func TestConnection_SyncMetadataValue_ExtractsIntervalAndCursor(t *testing.T) {
	c := Connection{
		Metadata: map[string]any{
			"sync": map[string]any{
				"interval_seconds": float64(300),
				"cursor":           map[string]any{"page": "2"},
			},
		},
	}

	sm := c.SyncMetadataValue()
	if sm.IntervalSeconds == nil || *sm.IntervalSeconds != 300 {
		t.Errorf("IntervalSeconds = %v, want 300", sm.IntervalSeconds)
	}
	if sm.Cursor["page"] != "2" {
		t.Errorf("Cursor[page] = %v, want 2", sm.Cursor["page"])
	}
}
