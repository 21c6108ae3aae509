package scoring

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeRow struct {
	values []any
}

func (f fakeRow) Scan(dest ...any) error {
	for i, d := range dest {
		switch v := d.(type) {
		case *uuid.UUID:
			*v = f.values[i].(uuid.UUID)
		case **string:
			*v = f.values[i].(*string)
		case *string:
			*v = f.values[i].(string)
		case *float64:
			*v = f.values[i].(float64)
		case *Status:
			*v = f.values[i].(Status)
		case *[]byte:
			*v = f.values[i].([]byte)
		case *time.Time:
			*v = f.values[i].(time.Time)
		default:
			panic("unhandled scan dest type")
		}
	}
	return nil
}

func TestScanGroundedSignal_RoundTrip(t *testing.T) {
	id := uuid.New()
	signalID := uuid.New()
	tenantID := uuid.New()
	key := "cluster-key"
	now := time.Now().UTC().Truncate(time.Second)
	evidenceJSON := []byte(`{"kind":"pull_request_merged"}`)
	rec := "pull_request_merged signal from github scored 0.75"

	row := fakeRow{values: []any{
		id, signalID, tenantID, &key,
		0.8, 0.9, 1.0, 0.85, 0.5, 0.75, 0.81,
		"draft", evidenceJSON, &rec, now, now,
	}}

	gs, err := scanGroundedSignal(row)
	if err != nil {
		t.Fatalf("scanGroundedSignal: %v", err)
	}
	if gs.ID != id {
		t.Errorf("ID = %v, want %v", gs.ID, id)
	}
	if gs.IdempotencyKey != key {
		t.Errorf("IdempotencyKey = %v, want %v", gs.IdempotencyKey, key)
	}
	if gs.Status != StatusDraft {
		t.Errorf("Status = %v, want draft", gs.Status)
	}
	if gs.Evidence["kind"] != "pull_request_merged" {
		t.Errorf("Evidence[kind] = %v, want pull_request_merged", gs.Evidence["kind"])
	}
	if gs.Recommendation != rec {
		t.Errorf("Recommendation = %v, want %v", gs.Recommendation, rec)
	}
}

func TestScanGroundedSignal_NilIdempotencyKeyAndRecommendation(t *testing.T) {
	id := uuid.New()
	signalID := uuid.New()
	tenantID := uuid.New()
	now := time.Now().UTC().Truncate(time.Second)

	row := fakeRow{values: []any{
		id, signalID, tenantID, (*string)(nil),
		0.2, 0.5, 0.5, 0.4, 0.5, 0.5, 0.43,
		"draft", []byte(`{}`), (*string)(nil), now, now,
	}}

	gs, err := scanGroundedSignal(row)
	if err != nil {
		t.Fatalf("scanGroundedSignal: %v", err)
	}
	if gs.IdempotencyKey != "" {
		t.Errorf("IdempotencyKey = %q, want empty", gs.IdempotencyKey)
	}
	if gs.Recommendation != "" {
		t.Errorf("Recommendation = %q, want empty", gs.Recommendation)
	}
}

func TestNullableString(t *testing.T) {
	if got := nullableString(""); got != nil {
		t.Errorf("nullableString(\"\") = %v, want nil", got)
	}
	if got := nullableString("x"); got == nil || *got != "x" {
		t.Errorf("nullableString(\"x\") = %v, want pointer to x", got)
	}
}
