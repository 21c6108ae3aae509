package cursor

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	occurredAt := time.Now().UTC().Truncate(time.Second)
	id := uuid.New()

	encoded, err := Encode(occurredAt, id)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !decoded.OccurredAt.Equal(occurredAt) {
		t.Errorf("OccurredAt = %v, want %v", decoded.OccurredAt, occurredAt)
	}
	if decoded.ID != id {
		t.Errorf("ID = %v, want %v", decoded.ID, id)
	}
}

func TestDecode_Empty(t *testing.T) {
	_, err := Decode("")
	assertValidationMsg(t, err, "cannot be empty")
}

func TestDecode_TooLong(t *testing.T) {
	_, err := Decode(strings.Repeat("a", 1001))
	assertValidationMsg(t, err, "too long")
}

func TestDecode_InvalidCharacters(t *testing.T) {
	_, err := Decode("cursor@#$%")
	assertValidationMsg(t, err, "invalid characters")
}

func TestDecode_InvalidUTF8(t *testing.T) {
	_, err := Decode("//8=")
	assertValidationMsg(t, err, "invalid UTF-8")
}

func TestDecode_InvalidJSON(t *testing.T) {
	_, err := Decode(base64.StdEncoding.EncodeToString([]byte("invalid json")))
	assertValidationMsg(t, err, "invalid JSON structure")
}

func TestDecode_TimestampTooOld(t *testing.T) {
	encoded, _ := Encode(time.Now().Add(-400*24*time.Hour), uuid.New())
	_, err := Decode(encoded)
	assertValidationMsg(t, err, "too old")
}

func TestDecode_TimestampTooFuture(t *testing.T) {
	encoded, _ := Encode(time.Now().Add(400*24*time.Hour), uuid.New())
	_, err := Decode(encoded)
	assertValidationMsg(t, err, "too far in the future")
}

func TestDecode_NilUUID(t *testing.T) {
	encoded, _ := Encode(time.Now(), uuid.Nil)
	_, err := Decode(encoded)
	assertValidationMsg(t, err, "invalid ID")
}

func TestDecode_DecodedTooLarge(t *testing.T) {
	largeData := strings.Repeat("x", 600)
	json := `{"occurred_at":"2024-01-01T00:00:00Z","id":"550e8400-e29b-41d4-a716-446655440000","data":"` + largeData + `"}`
	encoded := base64.StdEncoding.EncodeToString([]byte(json))

	_, err := Decode(encoded)
	assertValidationMsg(t, err, "too large")
}

func TestDecode_ExtraFieldsIgnored(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	json := `{"occurred_at":"` + now.Format(time.RFC3339) + `","id":"550e8400-e29b-41d4-a716-446655440000","injected":true}`
	encoded := base64.StdEncoding.EncodeToString([]byte(json))

	if _, err := Decode(encoded); err != nil {
		t.Errorf("expected extra fields to be ignored, got error: %v", err)
	}
}

func TestDecode_RecentTimestampValid(t *testing.T) {
	encoded, _ := Encode(time.Now().Add(-30*24*time.Hour), uuid.New())
	if _, err := Decode(encoded); err != nil {
		t.Errorf("expected 30-day-old cursor to be valid, got: %v", err)
	}
}

func assertValidationMsg(t *testing.T, err error, substr string) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	if !IsValidationError(err) {
		t.Fatalf("expected a ValidationError, got %T: %v", err, err)
	}
	if !strings.Contains(err.Error(), substr) {
		t.Errorf("error message %q does not contain %q", err.Error(), substr)
	}
}
