// Package cursor implements the cursor codec (C15): opaque, signed-free
// pagination tokens for the signal listing endpoint, with exhaustive input
// validation since a cursor is caller-supplied and otherwise-untrusted
// (§4.9, §8).
package cursor

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// maxEncodedLen and maxDecodedLen bound the cursor string before and after
// base64 decoding, to prevent oversized inputs from reaching the JSON
// parser.
const (
	maxEncodedLen = 1000
	maxDecodedLen = 500
)

// maxAge bounds how far in the past or future a cursor's timestamp may be;
// cursors derived from a signal's occurred_at outside this window are
// rejected as implausible (§4.9).
const maxAge = 365 * 24 * time.Hour

// Data is the decoded cursor payload: the (occurred_at, id) tuple a list
// query resumes from.
type Data struct {
	OccurredAt time.Time `json:"occurred_at"`
	ID         uuid.UUID `json:"id"`
}

// ValidationError is a cursor rejection with a human-readable message
// surfaced verbatim as a VALIDATION_FAILED problem detail.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(msg string) error { return &ValidationError{Message: msg} }

// IsValidationError reports whether err was produced by Decode's input
// validation (as opposed to an unexpected internal failure).
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Encode returns an opaque base64-encoded cursor for the given position.
func Encode(occurredAt time.Time, id uuid.UUID) (string, error) {
	data := Data{OccurredAt: occurredAt, ID: id}
	j, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(j), nil
}

// Decode validates and decodes a cursor string. The check order mirrors
// the ported reference implementation exactly, since later scenarios
// (e.g. "decoded too large") depend on the earlier checks (base64 charset,
// length) having already run.
func Decode(cursor string) (*Data, error) {
	if len(cursor) > maxEncodedLen {
		return nil, invalid("cursor is too long")
	}
	if cursor == "" {
		return nil, invalid("cursor cannot be empty")
	}
	if !isBase64Charset(cursor) {
		return nil, invalid("cursor contains invalid characters")
	}

	decoded, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return nil, invalid("cursor is not valid base64")
	}

	if len(decoded) == 0 {
		return nil, invalid("cursor is empty after decoding")
	}
	if len(decoded) > maxDecodedLen {
		return nil, invalid("decoded cursor is too large")
	}

	if !utf8.Valid(decoded) {
		return nil, invalid("cursor contains invalid UTF-8 data")
	}

	var data Data
	if err := json.Unmarshal(decoded, &data); err != nil {
		return nil, invalid("cursor contains invalid JSON structure")
	}

	now := time.Now()
	if data.OccurredAt.Before(now.Add(-maxAge)) {
		return nil, invalid("cursor timestamp is too old")
	}
	if data.OccurredAt.After(now.Add(maxAge)) {
		return nil, invalid("cursor timestamp is too far in the future")
	}

	if data.ID == uuid.Nil {
		return nil, invalid("cursor contains invalid ID")
	}

	return &data, nil
}

func isBase64Charset(s string) bool {
	for _, c := range s {
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case c == '+' || c == '/' || c == '=':
		default:
			return false
		}
	}
	return true
}
