package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

const maxBodyBytes = 1 << 20 // 1 MiB

// Decode reads a JSON body into dst, rejecting unknown fields and trailing
// data. On failure it writes a VALIDATION_FAILED problem response and
// returns false.
func Decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			RespondProblemFromRequest(w, r, CodePayloadTooLarge, "request body too large", nil)
			return false
		}
		RespondProblemFromRequest(w, r, CodeValidationFailed, "invalid JSON body: "+err.Error(), nil)
		return false
	}

	if dec.More() {
		RespondProblemFromRequest(w, r, CodeValidationFailed, "request body contains trailing data", nil)
		return false
	}

	return true
}

// Validate runs struct-tag validation on dst. On failure it writes a
// VALIDATION_FAILED problem response with per-field details and returns
// false.
func Validate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := map[string]any{"fields": fieldErrors(verrs)}
			RespondProblemFromRequest(w, r, CodeValidationFailed, "validation failed", details)
			return false
		}
		RespondProblemFromRequest(w, r, CodeValidationFailed, err.Error(), nil)
		return false
	}
	return true
}

// DecodeAndValidate combines Decode and Validate.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !Decode(w, r, dst) {
		return false
	}
	return Validate(w, r, dst)
}

func fieldErrors(verrs validator.ValidationErrors) []map[string]string {
	out := make([]map[string]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, map[string]string{
			"field":   toSnakeCase(fe.Field()),
			"message": fieldErrorMessage(fe),
		})
	}
	return out
}

func fieldErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "url":
		return "must be a valid URL"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
