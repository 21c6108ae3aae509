// Package docs serves the static OpenAPI document. Generating it from the
// route tree is out of scope (§1); this package only serves the
// hand-maintained document at internal/docs/openapi.json.
package docs

import (
	_ "embed"
	"net/http"
)

//go:embed openapi.json
var openAPIJSON []byte

// Handler serves GET /openapi.json.
var Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(openAPIJSON)
})
