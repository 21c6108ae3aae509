// Package oauth implements the OAuth orchestrator (C6): the authorize-start
// and callback HTTP handlers tying together the connector registry (C3),
// the OAuth state store (C5), and the credential store (C4), per §4.3.
package oauth

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/akamaotto/relayhub/internal/httpserver"
	"github.com/akamaotto/relayhub/internal/operatorauth"
	"github.com/akamaotto/relayhub/pkg/connector"
	"github.com/akamaotto/relayhub/pkg/credential"
	"github.com/akamaotto/relayhub/pkg/oauthstate"
)

// maxAuthorizeURLLen bounds the connector-returned authorize URL (§4.3(c)).
const maxAuthorizeURLLen = 2048

// Handler wires the authorize-start and callback endpoints.
type Handler struct {
	registry *connector.Registry
	states   *oauthstate.Store
	creds    *credential.Store
	logger   *slog.Logger

	// PublicBaseURL is prefixed onto the provider slug to build the
	// redirect_uri passed to connectors (e.g. "https://hub.example.com").
	PublicBaseURL string
}

// NewHandler builds an oauth Handler.
func NewHandler(registry *connector.Registry, states *oauthstate.Store, creds *credential.Store, logger *slog.Logger, publicBaseURL string) *Handler {
	return &Handler{registry: registry, states: states, creds: creds, logger: logger, PublicBaseURL: publicBaseURL}
}

// AuthorizeRoutes returns the router for the operator-authenticated
// authorize-start route. The public callback route lives on the separate
// router CallbackRoutes returns, since §6 requires the callback to be
// reachable without a bearer token (the provider redirects the end user's
// browser there directly).
func (h *Handler) AuthorizeRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/{provider}", h.handleAuthorizeStart)
	return r
}

// CallbackRoutes returns the public (unauthenticated) callback router.
func (h *Handler) CallbackRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{provider}/callback", h.handleCallback)
	return r
}

func (h *Handler) redirectURI(providerSlug string) string {
	return strings.TrimRight(h.PublicBaseURL, "/") + "/connect/" + providerSlug + "/callback"
}

// handleAuthorizeStart implements §4.3(a)-(f): resolve connector, generate
// state, persist it, ask the connector to build the authorize URL, validate
// it, and roll back the state row on any failure.
func (h *Handler) handleAuthorizeStart(w http.ResponseWriter, r *http.Request) {
	providerSlug := chi.URLParam(r, "provider")
	tenantID, ok := operatorauth.TenantIDFromContext(r.Context())
	if !ok {
		httpserver.RespondProblemFromRequest(w, r, httpserver.CodeUnauthorized, "missing tenant context", nil)
		return
	}

	conn, err := h.registry.MustGet(providerSlug)
	if err != nil {
		httpserver.RespondProblemFromRequest(w, r, httpserver.CodeNotFound, "unknown provider", nil)
		return
	}

	stateValue, err := oauthstate.GenerateState()
	if err != nil {
		httpserver.LogUnexpected(h.logger, w, r, "generating oauth state", err)
		return
	}

	st, err := h.states.Create(r.Context(), tenantID, providerSlug, stateValue, "")
	if err != nil {
		httpserver.LogUnexpected(h.logger, w, r, "persisting oauth state", err)
		return
	}

	authorizeURL, err := conn.Authorize(r.Context(), connector.AuthorizeParams{
		TenantID:    tenantID,
		RedirectURI: h.redirectURI(providerSlug),
		State:       st.Value,
	})
	if err != nil {
		_ = h.states.Delete(r.Context(), st.ID)
		h.respondConnectorError(w, r, err)
		return
	}

	if problem := validateAuthorizeURL(authorizeURL); problem != "" {
		_ = h.states.Delete(r.Context(), st.ID)
		httpserver.RespondProblemFromRequest(w, r, httpserver.CodeProviderError, problem, nil)
		return
	}

	httpserver.Respond(w, http.StatusOK, map[string]string{"authorize_url": authorizeURL})
}

// validateAuthorizeURL enforces §4.3(c): https scheme, bounded length, no
// fragment.
func validateAuthorizeURL(raw string) string {
	if len(raw) > maxAuthorizeURLLen {
		return "authorize url exceeds maximum length"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "authorize url is malformed"
	}
	if u.Scheme != "https" {
		return "authorize url must use https"
	}
	if u.Fragment != "" {
		return "authorize url must not contain a fragment"
	}
	return ""
}

// handleCallback implements §4.3's callback ordering: validate the
// request's own parameters (state, and code unless the provider returned an
// error) are present before any side effect, THEN consume state (find-and-delete). A missing or already-used
// state is reported as VALIDATION_FAILED, not a replay-attack code, per
// §4.3(b) Scenario 1. A provider-denied authorization also reports
// VALIDATION_FAILED with the upstream error carried in details rather than
// folded into the message, per §4.3(c).
func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	providerSlug := chi.URLParam(r, "provider")
	q := r.URL.Query()
	stateValue := q.Get("state")

	if stateValue == "" {
		httpserver.RespondProblemFromRequest(w, r, httpserver.CodeValidationFailed, "missing state parameter", nil)
		return
	}

	code := q.Get("code")
	if code == "" && q.Get("error") == "" {
		httpserver.RespondProblemFromRequest(w, r, httpserver.CodeValidationFailed, "missing code parameter", nil)
		return
	}

	st, err := h.states.Consume(r.Context(), providerSlug, stateValue)
	if errors.Is(err, oauthstate.ErrNotFound) {
		httpserver.RespondProblemFromRequest(w, r, httpserver.CodeValidationFailed, "missing, expired, or invalid state", nil)
		return
	}
	if err != nil {
		httpserver.LogUnexpected(h.logger, w, r, "consuming oauth state", err)
		return
	}

	if providerErr := q.Get("error"); providerErr != "" {
		httpserver.RespondProblemFromRequest(w, r, httpserver.CodeValidationFailed, "provider denied authorization", map[string]any{"provider_error": providerErr})
		return
	}

	conn, err := h.registry.MustGet(providerSlug)
	if err != nil {
		httpserver.RespondProblemFromRequest(w, r, httpserver.CodeNotFound, "unknown provider", nil)
		return
	}

	draft, err := conn.ExchangeToken(r.Context(), connector.ExchangeParams{
		Code:        code,
		RedirectURI: h.redirectURI(providerSlug),
		TenantID:    st.TenantID,
	})
	if err != nil {
		h.respondConnectorError(w, r, err)
		return
	}

	created, err := h.creds.Create(r.Context(), st.TenantID, providerSlug, draft)
	if errors.Is(err, credential.ErrDuplicateConnection) {
		httpserver.RespondProblemFromRequest(w, r, httpserver.CodeValidationFailed, "connection already exists for this external id", nil)
		return
	}
	if err != nil {
		httpserver.LogUnexpected(h.logger, w, r, "persisting connection", err)
		return
	}

	httpserver.Respond(w, http.StatusCreated, created)
}

func (h *Handler) respondConnectorError(w http.ResponseWriter, r *http.Request, err error) {
	ce := connector.AsConnectorError(err)
	switch ce.Type {
	case connector.ErrorTypeAuthentication:
		httpserver.RespondProblemFromRequest(w, r, httpserver.CodeProviderError, "provider rejected authentication", nil)
	case connector.ErrorTypeConfiguration:
		httpserver.RespondProblemFromRequest(w, r, httpserver.CodeProviderError, "connector is misconfigured", nil)
	default:
		httpserver.RespondProblemFromRequest(w, r, httpserver.CodeProviderError, "provider request failed", nil)
	}
}
