package webhook

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/akamaotto/relayhub/internal/httpserver"
	"github.com/akamaotto/relayhub/internal/operatorauth"
	"github.com/akamaotto/relayhub/pkg/credential"
	"github.com/akamaotto/relayhub/pkg/provider"
	"github.com/akamaotto/relayhub/pkg/syncjob"
)

// VerifierSet maps a provider slug to the Verifier that authenticates its
// public-route requests. A provider absent from the set cannot be called on
// the public route: Ingress responds UNAUTHORIZED rather than silently
// accepting (§4.8).
type VerifierSet map[string]Verifier

// Handler serves the webhook ingress surface (§4.8, §6): the
// operator-authenticated route and the public tenant-scoped route.
type Handler struct {
	verifiers   VerifierSet
	providers   *provider.Store
	connections *credential.Store
	jobs        *syncjob.Store
	operator    *operatorauth.Authenticator
	maxBodyKB   int
	logger      *slog.Logger
}

// NewHandler builds a Handler.
func NewHandler(verifiers VerifierSet, providers *provider.Store, connections *credential.Store, jobs *syncjob.Store, operator *operatorauth.Authenticator, maxBodyKB int, logger *slog.Logger) *Handler {
	return &Handler{
		verifiers:   verifiers,
		providers:   providers,
		connections: connections,
		jobs:        jobs,
		operator:    operator,
		maxBodyKB:   maxBodyKB,
		logger:      logger,
	}
}

// PublicRoutes returns the public, tenant-scoped webhook routes
// (POST /{provider}/{tenant_id}), mounted unauthenticated: the per-provider
// Verifier is what authenticates these requests.
func (h *Handler) PublicRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/{provider}/{tenant_id}", h.handlePublic)
	return r
}

// OperatorRoutes returns the operator-authenticated webhook routes
// (POST /{provider}), meant to be mounted under operatorauth.Middleware:
// the bearer token and X-Tenant-Id header already authenticated the
// caller, so no signature verification runs.
func (h *Handler) OperatorRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/{provider}", h.handleOperator)
	return r
}

func (h *Handler) handleOperator(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := operatorauth.TenantIDFromContext(r.Context())
	if !ok {
		httpserver.RespondProblemFromRequest(w, r, httpserver.CodeUnauthorized, "missing tenant context", nil)
		return
	}

	providerSlug := chi.URLParam(r, "provider")
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	h.ingest(w, r, tenantID, providerSlug, body, MethodOperatorBypass)
}

func (h *Handler) handlePublic(w http.ResponseWriter, r *http.Request) {
	providerSlug := chi.URLParam(r, "provider")
	tenantID, err := uuid.Parse(chi.URLParam(r, "tenant_id"))
	if err != nil {
		httpserver.RespondProblemFromRequest(w, r, httpserver.CodeValidationFailed, "invalid tenant id", nil)
		return
	}

	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	if h.operator != nil && h.operator.HasBypass(r) {
		h.ingest(w, r, tenantID, providerSlug, body, MethodOperatorBypass)
		return
	}

	v, configured := h.verifiers[providerSlug]
	if !configured {
		httpserver.RespondProblemFromRequest(w, r, httpserver.CodeUnauthorized, "no webhook verifier configured for this provider", nil)
		return
	}

	if err := v.Verify(r, body); err != nil {
		if errors.Is(err, ErrReplay) {
			httpserver.RespondProblemFromRequest(w, r, httpserver.CodeReplayAttackDetected, "webhook timestamp outside replay tolerance", nil)
			return
		}
		if errors.Is(err, ErrPayloadTooLarge) {
			httpserver.RespondProblemFromRequest(w, r, httpserver.CodePayloadTooLarge, "webhook payload exceeds maximum size", nil)
			return
		}
		httpserver.RespondProblemFromRequest(w, r, httpserver.CodeInvalidSignature, "webhook signature verification failed", nil)
		return
	}

	h.ingest(w, r, tenantID, providerSlug, body, v.Method())
}

func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	limit := int64(h.maxBodyKB) * 1024
	if limit <= 0 {
		limit = 256 * 1024
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httpserver.RespondProblemFromRequest(w, r, httpserver.CodePayloadTooLarge, "webhook body too large", nil)
			return nil, false
		}
		httpserver.RespondProblemFromRequest(w, r, httpserver.CodeValidationFailed, "failed to read webhook body", nil)
		return nil, false
	}
	return body, true
}

// ingest runs the §4.8 ingress workflow against an already-verified
// request: look up the provider, optionally resolve a connection, sanitize
// headers, and enqueue a webhook sync job.
func (h *Handler) ingest(w http.ResponseWriter, r *http.Request, tenantID uuid.UUID, providerSlug string, body []byte, method VerificationMethod) {
	if _, err := h.providers.Get(r.Context(), providerSlug); err != nil {
		if errors.Is(err, provider.ErrNotFound) {
			httpserver.RespondProblemFromRequest(w, r, httpserver.CodeNotFound, "unknown provider", nil)
			return
		}
		httpserver.LogUnexpected(h.logger, w, r, "looking up provider", err)
		return
	}

	var connectionID *uuid.UUID
	if raw := r.Header.Get("X-Connection-Id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpserver.RespondProblemFromRequest(w, r, httpserver.CodeValidationFailed, "invalid X-Connection-Id header", nil)
			return
		}
		conn, err := h.connections.Get(r.Context(), tenantID, id)
		if errors.Is(err, credential.ErrNotFound) || (err == nil && conn.ProviderSlug != providerSlug) {
			httpserver.RespondProblemFromRequest(w, r, httpserver.CodeNotFound, "connection not found for this tenant and provider", nil)
			return
		}
		if err != nil {
			httpserver.LogUnexpected(h.logger, w, r, "resolving webhook connection", err)
			return
		}
		connectionID = &id
	}

	var payload map[string]any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			httpserver.RespondProblemFromRequest(w, r, httpserver.CodeValidationFailed, "webhook body is not valid JSON", nil)
			return
		}
	}

	envelope := map[string]any{
		"webhook_headers":     sanitizeHeaders(r.Header),
		"webhook_payload":     payload,
		"received_at":         time.Now().UTC().Format(time.RFC3339),
		"verification_method": string(method),
		"auth_header":         r.Header.Get("Authorization"),
	}

	if _, err := h.jobs.EnqueueWebhook(r.Context(), tenantID, connectionID, providerSlug, envelope); err != nil {
		httpserver.LogUnexpected(h.logger, w, r, "enqueuing webhook job", err)
		return
	}

	httpserver.Respond(w, http.StatusAccepted, map[string]any{"status": "accepted"})
}
