package credential

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akamaotto/relayhub/internal/auditlog"
	"github.com/akamaotto/relayhub/internal/crypto"
	"github.com/akamaotto/relayhub/internal/httpserver"
	"github.com/akamaotto/relayhub/internal/operatorauth"
	"github.com/akamaotto/relayhub/pkg/connector"
	"github.com/akamaotto/relayhub/pkg/syncjob"
)

// Handler serves the connection operator surface (§6): listing, revoking,
// and force-syncing connections.
type Handler struct {
	store    *Store
	registry *connector.Registry
	jobs     *syncjob.Store
	audit    *auditlog.Writer
	logger   *slog.Logger
}

// NewHandler builds a Handler backed by the global pool.
func NewHandler(pool *pgxpool.Pool, envelope *crypto.Envelope, registry *connector.Registry, jobs *syncjob.Store, audit *auditlog.Writer, logger *slog.Logger) *Handler {
	return &Handler{store: NewStore(pool, envelope), registry: registry, jobs: jobs, audit: audit, logger: logger}
}

// Routes mounts the connection endpoints onto an already-authenticated
// router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	r.Delete("/{id}", h.handleRevoke)
	r.Post("/{id}/sync", h.handleForceSync)
	return r
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := operatorauth.TenantIDFromContext(r.Context())
	if !ok {
		httpserver.RespondProblemFromRequest(w, r, httpserver.CodeUnauthorized, "missing tenant context", nil)
		return
	}

	conns, err := h.store.List(r.Context(), tenantID, r.URL.Query().Get("provider"))
	if err != nil {
		httpserver.LogUnexpected(h.logger, w, r, "listing connections", err)
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"connections": conns})
}

// handleRevoke implements §6's DELETE /connections/{id}: marks the
// connection revoked, best-effort asks the connector to revoke upstream
// if it supports that capability, and cancels any still-queued sync jobs.
func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := operatorauth.TenantIDFromContext(r.Context())
	if !ok {
		httpserver.RespondProblemFromRequest(w, r, httpserver.CodeUnauthorized, "missing tenant context", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondProblemFromRequest(w, r, httpserver.CodeValidationFailed, "invalid connection id", nil)
		return
	}

	conn, err := h.store.Get(r.Context(), tenantID, id)
	if errors.Is(err, ErrNotFound) {
		httpserver.RespondProblemFromRequest(w, r, httpserver.CodeNotFound, "connection not found", nil)
		return
	}
	if err != nil {
		httpserver.LogUnexpected(h.logger, w, r, "fetching connection", err)
		return
	}

	if c, err := h.registry.MustGet(conn.ProviderSlug); err == nil {
		if revoker, ok := c.(connector.Revoker); ok {
			access, refresh, derr := h.store.Decrypt(conn)
			if derr == nil {
				view := connector.ConnectionView{
					ID: conn.ID, TenantID: conn.TenantID, ExternalID: conn.ExternalID,
					AccessToken: access, RefreshToken: refresh, ExpiresAt: conn.ExpiresAt, Metadata: conn.Metadata,
				}
				if rerr := revoker.Revoke(r.Context(), view); rerr != nil {
					h.logger.Warn("connector revoke failed, continuing with local revocation", "connection_id", id, "error", rerr)
				}
			}
		}
	}

	if err := h.store.UpdateStatus(r.Context(), id, StatusRevoked); err != nil {
		httpserver.LogUnexpected(h.logger, w, r, "revoking connection", err)
		return
	}
	if err := h.jobs.CancelQueued(r.Context(), id); err != nil {
		httpserver.LogUnexpected(h.logger, w, r, "cancelling queued jobs", err)
		return
	}
	h.audit.LogFromRequest(r, tenantID, "connection.revoke", "connection", id, nil)
	httpserver.Respond(w, http.StatusOK, map[string]any{"status": "revoked"})
}

// handleForceSync implements §6's POST /connections/{id}/sync: enqueues an
// incremental job outside the scheduler's cadence, 400 VALIDATION_FAILED if
// one is already live.
func (h *Handler) handleForceSync(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := operatorauth.TenantIDFromContext(r.Context())
	if !ok {
		httpserver.RespondProblemFromRequest(w, r, httpserver.CodeUnauthorized, "missing tenant context", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondProblemFromRequest(w, r, httpserver.CodeValidationFailed, "invalid connection id", nil)
		return
	}

	conn, err := h.store.Get(r.Context(), tenantID, id)
	if errors.Is(err, ErrNotFound) {
		httpserver.RespondProblemFromRequest(w, r, httpserver.CodeNotFound, "connection not found", nil)
		return
	}
	if err != nil {
		httpserver.LogUnexpected(h.logger, w, r, "fetching connection", err)
		return
	}

	live, err := h.jobs.HasLiveIncremental(r.Context(), id)
	if err != nil {
		httpserver.LogUnexpected(h.logger, w, r, "checking live incremental job", err)
		return
	}
	if live {
		httpserver.RespondProblemFromRequest(w, r, httpserver.CodeValidationFailed, "an incremental sync job is already live for this connection", nil)
		return
	}

	job, err := h.jobs.Enqueue(r.Context(), tenantID, id, conn.ProviderSlug, syncjob.JobTypeIncremental, 0, time.Now())
	if errors.Is(err, syncjob.ErrJobAlreadyLive) {
		httpserver.RespondProblemFromRequest(w, r, httpserver.CodeValidationFailed, "an incremental sync job is already live for this connection", nil)
		return
	}
	if err != nil {
		httpserver.LogUnexpected(h.logger, w, r, "enqueuing forced sync", err)
		return
	}
	h.audit.LogFromRequest(r, tenantID, "connection.force_sync", "connection", id, nil)
	httpserver.Respond(w, http.StatusAccepted, job)
}
