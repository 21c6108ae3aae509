package scoring

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akamaotto/relayhub/internal/auditlog"
	"github.com/akamaotto/relayhub/internal/httpserver"
)

// Handler serves the operator-facing grounded signal surface (§6): listing
// and promoting the signals the weak-signal engine has drafted.
type Handler struct {
	store  *Store
	audit  *auditlog.Writer
	logger *slog.Logger
}

// NewHandler builds a Handler backed by the global pool.
func NewHandler(pool *pgxpool.Pool, audit *auditlog.Writer, logger *slog.Logger) *Handler {
	return &Handler{store: NewStore(pool), audit: audit, logger: logger}
}

// Routes mounts GET /grounded-signals and PATCH /grounded-signals/{id} onto
// an already-authenticated router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	r.Patch("/{id}", h.handleUpdateStatus)
	return r
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(r.URL.Query().Get("tenant_id"))
	if err != nil {
		httpserver.RespondProblemFromRequest(w, r, httpserver.CodeValidationFailed, "invalid or missing tenant_id", nil)
		return
	}

	var status *Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := Status(raw)
		if !validStatus(s) {
			httpserver.RespondProblemFromRequest(w, r, httpserver.CodeValidationFailed, "invalid status", nil)
			return
		}
		status = &s
	}

	signals, err := h.store.List(r.Context(), tenantID, status)
	if err != nil {
		httpserver.LogUnexpected(h.logger, w, r, "listing grounded signals", err)
		return
	}
	httpserver.Respond(w, http.StatusOK, signals)
}

type updateStatusRequest struct {
	Status Status `json:"status"`
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondProblemFromRequest(w, r, httpserver.CodeValidationFailed, "invalid grounded signal id", nil)
		return
	}

	var req updateStatusRequest
	if !httpserver.Decode(w, r, &req) {
		return
	}
	if !validStatus(req.Status) {
		httpserver.RespondProblemFromRequest(w, r, httpserver.CodeValidationFailed, "invalid status", nil)
		return
	}

	gs, err := h.store.UpdateStatus(r.Context(), id, req.Status)
	switch {
	case errors.Is(err, ErrNotFound):
		httpserver.RespondProblemFromRequest(w, r, httpserver.CodeNotFound, "grounded signal not found", nil)
	case errors.Is(err, ErrInvalidTransition):
		httpserver.RespondProblemFromRequest(w, r, httpserver.CodeValidationFailed, "illegal status transition", nil)
	case err != nil:
		httpserver.LogUnexpected(h.logger, w, r, "updating grounded signal status", err)
	default:
		h.audit.LogFromRequest(r, gs.TenantID, "grounded_signal.status_update", "grounded_signal", gs.ID, []byte(`{"status":"`+string(gs.Status)+`"}`))
		httpserver.Respond(w, http.StatusOK, gs)
	}
}

func validStatus(s Status) bool {
	switch s {
	case StatusDraft, StatusRecommended, StatusActioned:
		return true
	default:
		return false
	}
}
