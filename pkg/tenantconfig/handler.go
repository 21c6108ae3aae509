package tenantconfig

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akamaotto/relayhub/internal/httpserver"
)

// Handler serves PUT /tenants/{id}/signal-config (§6).
type Handler struct {
	store  *Store
	logger *slog.Logger
}

// NewHandler builds a Handler backed by the global pool.
func NewHandler(pool *pgxpool.Pool, logger *slog.Logger) *Handler {
	return &Handler{store: NewStore(pool), logger: logger}
}

// Routes mounts the signal-config endpoints onto an already-authenticated
// router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{id}/signal-config", h.handleGet)
	r.Put("/{id}/signal-config", h.handleUpdate)
	return r
}

type updateRequest struct {
	WeakSignalThreshold float64        `json:"weak_signal_threshold"`
	ScoringWeights      ScoringWeights `json:"scoring_weights"`
	WebhookURL          string         `json:"webhook_url"`
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondProblemFromRequest(w, r, httpserver.CodeValidationFailed, "invalid tenant id", nil)
		return
	}

	cfg, err := h.store.Get(r.Context(), id)
	if err != nil {
		httpserver.LogUnexpected(h.logger, w, r, "fetching tenant signal config", err)
		return
	}
	httpserver.Respond(w, http.StatusOK, cfg)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondProblemFromRequest(w, r, httpserver.CodeValidationFailed, "invalid tenant id", nil)
		return
	}

	var req updateRequest
	if !httpserver.Decode(w, r, &req) {
		return
	}

	cfg, err := h.store.Upsert(r.Context(), Config{
		TenantID:            id,
		WeakSignalThreshold: req.WeakSignalThreshold,
		ScoringWeights:      req.ScoringWeights,
		WebhookURL:          req.WebhookURL,
	})
	if err != nil {
		httpserver.LogUnexpected(h.logger, w, r, "updating tenant signal config", err)
		return
	}
	httpserver.Respond(w, http.StatusOK, cfg)
}
