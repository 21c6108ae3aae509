package signal

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akamaotto/relayhub/internal/httpserver"
	"github.com/akamaotto/relayhub/internal/operatorauth"
	"github.com/akamaotto/relayhub/pkg/cursor"
)

// Handler serves GET /signals (§6).
type Handler struct {
	store  *Store
	logger *slog.Logger
}

// NewHandler builds a Handler backed by the global pool.
func NewHandler(pool *pgxpool.Pool, logger *slog.Logger) *Handler {
	return &Handler{store: NewStore(pool), logger: logger}
}

// Routes mounts the signal listing endpoint onto an already-authenticated
// router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	return r
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := operatorauth.TenantIDFromContext(r.Context())
	if !ok {
		httpserver.RespondProblemFromRequest(w, r, httpserver.CodeUnauthorized, "missing tenant context", nil)
		return
	}

	q := r.URL.Query()
	params := ListParams{
		TenantID:     tenantID,
		ProviderSlug: q.Get("provider"),
		Kind:         Kind(q.Get("kind")),
		Cursor:       q.Get("cursor"),
	}

	if v := q.Get("connection_id"); v != "" {
		connID, err := uuid.Parse(v)
		if err != nil {
			httpserver.RespondProblemFromRequest(w, r, httpserver.CodeValidationFailed, "invalid connection_id", nil)
			return
		}
		params.ConnectionID = &connID
	}
	if v := q.Get("occurred_after"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httpserver.RespondProblemFromRequest(w, r, httpserver.CodeValidationFailed, "invalid occurred_after, must be RFC3339", nil)
			return
		}
		params.OccurredAfter = &t
	}
	if v := q.Get("occurred_before"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httpserver.RespondProblemFromRequest(w, r, httpserver.CodeValidationFailed, "invalid occurred_before, must be RFC3339", nil)
			return
		}
		params.OccurredBefore = &t
	}
	if q.Get("limit") != "" {
		params.Limit = httpserver.ParseOffsetParams(r).Limit
	}

	result, err := h.store.List(r.Context(), params)
	if cursor.IsValidationError(err) {
		httpserver.RespondProblemFromRequest(w, r, httpserver.CodeValidationFailed, err.Error(), nil)
		return
	}
	if err != nil {
		httpserver.LogUnexpected(h.logger, w, r, "listing signals", err)
		return
	}

	includePayload := q.Get("include_payload") == "true"
	if !includePayload {
		for i := range result.Signals {
			result.Signals[i].Payload = nil
		}
	}

	resp := map[string]any{"signals": result.Signals}
	if result.NextCursor != "" {
		resp["next_cursor"] = result.NextCursor
	}
	httpserver.Respond(w, http.StatusOK, resp)
}
