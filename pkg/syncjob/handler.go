package syncjob

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akamaotto/relayhub/internal/httpserver"
)

// Handler serves GET /sync-jobs (§6's operator visibility surface).
type Handler struct {
	store  *Store
	logger *slog.Logger
}

// NewHandler builds a Handler backed by the global pool.
func NewHandler(pool *pgxpool.Pool, logger *slog.Logger) *Handler {
	return &Handler{store: NewStore(pool), logger: logger}
}

// Routes mounts the sync job listing endpoint onto an already-authenticated
// router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	return r
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var connectionID *uuid.UUID
	if v := q.Get("connection_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			httpserver.RespondProblemFromRequest(w, r, httpserver.CodeValidationFailed, "invalid connection_id", nil)
			return
		}
		connectionID = &id
	}

	var status *Status
	if v := q.Get("status"); v != "" {
		s := Status(v)
		status = &s
	}

	jobs, err := h.store.List(r.Context(), connectionID, status)
	if err != nil {
		httpserver.LogUnexpected(h.logger, w, r, "listing sync jobs", err)
		return
	}

	page := httpserver.ParseOffsetParams(r)
	start := page.Offset
	if start > len(jobs) {
		start = len(jobs)
	}
	end := start + page.Limit
	if end > len(jobs) {
		end = len(jobs)
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"sync_jobs": jobs[start:end], "total": len(jobs)})
}
