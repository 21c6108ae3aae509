package tenant

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akamaotto/relayhub/internal/httpserver"
)

// Handler serves the tenant CRUD surface (§6: POST/GET /api/v1/tenants).
type Handler struct {
	store  *Store
	logger *slog.Logger
}

// NewHandler builds a Handler backed by the global pool.
func NewHandler(pool *pgxpool.Pool, logger *slog.Logger) *Handler {
	return &Handler{store: NewStore(pool), logger: logger}
}

// Routes mounts the tenant endpoints onto an already-authenticated router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleGet)
	return r
}

type createRequest struct {
	Name string `json:"name"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !httpserver.Decode(w, r, &req) {
		return
	}

	t, err := h.store.Create(r.Context(), req.Name)
	if err != nil {
		httpserver.LogUnexpected(h.logger, w, r, "creating tenant", err)
		return
	}
	httpserver.Respond(w, http.StatusCreated, t)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondProblemFromRequest(w, r, httpserver.CodeValidationFailed, "invalid tenant id", nil)
		return
	}

	t, err := h.store.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		httpserver.RespondProblemFromRequest(w, r, httpserver.CodeNotFound, "tenant not found", nil)
		return
	}
	if err != nil {
		httpserver.RespondProblemFromRequest(w, r, httpserver.CodeInternalServerError, "failed to fetch tenant", nil)
		return
	}
	httpserver.Respond(w, http.StatusOK, t)
}
