package provider

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akamaotto/relayhub/internal/httpserver"
)

// Handler serves GET /providers.
type Handler struct {
	store  *Store
	logger *slog.Logger
}

// NewHandler builds a Handler backed by the global pool.
func NewHandler(pool *pgxpool.Pool, logger *slog.Logger) *Handler {
	return &Handler{store: NewStore(pool), logger: logger}
}

// Routes returns the provider catalog routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	return r
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	providers, err := h.store.List(r.Context())
	if err != nil {
		httpserver.LogUnexpected(h.logger, w, r, "listing providers", err)
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"providers": providers})
}
