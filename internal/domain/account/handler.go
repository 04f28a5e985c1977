package account

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/okulab/okulab-api/internal/middleware"
	"github.com/okulab/okulab-api/internal/pkg/response"
)

// Handler handles account HTTP requests
type Handler struct {
	repo Repository
}

// NewHandler creates new account handler
func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// Me returns the authenticated account
// GET /api/v1/accounts/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountID(r.Context())
	if accountID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	acct, err := h.repo.GetByID(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			response.NotFound(w, "account not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, acct.ToResponse())
}

// Routes returns account router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/me", h.Me)
	})

	return r
}
