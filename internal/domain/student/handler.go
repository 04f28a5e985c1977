package student

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/okulab/okulab-api/internal/middleware"
	"github.com/okulab/okulab-api/internal/pkg/response"
)

// Response represents a student in API responses
type Response struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
}

// Handler handles student HTTP requests
type Handler struct {
	repo Repository
}

// NewHandler creates new student handler
func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// List returns the caller's students
// GET /api/v1/students
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountID(r.Context())
	if accountID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	students, err := h.repo.ListByAccount(r.Context(), accountID)
	if err != nil {
		response.InternalError(w)
		return
	}

	items := make([]Response, 0, len(students))
	for _, s := range students {
		items = append(items, Response{ID: s.ID, FullName: s.FullName, CreatedAt: s.CreatedAt})
	}

	response.OK(w, map[string]interface{}{
		"items": items,
		"total": len(items),
	})
}

// Routes returns student router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.List)
	})

	return r
}
