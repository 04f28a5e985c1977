package catalog

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/okulab/okulab-api/internal/pkg/response"
)

// ClassResponse represents a class with its course in API responses
type ClassResponse struct {
	ID         uuid.UUID `json:"id"`
	CourseID   uuid.UUID `json:"course_id"`
	Title      string    `json:"title"`
	Level      int       `json:"level"`
	IsTrial    bool      `json:"is_trial"`
	PriceCents int64     `json:"price_cents"`
	StartsAt   time.Time `json:"starts_at"`
	EndsAt     time.Time `json:"ends_at"`
}

func classResponseFromRow(row *ClassWithCourse) *ClassResponse {
	return &ClassResponse{
		ID:         row.ClassID,
		CourseID:   row.CourseID,
		Title:      row.Title,
		Level:      row.Level,
		IsTrial:    row.IsTrial,
		PriceCents: row.PriceCents,
		StartsAt:   row.StartsAt,
		EndsAt:     row.EndsAt,
	}
}

// Handler handles catalog HTTP requests
type Handler struct {
	repo Repository
}

// NewHandler creates new catalog handler
func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// List returns upcoming classes
// GET /api/v1/classes
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	rows, err := h.repo.ListUpcoming(r.Context(), limit)
	if err != nil {
		response.InternalError(w)
		return
	}

	items := make([]*ClassResponse, 0, len(rows))
	for i := range rows {
		items = append(items, classResponseFromRow(&rows[i]))
	}

	response.OK(w, map[string]interface{}{
		"items": items,
		"total": len(items),
	})
}

// Get returns a single class
// GET /api/v1/classes/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid class id")
		return
	}

	row, err := h.repo.GetClassWithCourse(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrClassNotFound) {
			response.NotFound(w, "class not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, classResponseFromRow(row))
}

// Routes returns catalog router. Class reads are public.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Get("/{id}", h.Get)

	return r
}
