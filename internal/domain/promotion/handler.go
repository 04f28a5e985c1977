package promotion

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/okulab/okulab-api/internal/pkg/response"
)

// CodeResponse is the public view of a promotion, looked up by code at
// checkout. Eligibility against the concrete purchase is only decided
// during enrollment.
type CodeResponse struct {
	ID             uuid.UUID  `json:"id"`
	Code           string     `json:"code"`
	AmountOffCents int64      `json:"amount_off_cents"`
	PercentOff     int        `json:"percent_off"`
	CourseID       *uuid.UUID `json:"course_id,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	Usable         bool       `json:"usable"`
}

// Handler handles promotion HTTP requests
type Handler struct {
	repo Repository
}

// NewHandler creates new promotion handler
func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// GetByCode returns the promotion behind a code
// GET /api/v1/promotions/{code}
func (h *Handler) GetByCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		response.BadRequest(w, "promotion code is required")
		return
	}

	promo, err := h.repo.GetByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, ErrPromotionNotFound) {
			response.NotFound(w, "promotion not found")
			return
		}
		response.InternalError(w)
		return
	}

	resp := CodeResponse{
		ID:             promo.ID,
		Code:           promo.Code,
		AmountOffCents: promo.AmountOffCents,
		PercentOff:     promo.PercentOff,
		Usable:         !promo.IsExpired(time.Now()) && !promo.IsExhausted(),
	}
	if promo.CourseID.Valid {
		resp.CourseID = &promo.CourseID.UUID
	}
	if promo.ExpiresAt.Valid {
		resp.ExpiresAt = &promo.ExpiresAt.Time
	}

	response.OK(w, resp)
}

// Routes returns promotion router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/{code}", h.GetByCode)
	})

	return r
}
