package credit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/okulab/okulab-api/internal/middleware"
	"github.com/okulab/okulab-api/internal/pkg/response"
)

// EntryResponse represents a ledger entry in API responses
type EntryResponse struct {
	ID          uuid.UUID  `json:"id"`
	AmountCents int64      `json:"amount_cents"`
	Type        Type       `json:"type"`
	StudentID   *uuid.UUID `json:"student_id,omitempty"`
	ClassID     *uuid.UUID `json:"class_id,omitempty"`
	Note        string     `json:"note"`
	CreatedAt   time.Time  `json:"created_at"`
}

func entryResponseFromCredit(c *Credit) EntryResponse {
	resp := EntryResponse{
		ID:          c.ID,
		AmountCents: c.AmountCents,
		Type:        c.Type,
		Note:        c.Note,
		CreatedAt:   c.CreatedAt,
	}
	if c.StudentID.Valid {
		id := c.StudentID.UUID
		resp.StudentID = &id
	}
	if c.ClassID.Valid {
		id := c.ClassID.UUID
		resp.ClassID = &id
	}
	return resp
}

// Handler handles credit HTTP requests
type Handler struct {
	ledger *Ledger
}

// NewHandler creates new credit handler
func NewHandler(ledger *Ledger) *Handler {
	return &Handler{ledger: ledger}
}

// Balance returns the caller's credit balance
// GET /api/v1/credits/balance
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountID(r.Context())
	if accountID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	balance, err := h.ledger.Balance(r.Context(), accountID)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]int64{"balance_cents": balance})
}

// List returns the caller's ledger entries
// GET /api/v1/credits
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountID(r.Context())
	if accountID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	entries, err := h.ledger.List(r.Context(), accountID, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}

	items := make([]EntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, entryResponseFromCredit(&entries[i]))
	}

	response.OK(w, map[string]interface{}{
		"items": items,
		"total": len(items),
	})
}

// Routes returns credit router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.List)
		r.Get("/balance", h.Balance)
	})

	return r
}
