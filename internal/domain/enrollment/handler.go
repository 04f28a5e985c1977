package enrollment

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/okulab/okulab-api/internal/domain/account"
	"github.com/okulab/okulab-api/internal/domain/catalog"
	"github.com/okulab/okulab-api/internal/domain/credit"
	"github.com/okulab/okulab-api/internal/domain/promotion"
	"github.com/okulab/okulab-api/internal/domain/student"
	"github.com/okulab/okulab-api/internal/middleware"
	"github.com/okulab/okulab-api/internal/pkg/response"
	"github.com/okulab/okulab-api/internal/pkg/validator"
)

// Handler handles enrollment HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates new enrollment handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Enroll handles POST /enrollments
func (h *Handler) Enroll(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountID(r.Context())
	if accountID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req EnrollRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	receipt, err := h.service.Enroll(r.Context(), accountID, &req, attributionFromContext(r))
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, ReceiptResponseFromReceipt(receipt))
}

// EnrollTrial handles POST /enrollments/trial
func (h *Handler) EnrollTrial(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountID(r.Context())
	if accountID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req TrialEnrollRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	e, err := h.service.EnrollTrial(r.Context(), accountID, &req, attributionFromContext(r))
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, EnrollmentResponseFromEntity(e))
}

// List handles GET /enrollments
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountID(r.Context())
	if accountID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	enrollments, err := h.service.ListByAccount(r.Context(), accountID, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}

	items := make([]EnrollmentResponse, 0, len(enrollments))
	for i := range enrollments {
		items = append(items, EnrollmentResponseFromEntity(&enrollments[i]))
	}

	response.OK(w, map[string]interface{}{
		"items": items,
		"total": len(items),
	})
}

// Routes returns enrollment router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/", h.Enroll)
		r.Post("/trial", h.EnrollTrial)
		r.Get("/", h.List)
	})

	return r
}

func attributionFromContext(r *http.Request) Attribution {
	return Attribution{
		Source:   middleware.GetAttributionSource(r.Context()),
		Campaign: middleware.GetAttributionCampaign(r.Context()),
	}
}

// writeError maps purchase flow failures to HTTP responses. Both enroll
// endpoints surface the same error set.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, student.ErrStudentNotFound):
		response.NotFound(w, "student not found")
	case errors.Is(err, catalog.ErrClassNotFound):
		response.NotFound(w, "class not found")
	case errors.Is(err, promotion.ErrPromotionNotFound):
		response.NotFound(w, "promotion not found")
	case errors.Is(err, account.ErrAccountNotFound):
		response.NotFound(w, "account not found")
	case errors.Is(err, ErrEmptyClassList):
		response.BadRequest(w, "class_ids must not be empty")
	case errors.Is(err, ErrNotTrialCourse):
		response.BadRequest(w, "class does not belong to a trial course")
	case errors.Is(err, ErrMissingPaymentNonce):
		response.BadRequest(w, "payment_method_nonce is required when an amount is due")
	case errors.Is(err, credit.ErrInvalidAmount):
		response.BadRequest(w, "credit_cents must not be negative")
	case errors.Is(err, credit.ErrInsufficientCredit):
		response.BadRequest(w, "requested credit exceeds the account balance")
	case errors.Is(err, promotion.ErrPromotionExpired):
		response.BadRequest(w, "promotion expired")
	case errors.Is(err, promotion.ErrPromotionExhausted):
		response.BadRequest(w, "promotion usage limit reached")
	case errors.Is(err, promotion.ErrPromotionNotEligible):
		response.BadRequest(w, "promotion is not eligible for this purchase")
	case errors.Is(err, ErrPaymentFailed):
		response.PaymentRequired(w, "payment was declined")
	case errors.Is(err, ErrAlreadyEnrolled):
		response.Conflict(w, "student is already enrolled in one of these classes")
	case IsTxAbort(err):
		response.Conflict(w, "purchase conflicted with a concurrent request, retry")
	default:
		response.InternalError(w)
	}
}
