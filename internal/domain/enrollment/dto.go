package enrollment

import (
	"time"

	"github.com/google/uuid"
)

// EnrollRequest for POST /enrollments
type EnrollRequest struct {
	StudentID    uuid.UUID   `json:"student_id" validate:"required"`
	ClassIDs     []uuid.UUID `json:"class_ids" validate:"required,min=1"`
	WholeSeries  bool        `json:"whole_series"`
	PromotionID  *uuid.UUID  `json:"promotion_id,omitempty"`
	CreditCents  int64       `json:"credit_cents" validate:"gte=0"`
	PaymentNonce string      `json:"payment_method_nonce,omitempty"`
}

// TrialEnrollRequest for POST /enrollments/trial
type TrialEnrollRequest struct {
	StudentID uuid.UUID `json:"student_id" validate:"required"`
	ClassID   uuid.UUID `json:"class_id" validate:"required"`
}

// EnrollmentResponse represents one enrollment in API
type EnrollmentResponse struct {
	ID                   uuid.UUID  `json:"id"`
	StudentID            uuid.UUID  `json:"student_id"`
	ClassID              uuid.UUID  `json:"class_id"`
	Source               string     `json:"source,omitempty"`
	Campaign             string     `json:"campaign,omitempty"`
	PromotionID          *uuid.UUID `json:"promotion_id,omitempty"`
	PaymentTransactionID *uuid.UUID `json:"payment_transaction_id,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

// ReceiptResponse represents a completed purchase in API
type ReceiptResponse struct {
	Enrollments          []EnrollmentResponse `json:"enrollments"`
	Shape                string               `json:"shape"`
	ListTotalCents       int64                `json:"list_total_cents"`
	DiscountCents        int64                `json:"discount_cents"`
	CreditUsedCents      int64                `json:"credit_used_cents"`
	ChargedCents         int64                `json:"charged_cents"`
	PaymentTransactionID *uuid.UUID           `json:"payment_transaction_id,omitempty"`
}

// EnrollmentResponseFromEntity converts an enrollment to response
func EnrollmentResponseFromEntity(e *Enrollment) EnrollmentResponse {
	resp := EnrollmentResponse{
		ID:        e.ID,
		StudentID: e.StudentID,
		ClassID:   e.ClassID,
		Source:    e.Source,
		Campaign:  e.Campaign,
		CreatedAt: e.CreatedAt,
	}

	if e.PromotionID.Valid {
		resp.PromotionID = &e.PromotionID.UUID
	}
	if e.PaymentTransactionID.Valid {
		resp.PaymentTransactionID = &e.PaymentTransactionID.UUID
	}

	return resp
}

// ReceiptResponseFromReceipt converts a purchase receipt to response
func ReceiptResponseFromReceipt(r *Receipt) *ReceiptResponse {
	resp := &ReceiptResponse{
		Enrollments:     make([]EnrollmentResponse, 0, len(r.Enrollments)),
		Shape:           string(r.Quote.Shape),
		ListTotalCents:  r.Quote.TotalCents,
		DiscountCents:   r.DiscountCents,
		CreditUsedCents: r.CreditUsedCents,
		ChargedCents:    r.ChargedCents,
	}

	for i := range r.Enrollments {
		resp.Enrollments = append(resp.Enrollments, EnrollmentResponseFromEntity(&r.Enrollments[i]))
	}

	if r.Payment != nil {
		resp.PaymentTransactionID = &r.Payment.ID
	}

	return resp
}
