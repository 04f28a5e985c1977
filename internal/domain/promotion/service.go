package promotion

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/okulab/okulab-api/internal/domain/account"
	"github.com/okulab/okulab-api/internal/domain/catalog"
)

// Validator checks whether a promotion may price a purchase.
type Validator struct {
	repo Repository
}

// NewValidator creates new promotion validator
func NewValidator(repo Repository) *Validator {
	return &Validator{repo: repo}
}

// Validate resolves a promotion and applies its eligibility rules against
// the purchasing account and the main course of the selection. A promotion
// id was supplied explicitly, so every rejection is a hard failure of the
// purchase rather than a silent skip.
//
// The exhausted check here is a fast pre-check; the binding check happens in
// ConsumeTx under the row lock.
func (v *Validator) Validate(ctx context.Context, id uuid.UUID, acct *account.Account, main *catalog.ClassWithCourse) (*Promotion, error) {
	p, err := v.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if p.IsExpired(time.Now()) {
		return nil, ErrPromotionExpired
	}
	if p.IsExhausted() {
		return nil, ErrPromotionExhausted
	}
	if p.CourseID.Valid && p.CourseID.UUID != main.CourseID {
		return nil, ErrPromotionNotEligible
	}
	if p.FirstPurchaseOnly && acct.Paid {
		return nil, ErrPromotionNotEligible
	}

	return p, nil
}

// ConsumeTx takes one use of the promotion inside the caller's transaction.
// Returns ErrPromotionExhausted when a concurrent purchase claimed the last
// use between Validate and here.
func (v *Validator) ConsumeTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	return v.repo.ConsumeTx(ctx, tx, id)
}
