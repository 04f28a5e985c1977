package promotion

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Promotion represents a discount code. Counts tracks confirmed uses; a
// MaxUses of zero means unlimited. A promotion restricted to a course only
// applies when that course is the main selection.
type Promotion struct {
	ID                uuid.UUID     `db:"id"`
	Code              string        `db:"code"`
	AmountOffCents    int64         `db:"amount_off_cents"`
	PercentOff        int           `db:"percent_off"`
	MaxUses           int           `db:"max_uses"`
	Counts            int           `db:"counts"`
	CourseID          uuid.NullUUID `db:"course_id"`
	FirstPurchaseOnly bool          `db:"first_purchase_only"`
	ExpiresAt         sql.NullTime  `db:"expires_at"`
	CreatedAt         time.Time     `db:"created_at"`
	UpdatedAt         time.Time     `db:"updated_at"`
}

// IsExpired returns true if the promotion has an expiry in the past
func (p *Promotion) IsExpired(now time.Time) bool {
	return p.ExpiresAt.Valid && p.ExpiresAt.Time.Before(now)
}

// IsExhausted returns true if a capped promotion has no uses left
func (p *Promotion) IsExhausted() bool {
	return p.MaxUses > 0 && p.Counts >= p.MaxUses
}

// Discount returns the price after applying the promotion. Whole-series
// purchases are discounted by percentage, every other shape by the flat
// amount. The result never goes below zero.
func (p *Promotion) Discount(totalCents int64, wholeSeries bool) int64 {
	var discounted int64
	if wholeSeries {
		discounted = totalCents - totalCents*int64(p.PercentOff)/100
	} else {
		discounted = totalCents - p.AmountOffCents
	}

	if discounted < 0 {
		return 0
	}
	return discounted
}
