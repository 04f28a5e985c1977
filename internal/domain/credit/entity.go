package credit

import (
	"time"

	"github.com/google/uuid"
)

// Type classifies ledger entries.
type Type string

const (
	// TypePurchase marks a consumption entry written when credit offsets a
	// purchase price. Always negative.
	TypePurchase Type = "purchase"
	// TypeReferral marks a referral bonus granted to a referring account.
	// Always positive.
	TypeReferral Type = "referral"
)

// Credit is one immutable ledger entry. An account's balance is the sum of
// its entries; nothing is ever updated in place.
type Credit struct {
	ID          uuid.UUID     `db:"id"`
	AccountID   uuid.UUID     `db:"account_id"`
	AmountCents int64         `db:"amount_cents"`
	Type        Type          `db:"type"`
	StudentID   uuid.NullUUID `db:"student_id"`
	ClassID     uuid.NullUUID `db:"class_id"`
	Note        string        `db:"note"`
	CreatedAt   time.Time     `db:"created_at"`
}
