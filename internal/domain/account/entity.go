package account

import (
	"time"

	"github.com/google/uuid"
)

// Account represents a parent account. An account owns students, holds the
// credit ledger and carries the paid flag used for referral rewards.
type Account struct {
	ID        uuid.UUID     `db:"id"`
	Email     string        `db:"email"`
	Paid      bool          `db:"paid"`
	RefererID uuid.NullUUID `db:"referer_id"`
	CreatedAt time.Time     `db:"created_at"`
	UpdatedAt time.Time     `db:"updated_at"`
}

// HasReferer returns true if the account was referred by another account
func (a *Account) HasReferer() bool {
	return a.RefererID.Valid
}
