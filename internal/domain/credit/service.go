package credit

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Ledger authorizes and consumes stored account credit.
type Ledger struct {
	repo Repository
}

// NewLedger creates new credit ledger service
func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo}
}

// Balance returns the account's current balance in cents
func (l *Ledger) Balance(ctx context.Context, accountID uuid.UUID) (int64, error) {
	return l.repo.Balance(ctx, accountID)
}

// List returns the account's ledger entries, newest first
func (l *Ledger) List(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]Credit, error) {
	return l.repo.ListByAccount(ctx, accountID, limit, offset)
}

// ConsumeTx applies requested credit to a price inside the caller's
// transaction. The requested amount must not exceed the balance read under
// the account lock; that check fails before anything is written. Consumed
// is min(requested, price). Returns the consumption entry (nil when nothing
// was consumed) and the price after consumption.
func (l *Ledger) ConsumeTx(ctx context.Context, tx *sqlx.Tx, accountID uuid.UUID, priceCents, requestedCents int64, studentID, classID uuid.UUID) (*Credit, int64, error) {
	if requestedCents < 0 {
		return nil, 0, ErrInvalidAmount
	}
	if requestedCents == 0 {
		return nil, priceCents, nil
	}

	balance, err := l.repo.BalanceTx(ctx, tx, accountID)
	if err != nil {
		return nil, 0, err
	}
	if requestedCents > balance {
		return nil, 0, ErrInsufficientCredit
	}

	consumed := requestedCents
	if consumed > priceCents {
		consumed = priceCents
	}
	if consumed == 0 {
		return nil, priceCents, nil
	}

	entry := &Credit{
		ID:          uuid.New(),
		AccountID:   accountID,
		AmountCents: -consumed,
		Type:        TypePurchase,
		StudentID:   uuid.NullUUID{UUID: studentID, Valid: true},
		ClassID:     uuid.NullUUID{UUID: classID, Valid: true},
		Note:        "credit applied to enrollment",
	}
	if err := l.repo.InsertTx(ctx, tx, entry); err != nil {
		return nil, 0, err
	}

	return entry, priceCents - consumed, nil
}

// GrantReferralTx writes a referral bonus entry for the referring account
// inside the caller's transaction.
func (l *Ledger) GrantReferralTx(ctx context.Context, tx *sqlx.Tx, refererID uuid.UUID, bonusCents int64, note string) (*Credit, error) {
	entry := &Credit{
		ID:          uuid.New(),
		AccountID:   refererID,
		AmountCents: bonusCents,
		Type:        TypeReferral,
		Note:        note,
	}
	if err := l.repo.InsertTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	return entry, nil
}
