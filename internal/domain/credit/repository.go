package credit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const queryTimeout = 3 * time.Second

// Repository defines credit ledger access. The ledger is append-only;
// an account's balance is always derived by summing its entries.
type Repository interface {
	Balance(ctx context.Context, accountID uuid.UUID) (int64, error)
	// BalanceTx locks the account row before summing, so concurrent
	// spenders of the same account serialize on the lock.
	BalanceTx(ctx context.Context, tx *sqlx.Tx, accountID uuid.UUID) (int64, error)
	InsertTx(ctx context.Context, tx *sqlx.Tx, entry *Credit) error
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]Credit, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new credit repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Balance(ctx context.Context, accountID uuid.UUID) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var balance int64
	err := r.db.GetContext(ctx, &balance, `
		SELECT COALESCE(SUM(amount_cents), 0)
		FROM credits WHERE account_id = $1
	`, accountID)
	if err != nil {
		return 0, fmt.Errorf("credit repository balance: %w", err)
	}

	return balance, nil
}

func (r *repository) BalanceTx(ctx context.Context, tx *sqlx.Tx, accountID uuid.UUID) (int64, error) {
	var lockedID uuid.UUID
	if err := tx.GetContext(ctx, &lockedID, `
		SELECT id FROM accounts WHERE id = $1 FOR UPDATE
	`, accountID); err != nil {
		return 0, fmt.Errorf("credit repository lock account: %w", err)
	}

	var balance int64
	err := tx.GetContext(ctx, &balance, `
		SELECT COALESCE(SUM(amount_cents), 0)
		FROM credits WHERE account_id = $1
	`, accountID)
	if err != nil {
		return 0, fmt.Errorf("credit repository balance: %w", err)
	}

	return balance, nil
}

func (r *repository) InsertTx(ctx context.Context, tx *sqlx.Tx, entry *Credit) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO credits (id, account_id, amount_cents, type, student_id, class_id, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.ID, entry.AccountID, entry.AmountCents, entry.Type, entry.StudentID, entry.ClassID, entry.Note)
	if err != nil {
		return fmt.Errorf("credit repository insert: %w", err)
	}

	return nil
}

func (r *repository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]Credit, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}

	entries := make([]Credit, 0)
	err := r.db.SelectContext(ctx, &entries, `
		SELECT id, account_id, amount_cents, type, student_id, class_id, note, created_at
		FROM credits
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("credit repository list: %w", err)
	}

	return entries, nil
}
