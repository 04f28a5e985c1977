package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const queryTimeout = 3 * time.Second

// Repository defines account data access
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	// GetForUpdateTx locks the account row for the rest of the transaction.
	GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Account, error)
	// MarkPaidTx flips paid from false to true. The returned bool reports
	// whether this call performed the transition.
	MarkPaidTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (bool, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new account repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var acct Account
	err := r.db.GetContext(ctx, &acct, `
		SELECT id, email, paid, referer_id, created_at, updated_at
		FROM accounts WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("account repository get: %w", err)
	}

	return &acct, nil
}

func (r *repository) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Account, error) {
	var acct Account
	err := tx.GetContext(ctx, &acct, `
		SELECT id, email, paid, referer_id, created_at, updated_at
		FROM accounts WHERE id = $1
		FOR UPDATE
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("account repository lock: %w", err)
	}

	return &acct, nil
}

func (r *repository) MarkPaidTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (bool, error) {
	result, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET paid = true, updated_at = now()
		WHERE id = $1 AND paid = false
	`, id)
	if err != nil {
		return false, fmt.Errorf("account repository mark paid: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("account repository mark paid: %w", err)
	}

	return rows > 0, nil
}
