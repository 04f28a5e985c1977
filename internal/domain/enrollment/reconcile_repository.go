package enrollment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ReconciliationRepository stores stranded charges awaiting reversal.
// Writes go through the pool, never through the enrollment transaction: a
// reconciliation row must survive the rollback that created the need for it.
type ReconciliationRepository interface {
	Insert(ctx context.Context, rec *Reconciliation) error
	ListPending(ctx context.Context, limit int) ([]Reconciliation, error)
	MarkReversed(ctx context.Context, id uuid.UUID) error
	// BumpRetry increments the retry counter and parks the row as manual
	// once maxRetries is reached.
	BumpRetry(ctx context.Context, id uuid.UUID, maxRetries int) error
}

type reconciliationRepository struct {
	db *sqlx.DB
}

// NewReconciliationRepository creates new reconciliation repository
func NewReconciliationRepository(db *sqlx.DB) ReconciliationRepository {
	return &reconciliationRepository{db: db}
}

func (r *reconciliationRepository) Insert(ctx context.Context, rec *Reconciliation) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payment_reconciliations (id, gateway_txn_id, amount_cents, reason, status)
		VALUES ($1, $2, $3, $4, $5)
	`, rec.ID, rec.GatewayTxnID, rec.AmountCents, rec.Reason, rec.Status)
	if err != nil {
		return fmt.Errorf("reconciliation repository insert: %w", err)
	}

	return nil
}

func (r *reconciliationRepository) ListPending(ctx context.Context, limit int) ([]Reconciliation, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}

	rows := make([]Reconciliation, 0)
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, gateway_txn_id, amount_cents, reason, status, retry_count, created_at, updated_at
		FROM payment_reconciliations
		WHERE status = $1
		ORDER BY created_at
		LIMIT $2
	`, ReconciliationPending, limit)
	if err != nil {
		return nil, fmt.Errorf("reconciliation repository list pending: %w", err)
	}

	return rows, nil
}

func (r *reconciliationRepository) MarkReversed(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		UPDATE payment_reconciliations
		SET status = $2, updated_at = now()
		WHERE id = $1
	`, id, ReconciliationReversed)
	if err != nil {
		return fmt.Errorf("reconciliation repository mark reversed: %w", err)
	}

	return nil
}

func (r *reconciliationRepository) BumpRetry(ctx context.Context, id uuid.UUID, maxRetries int) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		UPDATE payment_reconciliations
		SET retry_count = retry_count + 1,
		    status = CASE WHEN retry_count + 1 >= $2 THEN 'manual' ELSE status END,
		    updated_at = now()
		WHERE id = $1
	`, id, maxRetries)
	if err != nil {
		return fmt.Errorf("reconciliation repository bump retry: %w", err)
	}

	return nil
}
