package promotion

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

// Repository defines promotion data access
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Promotion, error)
	GetByCode(ctx context.Context, code string) (*Promotion, error)
	// ConsumeTx confirms one use inside the caller's transaction. The
	// increment is conditional on remaining capacity so concurrent uses of
	// a capped promotion serialize on the row and never overshoot.
	ConsumeTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new promotion repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const promotionColumns = `
	id, code, amount_off_cents, percent_off, max_uses, counts,
	course_id, first_purchase_only, expires_at, created_at, updated_at
`

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Promotion, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var p Promotion
	err := r.db.GetContext(ctx, &p, `
		SELECT `+promotionColumns+`
		FROM promotions WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPromotionNotFound
		}
		return nil, fmt.Errorf("promotion repository get: %w", err)
	}

	return &p, nil
}

func (r *repository) GetByCode(ctx context.Context, code string) (*Promotion, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var p Promotion
	err := r.db.GetContext(ctx, &p, `
		SELECT `+promotionColumns+`
		FROM promotions WHERE code = $1
	`, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPromotionNotFound
		}
		return nil, fmt.Errorf("promotion repository get by code: %w", err)
	}

	return &p, nil
}

func (r *repository) ConsumeTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE promotions
		SET counts = counts + 1, updated_at = now()
		WHERE id = $1 AND (max_uses = 0 OR counts < max_uses)
	`, id)
	if err != nil {
		return fmt.Errorf("promotion repository consume: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("promotion repository consume: %w", err)
	}
	if rows == 0 {
		return ErrPromotionExhausted
	}

	return nil
}
