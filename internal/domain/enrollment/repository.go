package enrollment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const queryTimeout = 3 * time.Second

// Repository defines enrollment and payment-transaction persistence. The
// Tx variants never commit or roll back; the coordinator owns the
// transaction.
type Repository interface {
	InsertEnrollmentTx(ctx context.Context, tx *sqlx.Tx, e *Enrollment) error
	InsertPaymentTransactionTx(ctx context.Context, tx *sqlx.Tx, p *PaymentTransaction) error
	LinkPaymentTransactionTx(ctx context.Context, tx *sqlx.Tx, enrollmentIDs []uuid.UUID, paymentTxnID uuid.UUID) error
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]Enrollment, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new enrollment repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) InsertEnrollmentTx(ctx context.Context, tx *sqlx.Tx, e *Enrollment) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO enrollments (id, student_id, class_id, source, campaign, promotion_id, credit_id, payment_transaction_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.ID, e.StudentID, e.ClassID, e.Source, e.Campaign, e.PromotionID, e.CreditID, e.PaymentTransactionID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrAlreadyEnrolled
		}
		return fmt.Errorf("enrollment repository insert: %w", err)
	}

	return nil
}

func (r *repository) InsertPaymentTransactionTx(ctx context.Context, tx *sqlx.Tx, p *PaymentTransaction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO payment_transactions (id, account_id, amount_cents, gateway, gateway_txn_id, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.AccountID, p.AmountCents, p.Gateway, p.GatewayTxnID, p.Status)
	if err != nil {
		return fmt.Errorf("enrollment repository insert payment: %w", err)
	}

	return nil
}

func (r *repository) LinkPaymentTransactionTx(ctx context.Context, tx *sqlx.Tx, enrollmentIDs []uuid.UUID, paymentTxnID uuid.UUID) error {
	if len(enrollmentIDs) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`
		UPDATE enrollments SET payment_transaction_id = ? WHERE id IN (?)
	`, paymentTxnID, enrollmentIDs)
	if err != nil {
		return fmt.Errorf("enrollment repository link payment: %w", err)
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
		return fmt.Errorf("enrollment repository link payment: %w", err)
	}

	return nil
}

func (r *repository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]Enrollment, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}

	enrollments := make([]Enrollment, 0)
	err := r.db.SelectContext(ctx, &enrollments, `
		SELECT e.id, e.student_id, e.class_id, e.source, e.campaign,
		       e.promotion_id, e.credit_id, e.payment_transaction_id, e.created_at
		FROM enrollments e
		JOIN students s ON s.id = e.student_id
		WHERE s.account_id = $1
		ORDER BY e.created_at DESC
		LIMIT $2 OFFSET $3
	`, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("enrollment repository list: %w", err)
	}

	return enrollments, nil
}

// IsTxAbort reports whether err is a store-level serialization or deadlock
// failure that the client may safely retry.
func IsTxAbort(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "40001" || pqErr.Code == "40P01"
}
