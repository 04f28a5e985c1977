package enrollment

import (
	"time"

	"github.com/google/uuid"
)

// GatewayName identifies the card gateway in payment records.
const GatewayName = "cardgate"

// currency is the settlement currency sent to the gateway.
const currency = "USD"

// PaymentStatusCaptured is the terminal status of a settled charge.
const PaymentStatusCaptured = "captured"

// Attribution carries the marketing context captured at the transport edge.
// It is passed explicitly so the coordinator never reads ambient state.
type Attribution struct {
	Source   string
	Campaign string
}

// Enrollment links one student to one class. Rows are written once inside
// the enrollment transaction and never mutated afterwards.
type Enrollment struct {
	ID                   uuid.UUID     `db:"id"`
	StudentID            uuid.UUID     `db:"student_id"`
	ClassID              uuid.UUID     `db:"class_id"`
	Source               string        `db:"source"`
	Campaign             string        `db:"campaign"`
	PromotionID          uuid.NullUUID `db:"promotion_id"`
	CreditID             uuid.NullUUID `db:"credit_id"`
	PaymentTransactionID uuid.NullUUID `db:"payment_transaction_id"`
	CreatedAt            time.Time     `db:"created_at"`
}

// PaymentTransaction records one successful external charge and is linked
// to the enrollments it paid for.
type PaymentTransaction struct {
	ID           uuid.UUID `db:"id"`
	AccountID    uuid.UUID `db:"account_id"`
	AmountCents  int64     `db:"amount_cents"`
	Gateway      string    `db:"gateway"`
	GatewayTxnID string    `db:"gateway_txn_id"`
	Status       string    `db:"status"`
	CreatedAt    time.Time `db:"created_at"`
}

// ReconciliationStatus tracks the lifecycle of a stranded charge.
type ReconciliationStatus string

const (
	ReconciliationPending  ReconciliationStatus = "pending"
	ReconciliationReversed ReconciliationStatus = "reversed"
	ReconciliationManual   ReconciliationStatus = "manual"
)

// Reconciliation records a charge that settled externally while its
// enrollment transaction failed. The worker retries the reversal until it
// succeeds or the row is parked for manual review.
type Reconciliation struct {
	ID           uuid.UUID            `db:"id"`
	GatewayTxnID string               `db:"gateway_txn_id"`
	AmountCents  int64                `db:"amount_cents"`
	Reason       string               `db:"reason"`
	Status       ReconciliationStatus `db:"status"`
	RetryCount   int                  `db:"retry_count"`
	CreatedAt    time.Time            `db:"created_at"`
	UpdatedAt    time.Time            `db:"updated_at"`
}
