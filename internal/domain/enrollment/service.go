package enrollment

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/okulab/okulab-api/internal/domain/account"
	"github.com/okulab/okulab-api/internal/domain/catalog"
	"github.com/okulab/okulab-api/internal/domain/credit"
	"github.com/okulab/okulab-api/internal/domain/pricing"
	"github.com/okulab/okulab-api/internal/domain/promotion"
	"github.com/okulab/okulab-api/internal/domain/referral"
	"github.com/okulab/okulab-api/internal/domain/student"
	"github.com/okulab/okulab-api/internal/pkg/cardgate"
	"github.com/okulab/okulab-api/internal/pkg/eventbus"
)

// compensateTimeout bounds the refund attempt after a failed transaction.
// It runs on a fresh context because the request context may already be
// canceled.
const compensateTimeout = 10 * time.Second

const publishTimeout = 5 * time.Second

// Stages of the purchase flow, recorded when an attempt fails.
const (
	stageValidating            = "validating"
	stagePricing               = "pricing"
	stageApplyingPromotion     = "applying_promotion"
	stageApplyingCredit        = "applying_credit"
	stageApplyingReferral      = "applying_referral"
	stagePersistingEnrollments = "persisting_enrollments"
	stageCharging              = "charging"
	stagePersistingTransaction = "persisting_transaction"
	stageCommitting            = "committing"
	stageEmittingEvent         = "emitting_event"
)

// Gateway interface for mocking in tests.
type Gateway interface {
	Charge(ctx context.Context, req cardgate.ChargeRequest) (*cardgate.Charge, error)
	Refund(ctx context.Context, transactionID, idempotencyKey string) (*cardgate.Refund, error)
}

// EventPublisher interface for mocking in tests.
type EventPublisher interface {
	PublishEnrollmentCompleted(ctx context.Context, event eventbus.EnrollmentCompleted) error
}

// Receipt summarizes one committed purchase.
type Receipt struct {
	Enrollments     []Enrollment
	Quote           *pricing.Quote
	DiscountCents   int64
	CreditUsedCents int64
	ChargedCents    int64
	Payment         *PaymentTransaction
	Referral        referral.Result
}

// Service coordinates the enrollment purchase flow. Every database write of
// one purchase shares a single transaction; the external charge happens
// inside that window as the last step before commit and is reversed when the
// transaction cannot complete.
type Service struct {
	db              *sqlx.DB
	repo            Repository
	reconciliations ReconciliationRepository
	accounts        account.Repository
	students        student.Repository
	catalog         catalog.Repository
	promotions      *promotion.Validator
	ledger          *credit.Ledger
	referrals       *referral.Issuer
	gateway         Gateway
	publisher       EventPublisher
}

// NewService creates new enrollment service
func NewService(
	db *sqlx.DB,
	repo Repository,
	reconciliations ReconciliationRepository,
	accounts account.Repository,
	students student.Repository,
	catalogRepo catalog.Repository,
	promotions *promotion.Validator,
	ledger *credit.Ledger,
	referrals *referral.Issuer,
	gateway Gateway,
	publisher EventPublisher,
) *Service {
	return &Service{
		db:              db,
		repo:            repo,
		reconciliations: reconciliations,
		accounts:        accounts,
		students:        students,
		catalog:         catalogRepo,
		promotions:      promotions,
		ledger:          ledger,
		referrals:       referrals,
		gateway:         gateway,
		publisher:       publisher,
	}
}

// Enroll purchases a selection of classes for one student.
//
// Everything is resolved and priced before the transaction opens. Inside it
// the account row lock serializes concurrent purchases of the same account,
// then promotion, credit and referral effects are applied and the enrollment
// rows written. The card is charged only after all rows are staged, so a
// validation failure can never move money; an error after the charge settles
// triggers a compensating refund while the caller still sees the original
// error.
func (s *Service) Enroll(ctx context.Context, accountID uuid.UUID, req *EnrollRequest, attr Attribution) (receipt *Receipt, err error) {
	stage := stageValidating
	defer func() {
		if err != nil {
			log.Warn().
				Err(err).
				Str("stage", stage).
				Str("account_id", accountID.String()).
				Str("student_id", req.StudentID.String()).
				Msg("enrollment attempt failed")
		}
	}()

	if len(req.ClassIDs) == 0 {
		return nil, ErrEmptyClassList
	}
	if _, err = s.students.GetByIDForAccount(ctx, req.StudentID, accountID); err != nil {
		return nil, err
	}
	classes, err := s.catalog.GetClassesWithCourses(ctx, req.ClassIDs)
	if err != nil {
		return nil, err
	}

	stage = stagePricing
	quote, err := pricing.Calculate(classes, req.WholeSeries)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin enrollment tx: %w", err)
	}
	defer tx.Rollback()

	acct, err := s.accounts.GetForUpdateTx(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}

	dueCents := quote.TotalCents
	var promo *promotion.Promotion
	if req.PromotionID != nil {
		stage = stageApplyingPromotion
		promo, err = s.promotions.Validate(ctx, *req.PromotionID, acct, &quote.Main)
		if err != nil {
			return nil, err
		}
		if err = s.promotions.ConsumeTx(ctx, tx, promo.ID); err != nil {
			return nil, err
		}
		dueCents = promo.Discount(dueCents, req.WholeSeries)
	}

	stage = stageApplyingCredit
	creditEntry, chargeCents, err := s.ledger.ConsumeTx(ctx, tx, accountID, dueCents, req.CreditCents, req.StudentID, quote.Main.ClassID)
	if err != nil {
		return nil, err
	}

	stage = stageApplyingReferral
	refRes, err := s.referrals.ApplyTx(ctx, tx, acct, &quote.Main, chargeCents)
	if err != nil {
		return nil, err
	}

	stage = stagePersistingEnrollments
	enrollments, err := s.insertEnrollmentsTx(ctx, tx, req.StudentID, classes, attr, promo, creditEntry)
	if err != nil {
		return nil, err
	}

	receipt = &Receipt{
		Enrollments:     enrollments,
		Quote:           quote,
		DiscountCents:   quote.TotalCents - dueCents,
		CreditUsedCents: dueCents - chargeCents,
		ChargedCents:    chargeCents,
		Referral:        refRes,
	}

	if chargeCents > 0 {
		stage = stageCharging
		if req.PaymentNonce == "" {
			return nil, ErrMissingPaymentNonce
		}

		var charge *cardgate.Charge
		charge, err = s.gateway.Charge(ctx, cardgate.ChargeRequest{
			Amount:         cardgate.AmountFromCents(chargeCents),
			Currency:       currency,
			PaymentNonce:   req.PaymentNonce,
			Description:    fmt.Sprintf("okulab enrollment (%d classes)", len(classes)),
			IdempotencyKey: chargeKey(quote.Main.ClassID, req.StudentID),
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPaymentFailed, err)
		}

		stage = stagePersistingTransaction
		payment := &PaymentTransaction{
			ID:           uuid.New(),
			AccountID:    accountID,
			AmountCents:  chargeCents,
			Gateway:      GatewayName,
			GatewayTxnID: charge.TransactionID,
			Status:       PaymentStatusCaptured,
			CreatedAt:    time.Now(),
		}
		if err = s.repo.InsertPaymentTransactionTx(ctx, tx, payment); err != nil {
			s.compensateCharge(charge.TransactionID, chargeCents, err)
			return nil, err
		}

		ids := make([]uuid.UUID, len(enrollments))
		for i := range enrollments {
			ids[i] = enrollments[i].ID
		}
		if err = s.repo.LinkPaymentTransactionTx(ctx, tx, ids, payment.ID); err != nil {
			s.compensateCharge(charge.TransactionID, chargeCents, err)
			return nil, err
		}
		for i := range enrollments {
			enrollments[i].PaymentTransactionID = uuid.NullUUID{UUID: payment.ID, Valid: true}
		}
		receipt.Payment = payment

		stage = stageCommitting
		if err = tx.Commit(); err != nil {
			s.compensateCharge(charge.TransactionID, chargeCents, err)
			return nil, fmt.Errorf("commit enrollment tx: %w", err)
		}
	} else {
		stage = stageCommitting
		if err = tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit enrollment tx: %w", err)
		}
	}

	log.Info().
		Str("account_id", accountID.String()).
		Str("student_id", req.StudentID.String()).
		Int("classes", len(enrollments)).
		Str("shape", string(quote.Shape)).
		Int64("due_cents", dueCents).
		Int64("charged_cents", chargeCents).
		Bool("paid_transitioned", refRes.PaidTransitioned).
		Msg("enrollment completed")

	stage = stageEmittingEvent
	s.publishCompleted(accountID, enrollments, classes, dueCents)

	return receipt, nil
}

// EnrollTrial enrolls a student into a single trial class. Trials are free,
// so the flow skips pricing, promotions, credit and payment entirely.
func (s *Service) EnrollTrial(ctx context.Context, accountID uuid.UUID, req *TrialEnrollRequest, attr Attribution) (*Enrollment, error) {
	if _, err := s.students.GetByIDForAccount(ctx, req.StudentID, accountID); err != nil {
		return nil, err
	}

	class, err := s.catalog.GetClassWithCourse(ctx, req.ClassID)
	if err != nil {
		return nil, err
	}
	if !class.IsTrial {
		return nil, ErrNotTrialCourse
	}

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin enrollment tx: %w", err)
	}
	defer tx.Rollback()

	e := &Enrollment{
		ID:        uuid.New(),
		StudentID: req.StudentID,
		ClassID:   req.ClassID,
		Source:    attr.Source,
		Campaign:  attr.Campaign,
		CreatedAt: time.Now(),
	}
	if err := s.repo.InsertEnrollmentTx(ctx, tx, e); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit enrollment tx: %w", err)
	}

	log.Info().
		Str("account_id", accountID.String()).
		Str("student_id", req.StudentID.String()).
		Str("class_id", req.ClassID.String()).
		Msg("trial enrollment completed")

	s.publishCompleted(accountID, []Enrollment{*e}, []catalog.ClassWithCourse{*class}, 0)

	return e, nil
}

// ListByAccount returns the account's enrollments, newest first
func (s *Service) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]Enrollment, error) {
	return s.repo.ListByAccount(ctx, accountID, limit, offset)
}

func (s *Service) insertEnrollmentsTx(ctx context.Context, tx *sqlx.Tx, studentID uuid.UUID, classes []catalog.ClassWithCourse, attr Attribution, promo *promotion.Promotion, creditEntry *credit.Credit) ([]Enrollment, error) {
	var promoID, creditID uuid.NullUUID
	if promo != nil {
		promoID = uuid.NullUUID{UUID: promo.ID, Valid: true}
	}
	if creditEntry != nil {
		creditID = uuid.NullUUID{UUID: creditEntry.ID, Valid: true}
	}

	enrollments := make([]Enrollment, 0, len(classes))
	for _, c := range classes {
		e := Enrollment{
			ID:          uuid.New(),
			StudentID:   studentID,
			ClassID:     c.ClassID,
			Source:      attr.Source,
			Campaign:    attr.Campaign,
			PromotionID: promoID,
			CreditID:    creditID,
			CreatedAt:   time.Now(),
		}
		if err := s.repo.InsertEnrollmentTx(ctx, tx, &e); err != nil {
			return nil, err
		}
		enrollments = append(enrollments, e)
	}

	return enrollments, nil
}

// compensateCharge reverses a charge that settled while its transaction
// failed. When the refund itself fails the charge is recorded for the
// reconciliation worker; either way the caller keeps the original error.
func (s *Service) compensateCharge(gatewayTxnID string, amountCents int64, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), compensateTimeout)
	defer cancel()

	_, refundErr := s.gateway.Refund(ctx, gatewayTxnID, refundKey(gatewayTxnID))
	if refundErr == nil {
		log.Warn().
			AnErr("cause", cause).
			Str("gateway_txn_id", gatewayTxnID).
			Int64("amount_cents", amountCents).
			Msg("charge refunded after failed enrollment")
		return
	}

	rec := &Reconciliation{
		ID:           uuid.New(),
		GatewayTxnID: gatewayTxnID,
		AmountCents:  amountCents,
		Reason:       cause.Error(),
		Status:       ReconciliationPending,
	}
	if err := s.reconciliations.Insert(ctx, rec); err != nil {
		log.Error().
			Err(err).
			AnErr("refund_error", refundErr).
			Str("gateway_txn_id", gatewayTxnID).
			Int64("amount_cents", amountCents).
			Msg("stranded charge could not be refunded or recorded")
		return
	}

	log.Error().
		Err(refundErr).
		Str("gateway_txn_id", gatewayTxnID).
		Str("reconciliation_id", rec.ID.String()).
		Int64("amount_cents", amountCents).
		Msg("refund failed, charge queued for reconciliation")
}

// publishCompleted emits the post-commit event without holding up the
// response. The purchase already settled, so publish failures are only
// logged.
func (s *Service) publishCompleted(accountID uuid.UUID, enrollments []Enrollment, classes []catalog.ClassWithCourse, totalCents int64) {
	courseByClass := make(map[uuid.UUID]uuid.UUID, len(classes))
	for _, c := range classes {
		courseByClass[c.ClassID] = c.CourseID
	}

	records := make([]eventbus.EnrollmentRecord, 0, len(enrollments))
	for _, e := range enrollments {
		records = append(records, eventbus.EnrollmentRecord{
			EnrollmentID: e.ID,
			StudentID:    e.StudentID,
			ClassID:      e.ClassID,
			CourseID:     courseByClass[e.ClassID],
		})
	}

	event := eventbus.EnrollmentCompleted{
		AccountID:   accountID,
		Enrollments: records,
		TotalCents:  totalCents,
		OccurredAt:  time.Now().UTC(),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := s.publisher.PublishEnrollmentCompleted(ctx, event); err != nil {
			log.Error().Err(err).Str("account_id", accountID.String()).Msg("failed to publish enrollment event")
		}
	}()
}

func chargeKey(mainClassID, studentID uuid.UUID) string {
	return fmt.Sprintf("enroll:%s:%s", mainClassID, studentID)
}

func refundKey(gatewayTxnID string) string {
	return "refund:" + gatewayTxnID
}
