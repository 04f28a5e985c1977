package referral_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/okulab/okulab-api/internal/domain/account"
	"github.com/okulab/okulab-api/internal/domain/catalog"
	"github.com/okulab/okulab-api/internal/domain/credit"
	"github.com/okulab/okulab-api/internal/domain/referral"
)

type stubAccounts struct {
	transitioned  bool
	markPaidCalls int
}

func (s *stubAccounts) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return nil, account.ErrAccountNotFound
}

func (s *stubAccounts) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*account.Account, error) {
	return nil, account.ErrAccountNotFound
}

func (s *stubAccounts) MarkPaidTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (bool, error) {
	s.markPaidCalls++
	return s.transitioned, nil
}

type stubCredits struct {
	inserted []credit.Credit
}

func (s *stubCredits) Balance(ctx context.Context, accountID uuid.UUID) (int64, error) {
	return 0, nil
}

func (s *stubCredits) BalanceTx(ctx context.Context, tx *sqlx.Tx, accountID uuid.UUID) (int64, error) {
	return 0, nil
}

func (s *stubCredits) InsertTx(ctx context.Context, tx *sqlx.Tx, entry *credit.Credit) error {
	s.inserted = append(s.inserted, *entry)
	return nil
}

func (s *stubCredits) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]credit.Credit, error) {
	return nil, nil
}

func regularMain() *catalog.ClassWithCourse {
	return &catalog.ClassWithCourse{ClassID: uuid.New(), CourseID: uuid.New(), IsRegular: true}
}

func referredAccount(refererID uuid.UUID) *account.Account {
	return &account.Account{ID: uuid.New(), RefererID: uuid.NullUUID{UUID: refererID, Valid: true}}
}

func TestApplyGrantsBonusOnFirstPaidPurchase(t *testing.T) {
	refererID := uuid.New()
	accounts := &stubAccounts{transitioned: true}
	credits := &stubCredits{}
	issuer := referral.NewIssuer(accounts, credit.NewLedger(credits), 0)

	res, err := issuer.ApplyTx(context.Background(), nil, referredAccount(refererID), regularMain(), 7000)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	if !res.PaidTransitioned {
		t.Fatal("expected paid transition")
	}
	if res.ReferralCredit == nil {
		t.Fatal("expected referral credit")
	}
	if len(credits.inserted) != 1 {
		t.Fatalf("expected 1 ledger insert, got %d", len(credits.inserted))
	}
	entry := credits.inserted[0]
	if entry.AccountID != refererID {
		t.Fatalf("bonus went to %s, expected referer %s", entry.AccountID, refererID)
	}
	if entry.AmountCents != referral.DefaultBonusCents || entry.Type != credit.TypeReferral {
		t.Fatalf("unexpected entry: amount=%d type=%s", entry.AmountCents, entry.Type)
	}
}

func TestApplyConfiguredBonus(t *testing.T) {
	accounts := &stubAccounts{transitioned: true}
	credits := &stubCredits{}
	issuer := referral.NewIssuer(accounts, credit.NewLedger(credits), 5000)

	res, err := issuer.ApplyTx(context.Background(), nil, referredAccount(uuid.New()), regularMain(), 100)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if res.ReferralCredit == nil || res.ReferralCredit.AmountCents != 5000 {
		t.Fatalf("expected 5000 bonus, got %+v", res.ReferralCredit)
	}
}

func TestApplyFlipsWithoutRefererButSkipsBonus(t *testing.T) {
	accounts := &stubAccounts{transitioned: true}
	credits := &stubCredits{}
	issuer := referral.NewIssuer(accounts, credit.NewLedger(credits), 0)

	acct := &account.Account{ID: uuid.New()}
	res, err := issuer.ApplyTx(context.Background(), nil, acct, regularMain(), 7000)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	if !res.PaidTransitioned {
		t.Fatal("expected paid transition")
	}
	if res.ReferralCredit != nil || len(credits.inserted) != 0 {
		t.Fatal("expected no bonus without a referer")
	}
}

func TestApplySkipsWhenNotQualifying(t *testing.T) {
	trialMain := &catalog.ClassWithCourse{ClassID: uuid.New(), IsRegular: true, IsTrial: true}
	nonRegularMain := &catalog.ClassWithCourse{ClassID: uuid.New()}
	paidAcct := &account.Account{ID: uuid.New(), Paid: true}

	tests := []struct {
		name      string
		acct      *account.Account
		main      *catalog.ClassWithCourse
		remaining int64
	}{
		{"trial course", referredAccount(uuid.New()), trialMain, 7000},
		{"non regular course", referredAccount(uuid.New()), nonRegularMain, 7000},
		{"already paid account", paidAcct, regularMain(), 7000},
		{"fully covered by credit", referredAccount(uuid.New()), regularMain(), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts := &stubAccounts{transitioned: true}
			credits := &stubCredits{}
			issuer := referral.NewIssuer(accounts, credit.NewLedger(credits), 0)

			res, err := issuer.ApplyTx(context.Background(), nil, tt.acct, tt.main, tt.remaining)
			if err != nil {
				t.Fatalf("apply failed: %v", err)
			}
			if res.PaidTransitioned || res.ReferralCredit != nil {
				t.Fatalf("expected no effect, got %+v", res)
			}
			if accounts.markPaidCalls != 0 {
				t.Fatal("expected no paid flip attempt")
			}
		})
	}
}

func TestApplyLosesFlipRace(t *testing.T) {
	accounts := &stubAccounts{transitioned: false}
	credits := &stubCredits{}
	issuer := referral.NewIssuer(accounts, credit.NewLedger(credits), 0)

	res, err := issuer.ApplyTx(context.Background(), nil, referredAccount(uuid.New()), regularMain(), 7000)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	if res.PaidTransitioned {
		t.Fatal("expected no transition when the flip was already done")
	}
	if res.ReferralCredit != nil || len(credits.inserted) != 0 {
		t.Fatal("expected no bonus when the flip was already done")
	}
}
