package referral

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/okulab/okulab-api/internal/domain/account"
	"github.com/okulab/okulab-api/internal/domain/catalog"
	"github.com/okulab/okulab-api/internal/domain/credit"
)

// DefaultBonusCents is the referral bonus granted when no amount is configured.
const DefaultBonusCents = 2500

// Result reports what the issuer did. The coordinator reads the transition
// from here instead of relying on hidden entity mutation.
type Result struct {
	PaidTransitioned bool
	ReferralCredit   *credit.Credit
}

// Issuer grants the one-time referral bonus on a qualifying first paid purchase.
type Issuer struct {
	accounts   account.Repository
	ledger     *credit.Ledger
	bonusCents int64
}

// NewIssuer creates new referral issuer. A non-positive bonus falls back to
// the default.
func NewIssuer(accounts account.Repository, ledger *credit.Ledger, bonusCents int64) *Issuer {
	if bonusCents <= 0 {
		bonusCents = DefaultBonusCents
	}
	return &Issuer{accounts: accounts, ledger: ledger, bonusCents: bonusCents}
}

// ApplyTx evaluates the referral rules inside the caller's transaction.
//
// The paid flag flips on the account's first purchase of a regular course
// with money actually due. The flip itself is a compare-and-set, so it
// happens at most once ever no matter how many requests race. The bonus is
// written for the referring account only when this call performed the flip
// and the purchaser has a referer.
func (i *Issuer) ApplyTx(ctx context.Context, tx *sqlx.Tx, acct *account.Account, main *catalog.ClassWithCourse, remainingCents int64) (Result, error) {
	var res Result

	if !main.IsRegular || main.IsTrial || acct.Paid || remainingCents <= 0 {
		return res, nil
	}

	transitioned, err := i.accounts.MarkPaidTx(ctx, tx, acct.ID)
	if err != nil {
		return res, err
	}
	res.PaidTransitioned = transitioned

	if !transitioned || !acct.HasReferer() {
		return res, nil
	}

	entry, err := i.ledger.GrantReferralTx(ctx, tx, acct.RefererID.UUID, i.bonusCents,
		fmt.Sprintf("referral bonus for account %s", acct.ID))
	if err != nil {
		return res, err
	}
	res.ReferralCredit = entry

	return res, nil
}
