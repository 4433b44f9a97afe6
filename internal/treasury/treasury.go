// Package treasury abstracts the custodial wallet operator. The ledger keeps
// the books; moving real funds on and off the platform is the treasury's job.
package treasury

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrPayoutRejected = errors.New("payout_rejected")

// Treasury issues per-user deposit addresses and executes payouts. All
// implementations must fail closed: an error here means no funds moved.
type Treasury interface {
	IssueDepositAddress(ctx context.Context, userID string, derivationIndex int) (string, error)
	ExecutePayout(ctx context.Context, withdrawalID, destination string, amount decimal.Decimal) (txHash string, err error)
}

// Static is the development treasury. Addresses are derived deterministically
// from a seed string and payouts succeed immediately with a synthetic hash.
// Production deployments plug in a real custodial backend instead.
type Static struct {
	Seed string
}

func NewStatic(seed string) *Static {
	if seed == "" {
		seed = "dev"
	}
	return &Static{Seed: seed}
}

func (s *Static) IssueDepositAddress(_ context.Context, userID string, derivationIndex int) (string, error) {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s/%s/%d", s.Seed, userID, derivationIndex)))
	return "0x" + hex.EncodeToString(sum[:20]), nil
}

func (s *Static) ExecutePayout(_ context.Context, withdrawalID, destination string, amount decimal.Decimal) (string, error) {
	if destination == "" || !amount.IsPositive() {
		return "", ErrPayoutRejected
	}
	sum := sha256.Sum256([]byte(s.Seed + "/payout/" + withdrawalID))
	return "0x" + hex.EncodeToString(sum[:]), nil
}
