package wager

import "github.com/shopspring/decimal"

// Settlement is the money split of a finished two-sided wager.
type Settlement struct {
	Pot    decimal.Decimal
	Fee    decimal.Decimal
	Payout decimal.Decimal
}

// settle computes pot, platform fee and winner payout for one stake per
// side. Rosters settle each winner against one matched opponent, so sides
// is 2 for every current kind and the split stays exact for any team size.
func settle(stake, feeRate decimal.Decimal, sides int) Settlement {
	pot := stake.Mul(decimal.NewFromInt(int64(sides)))
	fee := pot.Mul(feeRate)
	return Settlement{Pot: pot, Fee: fee, Payout: pot.Sub(fee)}
}
